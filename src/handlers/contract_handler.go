package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/carpal-dk/backoffice/src/config"
	"github.com/carpal-dk/backoffice/src/contract"
	"github.com/carpal-dk/backoffice/src/database"
	"github.com/carpal-dk/backoffice/src/logger"
	"github.com/carpal-dk/backoffice/src/models"
	"github.com/carpal-dk/backoffice/src/services"
	"github.com/carpal-dk/backoffice/src/utils"
)

// ContractHandler serves the contract flow: deal lookup and loading,
// session edits, attachments, screenshot proxying and the final send.
type ContractHandler struct {
	sessions    *services.SessionManager
	crm         services.CRMClient
	screenshots *services.ScreenshotClient
}

func NewContractHandler(sessions *services.SessionManager, crm services.CRMClient, screenshots *services.ScreenshotClient) *ContractHandler {
	return &ContractHandler{
		sessions:    sessions,
		crm:         crm,
		screenshots: screenshots,
	}
}

func (h *ContractHandler) session(w http.ResponseWriter, r *http.Request) (*contract.Session, bool) {
	id := r.PathValue("sessionId")
	sess, found := h.sessions.Get(id)
	if !found {
		utils.SendJSONError(w, "Session not found or expired", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

// CreateSessionHandler starts a new empty session.
func (h *ContractHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Create()
	utils.SendJSON(w, http.StatusCreated, sess.Snapshot())
}

// GetSessionHandler returns the live session snapshot the UI renders from.
func (h *ContractHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	utils.SendJSON(w, http.StatusOK, sess.Snapshot())
}

// DeleteSessionHandler ends a session.
func (h *ContractHandler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Clear()
	h.sessions.Delete(sess.ID)
	utils.SendJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// LookupDealHandler resolves free text (deal number, record id) to a record id.
func (h *ContractHandler) LookupDealHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value        string `json:"value"`
		ContractType string `json:"contract_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ct := models.ParseContractType(body.ContractType)
	recordID, err := h.crm.LookupDeal(r.Context(), strings.TrimSpace(body.Value), ct)
	if err != nil {
		logger.L.Error("Deal lookup failed", "value", body.Value, "error", err)
		utils.SendJSONError(w, "Deal lookup failed", http.StatusBadGateway)
		return
	}
	if recordID == "" {
		utils.SendJSONError(w, "No deal matches the given value", http.StatusNotFound)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]string{"record_id": recordID})
}

// GetDealHandler fetches a deal bundle without touching any session. Used by
// the dashboard's read-only deal inspector.
func (h *ContractHandler) GetDealHandler(w http.ResponseWriter, r *http.Request) {
	recordID := r.PathValue("id")
	ct := models.ParseContractType(r.URL.Query().Get("contract_type"))

	bundle, err := h.crm.FetchDeal(r.Context(), recordID, ct)
	if err != nil {
		logger.L.Error("Deal fetch failed", "recordId", recordID, "error", err)
		utils.SendJSONError(w, "Failed to load deal", http.StatusBadGateway)
		return
	}
	utils.SendJSON(w, http.StatusOK, bundle)
}

// LoadDealHandler loads a deal into a session, projecting the form and
// deriving extras, and jumps the flow to the customer step.
func (h *ContractHandler) LoadDealHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var body struct {
		RecordID     string `json:"record_id"`
		ContractType string `json:"contract_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.RecordID == "" {
		utils.SendJSONError(w, "record_id is required", http.StatusBadRequest)
		return
	}

	if err := sess.Load(r.Context(), body.RecordID, models.ParseContractType(body.ContractType)); err != nil {
		logger.L.Error("Session deal load failed", "sessionId", sess.ID, "recordId", body.RecordID, "error", err)
		utils.SendJSONError(w, "Failed to load deal", http.StatusBadGateway)
		return
	}
	utils.SendJSON(w, http.StatusOK, sess.Snapshot())
}

// StepHandler navigates the session between flow steps.
func (h *ContractHandler) StepHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Step string `json:"step"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := sess.GoTo(contract.Step(body.Step)); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, contract.ErrTerminalStep) {
			status = http.StatusForbidden
		}
		utils.SendJSONError(w, err.Error(), status)
		return
	}
	utils.SendJSON(w, http.StatusOK, sess.Snapshot())
}

// SetFieldHandler records one form edit in the session overlay.
func (h *ContractHandler) SetFieldHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Field string `json:"field"`
		Value any    `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := sess.SetField(body.Field, body.Value); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, contract.ErrNoDealLoaded) {
			status = http.StatusConflict
		}
		utils.SendJSONError(w, err.Error(), status)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]any{
		"dealForm":   sess.Snapshot().Form,
		"settlement": sess.Settlement(),
	})
}

// SetMessagesHandler records the signing email and private note texts.
func (h *ContractHandler) SetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var body struct {
		EmailMessage   string `json:"email_message"`
		PrivateMessage string `json:"private_message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sess.SetMessages(body.EmailMessage, body.PrivateMessage)
	utils.SendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AddExtraHandler adds a catalog or custom extra line.
func (h *ContractHandler) AddExtraHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var body struct {
		ProductID string  `json:"product_id"`
		Name      string  `json:"name"`
		Price     float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var err error
	if body.ProductID != "" {
		err = sess.AddCatalogExtra(body.ProductID)
	} else {
		err = sess.AddCustomExtra(body.Name, body.Price)
	}
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	utils.SendJSON(w, http.StatusOK, sess.Snapshot())
}

func extraIndex(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("index"))
}

// UpdateExtraHandler changes one extra line's price.
func (h *ContractHandler) UpdateExtraHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	index, err := extraIndex(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid extra index", http.StatusBadRequest)
		return
	}

	var body struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := sess.UpdateExtraPrice(index, body.Price); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, contract.ErrFeeLineImmutable) {
			status = http.StatusForbidden
		}
		utils.SendJSONError(w, err.Error(), status)
		return
	}
	utils.SendJSON(w, http.StatusOK, sess.Snapshot())
}

// RemoveExtraHandler deletes one extra line.
func (h *ContractHandler) RemoveExtraHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	index, err := extraIndex(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid extra index", http.StatusBadRequest)
		return
	}

	if err := sess.RemoveExtra(index); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, contract.ErrFeeLineImmutable) {
			status = http.StatusForbidden
		}
		utils.SendJSONError(w, err.Error(), status)
		return
	}
	utils.SendJSON(w, http.StatusOK, sess.Snapshot())
}

// UploadAttachmentHandler stores a multipart file upload in the attachment
// store and registers it on the session.
func (h *ContractHandler) UploadAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	sess, found := h.sessions.Get(sessionID)
	if !found {
		utils.SendJSONError(w, "Session not found or expired", http.StatusNotFound)
		return
	}
	if sess.RecordID() == "" {
		utils.SendJSONError(w, "No deal loaded in session", http.StatusConflict)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxUploadSizeBytes)
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		utils.SendJSONError(w, "File too large or malformed upload", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.SendJSONError(w, "Missing 'file' form field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	att, err := h.screenshots.Upload(r.Context(), sess.RecordID(), header.Filename,
		header.Header.Get("Content-Type"), file)
	if err != nil {
		logger.L.Error("Attachment upload failed", "sessionId", sess.ID, "fileName", header.Filename, "error", err)
		utils.SendJSONError(w, "Attachment upload failed", http.StatusBadGateway)
		return
	}

	sess.AddUpload(att)
	utils.SendJSON(w, http.StatusOK, att)
}

// DeleteAttachmentHandler removes a session upload from the store and the
// session.
func (h *ContractHandler) DeleteAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	sess, found := h.sessions.Get(sessionID)
	if !found {
		utils.SendJSONError(w, "Session not found or expired", http.StatusNotFound)
		return
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.screenshots.Delete(r.Context(), body.URL); err != nil {
		logger.L.Error("Attachment delete failed", "sessionId", sess.ID, "url", body.URL, "error", err)
		utils.SendJSONError(w, "Attachment delete failed", http.StatusBadGateway)
		return
	}
	if err := sess.RemoveUpload(body.URL); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// parseScreenshotRef splits "dealId" / "dealId-3" into its parts. Index -1
// means the primary document.
func parseScreenshotRef(ref string) (dealID string, index int) {
	index = -1
	dash := strings.LastIndex(ref, "-")
	if dash <= 0 || dash == len(ref)-1 {
		return ref, index
	}
	n, err := strconv.Atoi(ref[dash+1:])
	if err != nil || n < 0 || n > contract.MaxScreenshotIndex {
		return ref, index
	}
	return ref[:dash], n
}

// ScreenshotHandler proxies a stored document (primary or indexed) through
// to the caller, preserving the store's content type.
func (h *ContractHandler) ScreenshotHandler(w http.ResponseWriter, r *http.Request) {
	dealID, index := parseScreenshotRef(r.PathValue("ref"))

	body, contentType, status, err := h.screenshots.Fetch(r.Context(), dealID, index)
	if err != nil {
		utils.SendJSONError(w, "Screenshot store unreachable", http.StatusBadGateway)
		return
	}
	defer body.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(status)
	if _, err := io.Copy(w, body); err != nil {
		logger.L.Warn("Screenshot proxy copy interrupted", "dealId", dealID, "error", err)
	}
}

// DeleteScreenshotHandler removes one indexed document and drops its index
// from the session.
func (h *ContractHandler) DeleteScreenshotHandler(w http.ResponseWriter, r *http.Request) {
	dealID, index := parseScreenshotRef(r.PathValue("ref"))
	if index < 0 {
		utils.SendJSONError(w, "Only indexed documents can be deleted", http.StatusBadRequest)
		return
	}

	storeURL := config.Cfg.ScreenshotBaseURL + "/screenshot/" + r.PathValue("ref")
	if err := h.screenshots.Delete(r.Context(), storeURL); err != nil {
		logger.L.Error("Indexed document delete failed", "dealId", dealID, "index", index, "error", err)
		utils.SendJSONError(w, "Delete failed", http.StatusBadGateway)
		return
	}

	if sessionID := r.URL.Query().Get("sessionId"); sessionID != "" {
		if sess, found := h.sessions.Get(sessionID); found {
			sess.RemoveIndex(index)
		}
	}
	utils.SendJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// SendContractHandler builds the submission from the session and queues it.
func (h *ContractHandler) SendContractHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	resp, err := sess.Send(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, contract.ErrAlreadySent):
			utils.SendJSONError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, contract.ErrNoDealLoaded):
			utils.SendJSONError(w, err.Error(), http.StatusConflict)
		default:
			logger.L.Error("Contract send failed", "sessionId", sess.ID, "error", err)
			utils.SendJSON(w, http.StatusBadGateway, models.SendContractResponse{
				Success: false,
				Error:   "Failed to queue contract send",
			})
		}
		return
	}
	utils.SendJSON(w, http.StatusOK, resp)
}

// JobStatusHandler reports the queue state of a send job by the id returned
// from SendContractHandler.
func (h *ContractHandler) JobStatusHandler(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")
	row, err := database.JobStatus(jobID)
	if err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			utils.SendJSONError(w, "Job not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to read job status", "jobId", jobID, "error", err)
		utils.SendJSONError(w, "Failed to read job status", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusOK, row)
}
