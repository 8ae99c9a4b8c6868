package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/carpal-dk/backoffice/src/models"
)

// Step is one stage of the contract flow.
type Step string

const (
	StepForside Step = "forside"
	StepKunde   Step = "kunde"
	StepBil     Step = "bil"
	StepFinans  Step = "finans"
	StepExtras  Step = "extras"
	StepVedh    Step = "vedh"
	StepSign    Step = "sign"
	StepSuccess Step = "success"
)

var validSteps = map[Step]bool{
	StepForside: true, StepKunde: true, StepBil: true, StepFinans: true,
	StepExtras: true, StepVedh: true, StepSign: true, StepSuccess: true,
}

var (
	ErrNoDealLoaded    = errors.New("no deal loaded in session")
	ErrUnknownStep     = errors.New("unknown step")
	ErrTerminalStep    = errors.New("the success step cannot be entered by navigation")
	ErrUnknownField    = errors.New("unknown deal field")
	ErrAlreadySent     = errors.New("contract already sent in this session")
	ErrLookupNoMatch   = errors.New("no deal matches the given value")
	ErrUploadNotFound  = errors.New("uploaded attachment not found")
	ErrSessionNotFound = errors.New("contract session not found")
)

// DealFetcher loads and resolves CRM deals.
type DealFetcher interface {
	FetchDeal(ctx context.Context, recordID string, ct models.ContractType) (*models.DealBundle, error)
	LookupDeal(ctx context.Context, value string, ct models.ContractType) (string, error)
}

// Sender delivers a finished submission to the signing queue.
type Sender interface {
	SendContract(ctx context.Context, payload models.SendContractPayload) (models.SendContractResponse, error)
}

// Session is one staff member's contract editing session: the loaded deal,
// the edit overlay, extras, uploads and flow position. All external state
// arrives through the injected collaborators; the session itself never does
// HTTP.
type Session struct {
	ID string

	fetcher DealFetcher
	sender  Sender
	prober  ResourceProber
	poller  *Poller

	mu             sync.Mutex
	recordID       string
	contractType   models.ContractType
	deal           *models.Deal
	car            *models.Car
	contact1       *models.Contact
	contact2       *models.Contact
	products       []models.Product
	extras         []models.ExtraItem
	overlay        *Overlay
	uploads        []models.ContractAttachment
	emailMessage   string
	privateMessage string
	step           Step
	sent           bool
	sending        bool

	indices        []int
	discoverGen    int
	discoverCancel context.CancelFunc
	screenshot     ScreenshotState
	screenshotMsg  string
}

// NewSession creates an empty session on the landing step.
func NewSession(id string, fetcher DealFetcher, sender Sender, prober ResourceProber, pollDelay time.Duration) *Session {
	return &Session{
		ID:           id,
		fetcher:      fetcher,
		sender:       sender,
		prober:       prober,
		poller:       NewPoller(prober, pollDelay),
		overlay:      NewOverlay(),
		step:         StepForside,
		contractType: models.PurchaseAgreement,
		screenshot:   ScreenshotIdle,
	}
}

// Lookup resolves a free-text deal id/number to a canonical record id.
func (s *Session) Lookup(ctx context.Context, value string, ct models.ContractType) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrLookupNoMatch
	}
	id, err := s.fetcher.LookupDeal(ctx, value, ct)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrLookupNoMatch
	}
	return id, nil
}

// Load fetches a deal and resets the session around it: projects the initial
// overlay, derives extras from the invoice subform, jumps to the customer
// step, and restarts screenshot discovery and polling for the new identity.
// On error the existing session state is left untouched.
func (s *Session) Load(ctx context.Context, recordID string, ct models.ContractType) error {
	bundle, err := s.fetcher.FetchDeal(ctx, recordID, ct)
	if err != nil {
		return fmt.Errorf("loading deal %s: %w", recordID, err)
	}

	s.mu.Lock()
	s.recordID = recordID
	s.contractType = ct
	s.deal = bundle.Deal
	s.car = bundle.Car
	s.contact1 = bundle.Contact1
	s.contact2 = bundle.Contact2
	s.products = bundle.ExternalProducts
	s.extras = BuildExtrasFromInvoice(bundle.DealInvoice, bundle.ExternalProducts, ct, bundle.Deal)
	s.overlay = BuildInitialOverlay(bundle.Deal, ct)
	s.uploads = nil
	s.sent = false
	s.step = StepKunde
	s.mu.Unlock()

	s.restartDiscovery(recordID)
	s.poller.Watch(recordID, s.applyScreenshotState)
	return nil
}

// Clear empties the session back to the landing step and cancels all
// polling for the previous deal identity.
func (s *Session) Clear() {
	s.poller.Stop()
	s.mu.Lock()
	if s.discoverCancel != nil {
		s.discoverCancel()
		s.discoverCancel = nil
	}
	s.discoverGen++
	s.recordID = ""
	s.deal = nil
	s.car = nil
	s.contact1 = nil
	s.contact2 = nil
	s.products = nil
	s.extras = nil
	s.overlay = NewOverlay()
	s.uploads = nil
	s.indices = nil
	s.sent = false
	s.step = StepForside
	s.screenshot = ScreenshotIdle
	s.screenshotMsg = ""
	s.mu.Unlock()
}

// restartDiscovery discards any running indexed discovery and starts a fresh
// one for the given identity. A superseded run can never write its result.
func (s *Session) restartDiscovery(recordID string) {
	s.mu.Lock()
	if s.discoverCancel != nil {
		s.discoverCancel()
	}
	s.discoverGen++
	gen := s.discoverGen
	ctx, cancel := context.WithCancel(context.Background())
	s.discoverCancel = cancel
	s.indices = nil
	s.mu.Unlock()

	go func() {
		defer cancel()
		found := DiscoverScreenshotIndices(ctx, s.prober, recordID)
		s.mu.Lock()
		if s.discoverGen == gen {
			s.indices = found
		}
		s.mu.Unlock()
	}()
}

func (s *Session) applyScreenshotState(state ScreenshotState, msg string) {
	s.mu.Lock()
	s.screenshot = state
	s.screenshotMsg = msg
	s.mu.Unlock()
}

// GoTo navigates between steps. All non-terminal steps are freely reachable;
// success is entered only by a successful send.
func (s *Session) GoTo(step Step) error {
	if !validSteps[step] {
		return fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	if step == StepSuccess {
		return ErrTerminalStep
	}
	s.mu.Lock()
	s.step = step
	s.mu.Unlock()
	return nil
}

// SetField records one edit in the overlay, addressed by CRM field name.
func (s *Session) SetField(apiName string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deal == nil {
		return ErrNoDealLoaded
	}
	id, ok := FieldIDByAPIName(apiName, s.contractType)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, apiName)
	}
	s.overlay.Set(id, value)
	return nil
}

// SetMessages records the free-text messages sent with the signing request.
func (s *Session) SetMessages(email, private string) {
	s.mu.Lock()
	s.emailMessage = email
	s.privateMessage = private
	s.mu.Unlock()
}

// AddCatalogExtra, AddCustomExtra, UpdateExtraPrice and RemoveExtra apply
// the extras operations under the session lock.

func (s *Session) AddCatalogExtra(productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := AddCatalogExtra(s.extras, s.products, productID)
	if err != nil {
		return err
	}
	s.extras = next
	return nil
}

func (s *Session) AddCustomExtra(name string, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := AddCustomExtra(s.extras, name, price)
	if err != nil {
		return err
	}
	s.extras = next
	return nil
}

func (s *Session) UpdateExtraPrice(index int, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := UpdateExtraPrice(s.extras, s.contractType, index, price)
	if err != nil {
		return err
	}
	s.extras = next
	return nil
}

func (s *Session) RemoveExtra(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := RemoveExtra(s.extras, s.contractType, index)
	if err != nil {
		return err
	}
	s.extras = next
	return nil
}

// AddUpload records a session-uploaded attachment.
func (s *Session) AddUpload(att models.ContractAttachment) {
	s.mu.Lock()
	s.uploads = append(s.uploads, att)
	s.mu.Unlock()
}

// RemoveUpload drops a session upload by its store URL.
func (s *Session) RemoveUpload(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.uploads {
		if a.URL == url || a.ViewURL == url {
			s.uploads = append(s.uploads[:i], s.uploads[i+1:]...)
			return nil
		}
	}
	return ErrUploadNotFound
}

// RemoveIndex drops one discovered screenshot index after its document was
// deleted from the store.
func (s *Session) RemoveIndex(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.indices[:0]
	for _, i := range s.indices {
		if i != index {
			kept = append(kept, i)
		}
	}
	s.indices = kept
}

// fieldView must be called with s.mu held.
func (s *Session) fieldView() FieldView {
	return FieldView{Deal: s.deal, Overlay: s.overlay, ContractType: s.contractType}
}

// Settlement computes the current breakdown from live state. Recomputed on
// every call; nothing is cached.
func (s *Session) Settlement() Settlement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Calculate(s.fieldView(), s.extras)
}

// BuildSubmission assembles the send payload from current state. Called
// fresh on every send attempt so a retry never reuses stale parts.
func (s *Session) BuildSubmission() (models.SendContractPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deal == nil || s.recordID == "" {
		return models.SendContractPayload{}, ErrNoDealLoaded
	}

	edited := models.EditedFields{
		Deal: s.overlay.Snapshot(s.contractType),
		Car:  map[string]any{},
	}

	// Purchase agreements write the fee line's price back to the deal's fee
	// field so the CRM and the invoice stay in agreement.
	if s.contractType == models.PurchaseAgreement {
		for _, e := range s.extras {
			if isFeeLineName(e.Name) {
				edited.Deal[FieldDealerFee.APIName(s.contractType)] = e.Price
				break
			}
		}
	}

	lines := make([]models.InvoiceLine, 0, len(s.extras))
	for _, e := range s.extras {
		if s.contractType == models.PurchaseAgreement && !isFeeLineName(e.Name) {
			continue
		}
		lines = append(lines, models.InvoiceLine{
			ProductName: e.Name,
			Price:       e.Price,
			ProductID:   e.ProductID,
			ID:          e.RowID,
		})
	}

	dealFiles := s.dealFilesLocked()
	attachments := make([]models.AttachmentRef, 0, len(dealFiles)+len(s.uploads))
	for _, a := range append(dealFiles, s.uploads...) {
		fileID := a.FileID
		if fileID == "" {
			fileID = a.ID
		}
		attachments = append(attachments, models.AttachmentRef{
			FileID:   fileID,
			ID:       a.ID,
			FileName: a.FileName,
			MimeType: a.MimeType,
		})
	}

	return models.SendContractPayload{
		RecordID:       s.recordID,
		ContractType:   s.contractType,
		PrivateMessage: s.privateMessage,
		EmailMessage:   s.emailMessage,
		Attachments:    attachments,
		EditedFields:   edited,
		ExtrasInvoice:  lines,
	}, nil
}

// dealFilesLocked returns the CRM-stored files for the active contract type.
func (s *Session) dealFilesLocked() []models.ContractAttachment {
	if s.deal == nil {
		return nil
	}
	field := "Purchase_Agreement_Extra_Files"
	if s.contractType == models.SalesAgreement {
		field = "Sales_Agreement_Extra_Files"
	}
	return s.deal.Attachments(field)
}

// Send builds and delivers the submission exactly once per explicit call.
// On success the session enters the terminal success step; on failure it
// stays where it is so the user can retry. The sending flag is claimed in
// the same critical section that checks sent, so a second Send racing an
// in-flight one gets ErrAlreadySent instead of queueing a duplicate.
func (s *Session) Send(ctx context.Context) (models.SendContractResponse, error) {
	s.mu.Lock()
	if s.sent || s.sending {
		s.mu.Unlock()
		return models.SendContractResponse{}, ErrAlreadySent
	}
	s.sending = true
	s.mu.Unlock()

	payload, err := s.BuildSubmission()
	if err != nil {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
		return models.SendContractResponse{}, err
	}

	resp, err := s.sender.SendContract(ctx, payload)

	s.mu.Lock()
	s.sending = false
	if err != nil {
		s.mu.Unlock()
		return models.SendContractResponse{}, err
	}
	s.sent = true
	s.step = StepSuccess
	s.mu.Unlock()
	return resp, nil
}

// State is the read snapshot handlers serialize for the UI.
type State struct {
	SessionID     string                      `json:"session_id"`
	RecordID      string                      `json:"record_id"`
	ContractType  models.ContractType         `json:"contract_type"`
	Step          Step                        `json:"step"`
	Deal          *models.Deal                `json:"deal,omitempty"`
	Car           *models.Car                 `json:"car,omitempty"`
	Contact1      *models.Contact             `json:"contact1,omitempty"`
	Contact2      *models.Contact             `json:"contact2,omitempty"`
	Products      []models.Product            `json:"externalProducts,omitempty"`
	Extras        []models.ExtraItem          `json:"extras"`
	Form          map[string]any              `json:"dealForm"`
	Uploads       []models.ContractAttachment `json:"uploadedAttachments"`
	DealFiles     []models.ContractAttachment `json:"dealFiles"`
	Settlement    Settlement                  `json:"settlement"`
	Indices       []int                       `json:"screenshotIndices"`
	Screenshot    ScreenshotState             `json:"screenshotState"`
	ScreenshotMsg string                      `json:"screenshotMessage,omitempty"`
}

// Snapshot captures the current session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	indices := make([]int, len(s.indices))
	copy(indices, s.indices)
	return State{
		SessionID:     s.ID,
		RecordID:      s.recordID,
		ContractType:  s.contractType,
		Step:          s.step,
		Deal:          s.deal,
		Car:           s.car,
		Contact1:      s.contact1,
		Contact2:      s.contact2,
		Products:      s.products,
		Extras:        append([]models.ExtraItem(nil), s.extras...),
		Form:          s.overlay.Snapshot(s.contractType),
		Uploads:       append([]models.ContractAttachment(nil), s.uploads...),
		DealFiles:     s.dealFilesLocked(),
		Settlement:    Calculate(s.fieldView(), s.extras),
		Indices:       indices,
		Screenshot:    s.screenshot,
		ScreenshotMsg: s.screenshotMsg,
	}
}

// RecordID returns the active deal identity ("" when none is loaded).
func (s *Session) RecordID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordID
}

// ContractType returns the session's active contract type.
func (s *Session) ContractType() models.ContractType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contractType
}
