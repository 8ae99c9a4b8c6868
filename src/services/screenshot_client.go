package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/carpal-dk/backoffice/src/config"
	"github.com/carpal-dk/backoffice/src/contract"
	"github.com/carpal-dk/backoffice/src/logger"
	"github.com/carpal-dk/backoffice/src/models"
)

// ScreenshotClient talks to the contract screenshot/attachment store. It
// doubles as the prober the session poller uses.
type ScreenshotClient struct {
	httpClient http.Client
	baseURL    string
}

func NewScreenshotClient() *ScreenshotClient {
	return &ScreenshotClient{
		httpClient: http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(config.Cfg.ScreenshotBaseURL, "/"),
	}
}

func (s *ScreenshotClient) documentURL(dealID string, index int) string {
	if index < 0 {
		return fmt.Sprintf("%s/screenshot/%s", s.baseURL, dealID)
	}
	return fmt.Sprintf("%s/screenshot/%s-%d", s.baseURL, dealID, index)
}

// probe maps one GET onto the content-type based classification: a JSON body
// carries a status field, a PDF (or raw binary) is the finished document.
func (s *ScreenshotClient) probe(ctx context.Context, dealID string, index int) (contract.ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.documentURL(dealID, index), nil)
	if err != nil {
		return contract.ProbeResult{Kind: contract.ProbeError, Message: err.Error()}, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return contract.ProbeResult{Kind: contract.ProbeError, Message: err.Error()}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return contract.ProbeResult{Kind: contract.ProbeNotFound}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return contract.ProbeResult{
			Kind:    contract.ProbeError,
			Message: fmt.Sprintf("screenshot store returned status %d", resp.StatusCode),
		}, nil
	}

	contentType := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "application/json"):
		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return contract.ProbeResult{Kind: contract.ProbeError, Message: "undecodable status payload"}, nil
		}
		return contract.ProbeResult{Kind: contract.ProbeJSON, Status: body.Status}, nil
	case strings.Contains(contentType, "application/pdf"), strings.Contains(contentType, "application/octet-stream"):
		return contract.ProbeResult{Kind: contract.ProbePDF}, nil
	default:
		return contract.ProbeResult{
			Kind:    contract.ProbeError,
			Message: fmt.Sprintf("unexpected content type %q", contentType),
		}, nil
	}
}

func (s *ScreenshotClient) ProbeScreenshot(ctx context.Context, dealID string) (contract.ProbeResult, error) {
	return s.probe(ctx, dealID, -1)
}

func (s *ScreenshotClient) ProbeScreenshotIndex(ctx context.Context, dealID string, index int) (contract.ProbeResult, error) {
	return s.probe(ctx, dealID, index)
}

// Fetch streams one stored document through to the caller. The returned body
// must be closed by the caller; headers carry the store's content type.
func (s *ScreenshotClient) Fetch(ctx context.Context, dealID string, index int) (io.ReadCloser, string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.documentURL(dealID, index), nil)
	if err != nil {
		return nil, "", 0, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", 0, fmt.Errorf("fetching screenshot for %s: %w", dealID, err)
	}
	return resp.Body, resp.Header.Get("Content-Type"), resp.StatusCode, nil
}

// Upload stores a session attachment and returns its reference.
func (s *ScreenshotClient) Upload(ctx context.Context, dealID, fileName, mimeType string, content io.Reader) (models.ContractAttachment, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return models.ContractAttachment{}, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return models.ContractAttachment{}, fmt.Errorf("buffering upload %s: %w", fileName, err)
	}
	if err := writer.WriteField("deal_id", dealID); err != nil {
		return models.ContractAttachment{}, err
	}
	if err := writer.Close(); err != nil {
		return models.ContractAttachment{}, err
	}

	uploadURL := fmt.Sprintf("%s/attachments", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &buf)
	if err != nil {
		return models.ContractAttachment{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return models.ContractAttachment{}, fmt.Errorf("uploading attachment %s: %w", fileName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.ContractAttachment{}, fmt.Errorf("attachment store returned status %d: %s", resp.StatusCode, string(body))
	}

	var att models.ContractAttachment
	if err := json.NewDecoder(resp.Body).Decode(&att); err != nil {
		return models.ContractAttachment{}, fmt.Errorf("decoding upload response for %s: %w", fileName, err)
	}
	if att.MimeType == "" {
		att.MimeType = mimeType
	}
	logger.L.Info("Attachment uploaded", "dealId", dealID, "fileName", fileName, "fileId", att.FileID)
	return att, nil
}

// Delete removes a stored attachment or indexed document by its store URL.
func (s *ScreenshotClient) Delete(ctx context.Context, storeURL string) error {
	if !strings.HasPrefix(storeURL, s.baseURL) {
		return fmt.Errorf("refusing to delete outside the attachment store: %s", storeURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, storeURL, nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deleting attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("attachment store returned status %d on delete", resp.StatusCode)
	}
	return nil
}
