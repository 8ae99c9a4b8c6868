package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carpal-dk/backoffice/src/config"
	"github.com/carpal-dk/backoffice/src/models"
)

// deskClientImpl implements TicketClient against the desk AI pipeline. The
// pipeline chews on a ticket for a while, so the timeout is generous.
type deskClientImpl struct {
	httpClient http.Client
	baseURL    string
}

func NewDeskClient() TicketClient {
	return &deskClientImpl{
		httpClient: http.Client{Timeout: 120 * time.Second},
		baseURL:    strings.TrimRight(config.Cfg.DeskPipelineBaseURL, "/"),
	}
}

// Preview runs the classification pipeline for one ticket in dry-run mode
// and returns the six-part result untouched.
func (d *deskClientImpl) Preview(ctx context.Context, ticketID string) (models.TicketPreview, error) {
	if d.baseURL == "" {
		return models.TicketPreview{}, fmt.Errorf("desk pipeline not configured")
	}

	reqURL := fmt.Sprintf("%s/classify?ticketId=%s&dryRun=true", d.baseURL, url.QueryEscape(ticketID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.TicketPreview{}, err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return models.TicketPreview{}, fmt.Errorf("desk pipeline request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.TicketPreview{}, fmt.Errorf("desk pipeline returned status %d for ticket %s: %s",
			resp.StatusCode, ticketID, string(body))
	}

	var preview models.TicketPreview
	if err := json.NewDecoder(resp.Body).Decode(&preview); err != nil {
		return models.TicketPreview{}, fmt.Errorf("decoding desk preview for ticket %s: %w", ticketID, err)
	}
	return preview, nil
}
