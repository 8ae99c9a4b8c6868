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
	"github.com/carpal-dk/backoffice/src/logger"
	"github.com/carpal-dk/backoffice/src/models"
)

// plateClientImpl implements PlateClient against the vehicle-data provider.
type plateClientImpl struct {
	httpClient http.Client
	baseURL    string
	apiKey     string
}

func NewPlateClient() PlateClient {
	return &plateClientImpl{
		httpClient: http.Client{Timeout: 20 * time.Second},
		baseURL:    strings.TrimRight(config.Cfg.PlateLookupBaseURL, "/"),
		apiKey:     config.Cfg.PlateLookupAPIKey,
	}
}

// Lookup fetches vehicle data for a registration plate. The provider's
// payload is passed through as-is; the backend never reshapes it.
func (p *plateClientImpl) Lookup(ctx context.Context, plate string) (models.PlateLookupResult, error) {
	if p.baseURL == "" {
		return nil, fmt.Errorf("plate lookup provider not configured")
	}

	plate = strings.ToUpper(strings.ReplaceAll(plate, " ", ""))
	reqURL := fmt.Sprintf("%s/vehicles?registration=%s", p.baseURL, url.QueryEscape(plate))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-AuthKey", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plate lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no vehicle found for plate %s", plate)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("plate provider returned status %d for %s: %s", resp.StatusCode, plate, string(body))
	}

	var result models.PlateLookupResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding plate lookup for %s: %w", plate, err)
	}

	if details, ok := result["vehicleDetails"].(map[string]any); ok {
		logger.L.Info("Plate lookup succeeded", "plate", plate, "make", details["make"], "model", details["model"])
	} else {
		logger.L.Info("Plate lookup succeeded", "plate", plate)
	}
	return result, nil
}
