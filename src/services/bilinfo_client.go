package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/carpal-dk/backoffice/src/config"
	"github.com/carpal-dk/backoffice/src/logger"
	"github.com/carpal-dk/backoffice/src/models"
	"golang.org/x/net/publicsuffix"
)

// bilinfoClientImpl implements ListingClient against the legacy inspector
// backend. The backend sets a session cookie on first contact, so the client
// carries a cookie jar.
type bilinfoClientImpl struct {
	httpClient http.Client
	baseURL    string
	secret     string
}

// NewBilinfoClient creates the listing client from configuration.
func NewBilinfoClient() ListingClient {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar for bilinfo client", "error", err)
	}

	return &bilinfoClientImpl{
		httpClient: http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		baseURL: strings.TrimRight(config.Cfg.BilinfoBaseURL, "/"),
		secret:  config.Cfg.BilinfoSecret,
	}
}

func (b *bilinfoClientImpl) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if b.baseURL == "" {
		return nil, fmt.Errorf("bilinfo backend not configured")
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("secret", b.secret)

	reqURL := fmt.Sprintf("%s%s?%s", b.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bilinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading bilinfo response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bilinfo backend returned status %d for %s: %s",
			resp.StatusCode, path, string(body[:min(len(body), 512)]))
	}
	return body, nil
}

// rawListingRow tolerates the feed's key-casing drift and numbers-as-strings.
type rawListingRow map[string]any

func (r rawListingRow) str(keys ...string) string {
	for _, k := range keys {
		if s, ok := r[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func (r rawListingRow) num(keys ...string) int64 {
	for _, k := range keys {
		switch v := r[k].(type) {
		case float64:
			return int64(v)
		case string:
			cleaned := strings.ReplaceAll(strings.TrimSpace(v), ".", "")
			if n, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}

func (r rawListingRow) boolVal(keys ...string) bool {
	for _, k := range keys {
		switch v := r[k].(type) {
		case bool:
			return v
		case string:
			return strings.EqualFold(v, "true") || v == "1"
		}
	}
	return false
}

// List fetches and normalizes the full listing export. VINs are uppercased
// so they can key lookups consistently.
func (b *bilinfoClientImpl) List(ctx context.Context) ([]models.BilinfoListingRow, error) {
	body, err := b.get(ctx, "/listings", nil)
	if err != nil {
		return nil, err
	}

	var raw []rawListingRow
	if err := json.Unmarshal(body, &raw); err != nil {
		// Some deployments wrap the rows in a {"listings":[...]} envelope.
		var wrapped struct {
			Listings []rawListingRow `json:"listings"`
		}
		if err2 := json.Unmarshal(body, &wrapped); err2 != nil {
			return nil, fmt.Errorf("decoding bilinfo listings: %w", err)
		}
		raw = wrapped.Listings
	}

	rows := make([]models.BilinfoListingRow, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, models.BilinfoListingRow{
			EdbNumber:       r.str("EdbNumber", "edbNumber"),
			Title:           r.str("Title", "title"),
			Vin:             strings.ToUpper(r.str("Vin", "vin", "VIN")),
			Internal:        r.boolVal("Internal", "internal"),
			Price:           r.num("Price", "price"),
			Mileage:         r.num("Mileage", "mileage"),
			CreatedDate:     r.str("CreatedDate", "createdDate"),
			ModifiedDate:    r.str("ModifiedDate", "modifiedDate"),
			VariantID:       r.str("VariantID", "VariantId", "variantId"),
			VehicleID:       r.str("VehicleId", "vehicleId"),
			VehicleSourceID: r.str("VehicleSourceId", "vehicleSourceId"),
		})
	}

	logger.L.Info("Bilinfo listings fetched", "count", len(rows))
	return rows, nil
}

// Check runs the Zoho-vs-listing consistency comparison for one VIN.
func (b *bilinfoClientImpl) Check(ctx context.Context, vin string) (models.BilinfoCheckResult, error) {
	body, err := b.get(ctx, "/check", url.Values{"vin": {strings.ToUpper(vin)}})
	if err != nil {
		return models.BilinfoCheckResult{}, err
	}

	var result models.BilinfoCheckResult
	if err := json.Unmarshal(body, &result); err != nil {
		return models.BilinfoCheckResult{}, fmt.Errorf("decoding bilinfo check for %s: %w", vin, err)
	}
	return result, nil
}

// SyncOne pushes one VIN's Zoho state to the listing feed.
func (b *bilinfoClientImpl) SyncOne(ctx context.Context, vin string) (models.BilinfoSyncResult, error) {
	body, err := b.get(ctx, "/sync", url.Values{"vin": {strings.ToUpper(vin)}})
	if err != nil {
		return models.BilinfoSyncResult{}, err
	}

	var result models.BilinfoSyncResult
	if err := json.Unmarshal(body, &result); err != nil {
		return models.BilinfoSyncResult{}, fmt.Errorf("decoding bilinfo sync for %s: %w", vin, err)
	}
	return result, nil
}

// SyncAll pushes the whole inventory.
func (b *bilinfoClientImpl) SyncAll(ctx context.Context) (models.BilinfoSyncResult, error) {
	body, err := b.get(ctx, "/sync", url.Values{"all": {"true"}})
	if err != nil {
		return models.BilinfoSyncResult{}, err
	}

	var result models.BilinfoSyncResult
	if err := json.Unmarshal(body, &result); err != nil {
		return models.BilinfoSyncResult{}, fmt.Errorf("decoding bilinfo sync_all: %w", err)
	}
	return result, nil
}
