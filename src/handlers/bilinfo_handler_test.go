package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/carpal-dk/backoffice/src/config"
	"github.com/carpal-dk/backoffice/src/logger"
	"github.com/carpal-dk/backoffice/src/models"
	"github.com/carpal-dk/backoffice/src/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeListingClient struct {
	rows    []models.BilinfoListingRow
	check   models.BilinfoCheckResult
	sync    models.BilinfoSyncResult
	err     error
	lastVin string
}

func (f *fakeListingClient) List(ctx context.Context) ([]models.BilinfoListingRow, error) {
	return f.rows, f.err
}

func (f *fakeListingClient) Check(ctx context.Context, vin string) (models.BilinfoCheckResult, error) {
	f.lastVin = vin
	return f.check, f.err
}

func (f *fakeListingClient) SyncOne(ctx context.Context, vin string) (models.BilinfoSyncResult, error) {
	f.lastVin = vin
	return f.sync, f.err
}

func (f *fakeListingClient) SyncAll(ctx context.Context) (models.BilinfoSyncResult, error) {
	return f.sync, f.err
}

func setupHandlerConfig(t *testing.T, mutate func(*config.AppConfig)) {
	t.Helper()
	logger.InitLogger("error")
	cfg := &config.AppConfig{}
	if mutate != nil {
		mutate(cfg)
	}
	config.Cfg = cfg
	t.Cleanup(func() { config.Cfg = nil })
}

func newBilinfoTestHandler(listings services.ListingClient) *BilinfoHandler {
	return NewBilinfoHandler(listings, services.NewConsistencyService(listings))
}

func dashboardRequest(h *BilinfoHandler, query string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/bilinfo/dashboard?"+query, nil)
	rec := httptest.NewRecorder()
	h.DashboardHandler(rec, req)
	return rec
}

func TestDashboardRejectsBadSecret(t *testing.T) {
	setupHandlerConfig(t, func(c *config.AppConfig) { c.BilinfoSecret = "hemmeligt" })
	h := newBilinfoTestHandler(&fakeListingClient{})

	assert.Equal(t, http.StatusUnauthorized, dashboardRequest(h, "action=list").Code)
	assert.Equal(t, http.StatusUnauthorized, dashboardRequest(h, "action=list&secret=wrong").Code)
}

func TestDashboardRejectsWhenUnconfigured(t *testing.T) {
	setupHandlerConfig(t, nil)
	h := newBilinfoTestHandler(&fakeListingClient{})

	// An empty configured secret must not make an empty query secret valid.
	assert.Equal(t, http.StatusUnauthorized, dashboardRequest(h, "action=list&secret=").Code)
}

func TestDashboardListAction(t *testing.T) {
	setupHandlerConfig(t, func(c *config.AppConfig) { c.BilinfoSecret = "s" })
	h := newBilinfoTestHandler(&fakeListingClient{
		rows: []models.BilinfoListingRow{{Vin: "WVWZZZ1KZ1", Price: 249900}},
	})

	rec := dashboardRequest(h, "action=list&secret=s")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []models.BilinfoListingRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "WVWZZZ1KZ1", rows[0].Vin)
}

func TestDashboardListETag(t *testing.T) {
	setupHandlerConfig(t, func(c *config.AppConfig) { c.BilinfoSecret = "s" })
	h := newBilinfoTestHandler(&fakeListingClient{
		rows: []models.BilinfoListingRow{{Vin: "VIN1"}},
	})

	rec := dashboardRequest(h, "action=list&secret=s")
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/bilinfo/dashboard?action=list&secret=s", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.DashboardHandler(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestDashboardListCaching(t *testing.T) {
	setupHandlerConfig(t, func(c *config.AppConfig) { c.BilinfoSecret = "s" })
	listings := &fakeListingClient{
		rows: []models.BilinfoListingRow{{Vin: "VIN1"}},
	}
	h := newBilinfoTestHandler(listings)

	require.Equal(t, http.StatusOK, dashboardRequest(h, "action=list&secret=s").Code)

	// The feed going down must not break cached reads.
	listings.err = errors.New("feed down")
	rec := dashboardRequest(h, "action=list&secret=s")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []models.BilinfoListingRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)

	// refresh=true bypasses the cache and surfaces the failure.
	assert.Equal(t, http.StatusBadGateway, dashboardRequest(h, "action=list&secret=s&refresh=true").Code)
}

func TestDashboardCheckRequiresVin(t *testing.T) {
	setupHandlerConfig(t, func(c *config.AppConfig) { c.BilinfoSecret = "s" })
	h := newBilinfoTestHandler(&fakeListingClient{})

	assert.Equal(t, http.StatusBadRequest, dashboardRequest(h, "action=check&secret=s").Code)
	assert.Equal(t, http.StatusBadRequest, dashboardRequest(h, "action=sync_one&secret=s").Code)
}

func TestDashboardCheckAction(t *testing.T) {
	setupHandlerConfig(t, func(c *config.AppConfig) { c.BilinfoSecret = "s" })
	listings := &fakeListingClient{check: models.BilinfoCheckResult{Found: true, DealID: "d1"}}
	h := newBilinfoTestHandler(listings)

	rec := dashboardRequest(h, "action=check&secret=s&vin=abc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", listings.lastVin)
}

func TestDashboardUpstreamFailure(t *testing.T) {
	setupHandlerConfig(t, func(c *config.AppConfig) { c.BilinfoSecret = "s" })
	h := newBilinfoTestHandler(&fakeListingClient{err: errors.New("feed down")})

	assert.Equal(t, http.StatusBadGateway, dashboardRequest(h, "action=list&secret=s").Code)
	assert.Equal(t, http.StatusBadRequest, dashboardRequest(h, "action=nonsense&secret=s").Code)
}

func TestDashboardSweepAction(t *testing.T) {
	setupHandlerConfig(t, func(c *config.AppConfig) { c.BilinfoSecret = "s" })
	listings := &fakeListingClient{
		rows:  []models.BilinfoListingRow{{Vin: "VIN1"}},
		check: models.BilinfoCheckResult{Found: true, Checks: &models.BilinfoCheckChecks{StageNotSoldOk: true, InternalOk: true, BilinfoStatusOk: true, PriceOk: true, MileageOk: true, VariantOk: true, EquipmentOk: true}},
	}
	h := newBilinfoTestHandler(listings)

	// No sweep yet.
	assert.Equal(t, http.StatusNotFound, dashboardRequest(h, "action=sweep&secret=s").Code)

	rec := dashboardRequest(h, "action=sweep&secret=s&run=true")
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ConsistencySweepResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Passed)

	// The run is now cached for plain reads.
	assert.Equal(t, http.StatusOK, dashboardRequest(h, "action=sweep&secret=s").Code)
}
