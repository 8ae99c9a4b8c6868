package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/carpal-dk/backoffice/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCRMClient struct {
	modules []models.ZohoModule
	fields  []models.ZohoField
	err     error
}

func (f *fakeCRMClient) FetchDeal(ctx context.Context, recordID string, ct models.ContractType) (*models.DealBundle, error) {
	return nil, f.err
}

func (f *fakeCRMClient) LookupDeal(ctx context.Context, value string, ct models.ContractType) (string, error) {
	return "", f.err
}

func (f *fakeCRMClient) Modules(ctx context.Context) ([]models.ZohoModule, error) {
	return f.modules, f.err
}

func (f *fakeCRMClient) ModuleFields(ctx context.Context, module string) ([]models.ZohoField, error) {
	return f.fields, f.err
}

func TestModulesExport(t *testing.T) {
	setupHandlerConfig(t, nil)
	h := NewFieldsHandler(&fakeCRMClient{modules: []models.ZohoModule{
		{APIName: "Deals", PluralLabel: "Deals"},
		{APIName: "Cars", PluralLabel: "Cars"},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/zoho/modules", nil)
	rec := httptest.NewRecorder()
	h.ModulesHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "zoho-modules.txt")
	assert.Equal(t, "Deals\tDeals\nCars\tCars\n", rec.Body.String())
}

func TestModuleFieldsExport(t *testing.T) {
	setupHandlerConfig(t, nil)
	h := NewFieldsHandler(&fakeCRMClient{fields: []models.ZohoField{
		{APIName: "Sales_Price", FieldLabel: "Sales Price", DataType: "currency"},
		{APIName: "Under_finance", FieldLabel: "Under finance", DataType: "boolean"},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/zoho/modules/Deals/fields", nil)
	req.SetPathValue("module", "Deals")
	rec := httptest.NewRecorder()
	h.ModuleFieldsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "zoho-fields-Deals.txt")
	assert.Equal(t,
		"Sales_Price\tSales Price\tcurrency\nUnder_finance\tUnder finance\tboolean\n",
		rec.Body.String())
}
