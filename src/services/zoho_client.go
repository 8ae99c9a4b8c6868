package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/carpal-dk/backoffice/src/config"
	"github.com/carpal-dk/backoffice/src/logger"
	"github.com/carpal-dk/backoffice/src/models"
	"golang.org/x/oauth2"
)

// zohoDataEnvelope is the {"data":[...]} wrapper every record endpoint uses.
type zohoDataEnvelope struct {
	Data []models.Record `json:"data"`
}

type zohoModulesEnvelope struct {
	Modules []models.ZohoModule `json:"modules"`
}

type zohoFieldsEnvelope struct {
	Fields []models.ZohoField `json:"fields"`
}

// zohoClientImpl implements CRMClient against the Zoho CRM v2 REST API using
// the offline refresh-token grant. Token refresh is delegated to oauth2's
// reuse token source, so concurrent callers share one access token.
type zohoClientImpl struct {
	httpClient *http.Client
	apiBase    string
}

// NewZohoClient builds the CRM client from the loaded configuration.
func NewZohoClient() CRMClient {
	conf := &oauth2.Config{
		ClientID:     config.Cfg.ZohoClientID,
		ClientSecret: config.Cfg.ZohoClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: config.Cfg.ZohoAccountsBaseURL + "/oauth/v2/token",
		},
	}
	seed := &oauth2.Token{RefreshToken: config.Cfg.ZohoRefreshToken}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
		Timeout: 20 * time.Second,
	})
	client := oauth2.NewClient(ctx, conf.TokenSource(ctx, seed))
	client.Timeout = 20 * time.Second

	return &zohoClientImpl{
		httpClient: client,
		apiBase:    config.Cfg.ZohoAPIBaseURL,
	}
}

func (z *zohoClientImpl) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := z.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("zoho request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("zoho returned status %d for %s: %s", resp.StatusCode, rawURL, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding zoho response from %s: %w", rawURL, err)
	}
	return nil
}

// record fetches a single record from a module, or nil when Zoho has none.
func (z *zohoClientImpl) record(ctx context.Context, module, id string) (models.Record, error) {
	var env zohoDataEnvelope
	if err := z.getJSON(ctx, fmt.Sprintf("%s/%s/%s", z.apiBase, module, id), &env); err != nil {
		return nil, err
	}
	if len(env.Data) == 0 {
		return nil, nil
	}
	return env.Data[0], nil
}

// lookupID extracts the id of an embedded lookup object on a record.
func lookupID(rec models.Record, field string) string {
	m, ok := rec[field].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := m["id"].(string)
	return id
}

// FetchDeal loads the deal and everything hanging off it: the linked car,
// up to two contacts, the external product catalog and the invoice subform.
// Related records that fail to load are logged and skipped; only a missing
// deal itself is fatal.
func (z *zohoClientImpl) FetchDeal(ctx context.Context, recordID string, ct models.ContractType) (*models.DealBundle, error) {
	dealRec, err := z.record(ctx, "Deals", recordID)
	if err != nil {
		return nil, fmt.Errorf("fetching deal %s: %w", recordID, err)
	}
	if dealRec == nil {
		return nil, fmt.Errorf("deal %s not found", recordID)
	}

	bundle := &models.DealBundle{Deal: &models.Deal{Record: dealRec}}

	if carID := lookupID(dealRec, "Car"); carID != "" {
		carRec, err := z.record(ctx, "Cars", carID)
		if err != nil {
			logger.L.Warn("Failed to load linked car", "dealId", recordID, "carId", carID, "error", err)
		} else if carRec != nil {
			bundle.Car = &models.Car{Record: carRec}
		}
	}

	for i, field := range []string{"Contact_Name", "Second_Contact"} {
		id := lookupID(dealRec, field)
		if id == "" {
			continue
		}
		rec, err := z.record(ctx, "Contacts", id)
		if err != nil {
			logger.L.Warn("Failed to load linked contact", "dealId", recordID, "contactId", id, "error", err)
			continue
		}
		if rec == nil {
			continue
		}
		if i == 0 {
			bundle.Contact1 = &models.Contact{Record: rec}
		} else {
			bundle.Contact2 = &models.Contact{Record: rec}
		}
	}

	products, err := z.externalProducts(ctx)
	if err != nil {
		logger.L.Warn("Failed to load external product catalog", "error", err)
	}
	bundle.ExternalProducts = products

	if rows, ok := dealRec["Deal_Invoice"].([]any); ok {
		for _, r := range rows {
			if m, ok := r.(map[string]any); ok {
				bundle.DealInvoice = append(bundle.DealInvoice, models.DealInvoiceRow(m))
			}
		}
	}

	logger.L.Info("Deal bundle loaded", "dealId", recordID, "contractType", ct,
		"hasCar", bundle.Car != nil, "invoiceRows", len(bundle.DealInvoice), "products", len(bundle.ExternalProducts))
	return bundle, nil
}

// externalProducts fetches the catalog used for extra sales lines.
func (z *zohoClientImpl) externalProducts(ctx context.Context) ([]models.Product, error) {
	searchURL := fmt.Sprintf("%s/Products/search?criteria=%s",
		z.apiBase, url.QueryEscape("(Category:equals:External)"))

	var env struct {
		Data []models.Product `json:"data"`
	}
	if err := z.getJSON(ctx, searchURL, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// LookupDeal resolves free text to a deal record id. A value that already
// looks like a record id is tried directly first, then the deal-name search.
func (z *zohoClientImpl) LookupDeal(ctx context.Context, value string, ct models.ContractType) (string, error) {
	if rec, err := z.record(ctx, "Deals", value); err == nil && rec != nil {
		return rec.ID(), nil
	}

	searchURL := fmt.Sprintf("%s/Deals/search?criteria=%s",
		z.apiBase, url.QueryEscape(fmt.Sprintf("(Deal_Name:equals:%s)", value)))
	var env zohoDataEnvelope
	if err := z.getJSON(ctx, searchURL, &env); err != nil {
		return "", fmt.Errorf("searching deals for %q: %w", value, err)
	}
	if len(env.Data) == 0 {
		return "", nil
	}
	return env.Data[0].ID(), nil
}

// Modules lists all CRM modules.
func (z *zohoClientImpl) Modules(ctx context.Context) ([]models.ZohoModule, error) {
	var env zohoModulesEnvelope
	if err := z.getJSON(ctx, z.apiBase+"/settings/modules", &env); err != nil {
		return nil, fmt.Errorf("listing zoho modules: %w", err)
	}
	return env.Modules, nil
}

// ModuleFields lists the field metadata of one module.
func (z *zohoClientImpl) ModuleFields(ctx context.Context, module string) ([]models.ZohoField, error) {
	fieldsURL := fmt.Sprintf("%s/settings/fields?module=%s", z.apiBase, url.QueryEscape(module))
	var env zohoFieldsEnvelope
	if err := z.getJSON(ctx, fieldsURL, &env); err != nil {
		return nil, fmt.Errorf("listing fields for module %s: %w", module, err)
	}
	return env.Fields, nil
}
