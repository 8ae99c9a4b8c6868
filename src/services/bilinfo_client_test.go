package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/carpal-dk/backoffice/src/config"
	"github.com/carpal-dk/backoffice/src/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestConfig(t *testing.T, mutate func(*config.AppConfig)) {
	t.Helper()
	logger.InitLogger("error")
	cfg := &config.AppConfig{}
	if mutate != nil {
		mutate(cfg)
	}
	config.Cfg = cfg
	t.Cleanup(func() { config.Cfg = nil })
}

func TestBilinfoListNormalization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/listings", r.URL.Path)
		assert.Equal(t, "hemmeligt", r.URL.Query().Get("secret"))
		w.Header().Set("Content-Type", "application/json")
		// Mixed key casing and stringified numbers, as the feed sends them.
		w.Write([]byte(`[
			{"EdbNumber":"E1","Title":"VW Golf","Vin":"wvwzzz1kz1","Internal":true,"Price":"249.900","Mileage":42000,"VariantID":"v1"},
			{"edbNumber":"E2","title":"Skoda Octavia","vin":"TMBJJ7NE3","internal":"false","price":189900,"mileage":"61.000","variantId":"v2"}
		]`))
	}))
	defer server.Close()

	setupTestConfig(t, func(c *config.AppConfig) {
		c.BilinfoBaseURL = server.URL
		c.BilinfoSecret = "hemmeligt"
	})

	rows, err := NewBilinfoClient().List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "WVWZZZ1KZ1", rows[0].Vin, "VIN must be uppercased")
	assert.True(t, rows[0].Internal)
	assert.EqualValues(t, 249900, rows[0].Price, "grouped string price must parse")
	assert.EqualValues(t, 42000, rows[0].Mileage)

	assert.Equal(t, "E2", rows[1].EdbNumber)
	assert.Equal(t, "TMBJJ7NE3", rows[1].Vin)
	assert.False(t, rows[1].Internal)
	assert.EqualValues(t, 189900, rows[1].Price)
	assert.EqualValues(t, 61000, rows[1].Mileage)
	assert.Equal(t, "v2", rows[1].VariantID)
}

func TestBilinfoListWrappedEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"listings":[{"Vin":"abc123","Price":1000}]}`))
	}))
	defer server.Close()

	setupTestConfig(t, func(c *config.AppConfig) {
		c.BilinfoBaseURL = server.URL
		c.BilinfoSecret = "s"
	})

	rows, err := NewBilinfoClient().List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ABC123", rows[0].Vin)
}

func TestBilinfoCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/check", r.URL.Path)
		assert.Equal(t, "WVWZZZ1KZ1", r.URL.Query().Get("vin"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"found":true,"dealId":"d1","checks":{"stageNotSoldOk":true,"internalOk":true,"bilinfoStatusOk":true,"priceOk":false,"mileageOk":true,"variantOk":true,"equipmentOk":true}}`))
	}))
	defer server.Close()

	setupTestConfig(t, func(c *config.AppConfig) {
		c.BilinfoBaseURL = server.URL
		c.BilinfoSecret = "s"
	})

	result, err := NewBilinfoClient().Check(context.Background(), "wvwzzz1kz1")
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, "d1", result.DealID)
	require.NotNil(t, result.Checks)
	assert.False(t, result.Checks.PriceOk)
	assert.False(t, checkPassed(result.Checks))
}

func TestBilinfoErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	setupTestConfig(t, func(c *config.AppConfig) {
		c.BilinfoBaseURL = server.URL
		c.BilinfoSecret = "s"
	})

	_, err := NewBilinfoClient().List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
