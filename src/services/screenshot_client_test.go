package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/carpal-dk/backoffice/src/config"
	"github.com/carpal-dk/backoffice/src/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func screenshotServer(t *testing.T, handler http.HandlerFunc) *ScreenshotClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	setupTestConfig(t, func(c *config.AppConfig) {
		c.ScreenshotBaseURL = server.URL
	})
	return NewScreenshotClient()
}

func TestProbeScreenshotClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantKind    contract.ProbeKind
		wantStatus  string
	}{
		{"pending json", 200, "application/json", `{"status":"pending"}`, contract.ProbeJSON, "pending"},
		{"failed json", 200, "application/json; charset=utf-8", `{"status":"failed"}`, contract.ProbeJSON, "failed"},
		{"pdf", 200, "application/pdf", "%PDF-1.4", contract.ProbePDF, ""},
		{"octet stream", 200, "application/octet-stream", "bin", contract.ProbePDF, ""},
		{"missing", 404, "text/plain", "not found", contract.ProbeNotFound, ""},
		{"server error", 500, "text/plain", "boom", contract.ProbeError, ""},
		{"html surprise", 200, "text/html", "<html>", contract.ProbeError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := screenshotServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/screenshot/deal1", r.URL.Path)
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			res, err := client.ProbeScreenshot(context.Background(), "deal1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, res.Kind)
			assert.Equal(t, tt.wantStatus, res.Status)
		})
	}
}

func TestProbeScreenshotIndexPath(t *testing.T) {
	client := screenshotServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/screenshot/deal1-3", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	})

	res, err := client.ProbeScreenshotIndex(context.Background(), "deal1", 3)
	require.NoError(t, err)
	assert.Equal(t, contract.ProbePDF, res.Kind)
}

func TestUploadAttachment(t *testing.T) {
	client := screenshotServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/attachments", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "deal1", r.FormValue("deal_id"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "foto.jpg", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"a1","file_id":"f1","file_name":"foto.jpg","url":"https://store/f/f1"}`))
	})

	att, err := client.Upload(context.Background(), "deal1", "foto.jpg", "image/jpeg", strings.NewReader("jpegbytes"))
	require.NoError(t, err)
	assert.Equal(t, "f1", att.FileID)
	assert.Equal(t, "image/jpeg", att.MimeType, "missing mime type falls back to the upload's")
}

func TestDeleteRefusesForeignURLs(t *testing.T) {
	client := screenshotServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the store")
	})

	err := client.Delete(context.Background(), "https://evil.example/f/1")
	require.Error(t, err)
}
