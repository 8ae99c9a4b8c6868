package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/carpal-dk/backoffice/src/logger"
	"github.com/carpal-dk/backoffice/src/services"
	"github.com/carpal-dk/backoffice/src/utils"
)

// FieldsHandler exports CRM metadata as plain-text downloads. Developers
// paste these lists into mapping spreadsheets, hence text over JSON.
type FieldsHandler struct {
	crm services.CRMClient
}

func NewFieldsHandler(crm services.CRMClient) *FieldsHandler {
	return &FieldsHandler{crm: crm}
}

func sendTextDownload(w http.ResponseWriter, fileName, content string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, content)
}

// ModulesHandler lists every CRM module, one api_name per line.
func (h *FieldsHandler) ModulesHandler(w http.ResponseWriter, r *http.Request) {
	modules, err := h.crm.Modules(r.Context())
	if err != nil {
		logger.L.Error("Module listing failed", "error", err)
		utils.SendJSONError(w, "Failed to list modules", http.StatusBadGateway)
		return
	}

	var b strings.Builder
	for _, m := range modules {
		fmt.Fprintf(&b, "%s\t%s\n", m.APIName, m.PluralLabel)
	}
	sendTextDownload(w, "zoho-modules.txt", b.String())
}

// ModuleFieldsHandler dumps one module's fields as api_name, label and type
// columns.
func (h *FieldsHandler) ModuleFieldsHandler(w http.ResponseWriter, r *http.Request) {
	module := r.PathValue("module")
	fields, err := h.crm.ModuleFields(r.Context(), module)
	if err != nil {
		logger.L.Error("Field listing failed", "module", module, "error", err)
		utils.SendJSONError(w, "Failed to list fields", http.StatusBadGateway)
		return
	}

	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "%s\t%s\t%s\n", f.APIName, f.FieldLabel, f.DataType)
	}
	sendTextDownload(w, fmt.Sprintf("zoho-fields-%s.txt", module), b.String())
}
