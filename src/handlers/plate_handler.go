package handlers

import (
	"net/http"

	"github.com/carpal-dk/backoffice/src/logger"
	"github.com/carpal-dk/backoffice/src/services"
	"github.com/carpal-dk/backoffice/src/utils"
)

// PlateHandler resolves Danish registration plates to vehicle data.
type PlateHandler struct {
	plates services.PlateClient
}

func NewPlateHandler(plates services.PlateClient) *PlateHandler {
	return &PlateHandler{plates: plates}
}

func (h *PlateHandler) LookupHandler(w http.ResponseWriter, r *http.Request) {
	plate := r.PathValue("plate")
	if plate == "" {
		utils.SendJSONError(w, "Plate is required", http.StatusBadRequest)
		return
	}

	result, err := h.plates.Lookup(r.Context(), plate)
	if err != nil {
		logger.L.Warn("Plate lookup failed", "plate", plate, "error", err)
		utils.SendJSONError(w, "Plate lookup failed", http.StatusBadGateway)
		return
	}
	utils.SendJSON(w, http.StatusOK, result)
}
