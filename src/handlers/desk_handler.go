package handlers

import (
	"net/http"

	"github.com/carpal-dk/backoffice/src/logger"
	"github.com/carpal-dk/backoffice/src/services"
	"github.com/carpal-dk/backoffice/src/utils"
)

// DeskHandler serves the support-desk ticket tool: a dry-run preview of the
// AI classification, or a queued background run.
type DeskHandler struct {
	tickets   services.TicketClient
	contracts *services.ContractService
}

func NewDeskHandler(tickets services.TicketClient, contracts *services.ContractService) *DeskHandler {
	return &DeskHandler{
		tickets:   tickets,
		contracts: contracts,
	}
}

func (h *DeskHandler) TicketHandler(w http.ResponseWriter, r *http.Request) {
	ticketID := r.URL.Query().Get("ticketId")
	if ticketID == "" {
		utils.SendJSONError(w, "ticketId parameter is required", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("enqueue") == "true" {
		result, err := h.contracts.EnqueueDeskTicket(ticketID)
		if err != nil {
			logger.L.Error("Desk ticket enqueue failed", "ticketId", ticketID, "error", err)
			utils.SendJSONError(w, "Failed to enqueue ticket", http.StatusInternalServerError)
			return
		}
		utils.SendJSON(w, http.StatusAccepted, result)
		return
	}

	preview, err := h.tickets.Preview(r.Context(), ticketID)
	if err != nil {
		logger.L.Error("Desk ticket preview failed", "ticketId", ticketID, "error", err)
		utils.SendJSONError(w, "Ticket preview failed", http.StatusBadGateway)
		return
	}
	utils.SendJSON(w, http.StatusOK, preview)
}
