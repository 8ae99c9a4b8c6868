package models

// TicketPreview is the six-part bundle the AI classification pipeline returns
// for a support-desk ticket. Everything is passed through verbatim; this
// service adds nothing to it.
type TicketPreview struct {
	ZohoTicketData   map[string]any `json:"zoho_ticket_data"`
	AIFinalResponse  map[string]any `json:"ai_final_response"`
	DealMatchLog     map[string]any `json:"deal_match_log"`
	DealMatch        map[string]any `json:"deal_match"`
	FinalLeadPayload map[string]any `json:"final_lead_payload"`
	FinalEmail       map[string]any `json:"final_email_payload"`
}

// EnqueueResult acknowledges a desk-ticket job enqueue.
type EnqueueResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	JobFile string `json:"jobFile,omitempty"`
}
