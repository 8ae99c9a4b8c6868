package services

import (
	"context"

	"github.com/carpal-dk/backoffice/src/models"
)

// CRMClient is the Zoho surface the rest of the backend consumes. It covers
// contract deal loading plus the metadata export used by the fields tool.
type CRMClient interface {
	FetchDeal(ctx context.Context, recordID string, ct models.ContractType) (*models.DealBundle, error)
	LookupDeal(ctx context.Context, value string, ct models.ContractType) (string, error)
	Modules(ctx context.Context) ([]models.ZohoModule, error)
	ModuleFields(ctx context.Context, module string) ([]models.ZohoField, error)
}

// ListingClient talks to the Bilinfo inspector backend.
type ListingClient interface {
	List(ctx context.Context) ([]models.BilinfoListingRow, error)
	Check(ctx context.Context, vin string) (models.BilinfoCheckResult, error)
	SyncOne(ctx context.Context, vin string) (models.BilinfoSyncResult, error)
	SyncAll(ctx context.Context) (models.BilinfoSyncResult, error)
}

// TicketClient talks to the desk AI pipeline.
type TicketClient interface {
	Preview(ctx context.Context, ticketID string) (models.TicketPreview, error)
}

// PlateClient resolves a Danish registration plate to vehicle data.
type PlateClient interface {
	Lookup(ctx context.Context, plate string) (models.PlateLookupResult, error)
}

// EmailService notifies staff about queued work.
type EmailService interface {
	SendContractQueuedEmail(toEmail, recordID, jobID string) error
}
