package models

// BilinfoListingRow is one normalized listing from the Bilinfo ListingAPI
// export. The feed mixes PascalCase/camelCase keys and numeric strings; the
// client normalizes before these rows reach anyone else.
type BilinfoListingRow struct {
	EdbNumber       string `json:"EdbNumber"`
	Title           string `json:"Title"`
	Vin             string `json:"Vin"`
	Internal        bool   `json:"Internal"`
	Price           int64  `json:"Price"`
	Mileage         int64  `json:"Mileage"`
	CreatedDate     string `json:"CreatedDate"`
	ModifiedDate    string `json:"ModifiedDate"`
	VariantID       string `json:"VariantID"`
	VehicleID       string `json:"VehicleId"`
	VehicleSourceID string `json:"VehicleSourceId"`
}

// BilinfoCheckChecks is the per-aspect outcome of one Zoho vs. listing comparison.
type BilinfoCheckChecks struct {
	StageNotSoldOk  bool `json:"stageNotSoldOk"`
	InternalOk      bool `json:"internalOk"`
	BilinfoStatusOk bool `json:"bilinfoStatusOk"`
	PriceOk         bool `json:"priceOk"`
	MileageOk       bool `json:"mileageOk"`
	VariantOk       bool `json:"variantOk"`
	EquipmentOk     bool `json:"equipmentOk"`
}

// BilinfoCheckResult is the consistency-check verdict for one VIN.
type BilinfoCheckResult struct {
	Found   bool                `json:"found"`
	DealID  string              `json:"dealId,omitempty"`
	Message string              `json:"message,omitempty"`
	Checks  *BilinfoCheckChecks `json:"checks,omitempty"`
}

// BilinfoSyncResult summarizes a sync_one/sync_all action.
type BilinfoSyncResult struct {
	Status   string   `json:"status"`
	Ok       int      `json:"ok,omitempty"`
	Errors   int      `json:"errors,omitempty"`
	Messages []string `json:"messages,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// ConsistencySweepResult is the cached outcome of a full dashboard sweep.
type ConsistencySweepResult struct {
	StartedAt  string                        `json:"startedAt"`
	FinishedAt string                        `json:"finishedAt"`
	Total      int                           `json:"total"`
	Passed     int                           `json:"passed"`
	Failed     int                           `json:"failed"`
	NotFound   int                           `json:"notFound"`
	Results    map[string]BilinfoCheckResult `json:"results"` // keyed by VIN
}
