package models

// ZohoModule is one CRM module's metadata entry.
type ZohoModule struct {
	APIName       string `json:"api_name"`
	PluralLabel   string `json:"plural_label,omitempty"`
	SingularLabel string `json:"singular_label,omitempty"`
}

// ZohoField is one field's metadata within a module.
type ZohoField struct {
	APIName    string `json:"api_name"`
	FieldLabel string `json:"field_label,omitempty"`
	DataType   string `json:"data_type,omitempty"`
}

// PlateLookupResult wraps the vehicle-data provider's response for one plate.
// The provider owns the shape; only vehicleDetails is peeked at for logging.
type PlateLookupResult map[string]any
