package models

// ContractType selects which agreement the flow produces. It decides which
// CRM field names are read and written and which settlement branch runs.
type ContractType string

const (
	PurchaseAgreement ContractType = "purchase_agreement"
	SalesAgreement    ContractType = "sales_agreement"
)

// ParseContractType maps any input to a valid contract type, defaulting to purchase.
func ParseContractType(s string) ContractType {
	if ContractType(s) == SalesAgreement {
		return SalesAgreement
	}
	return PurchaseAgreement
}

// Trade-in usage policies as stored in the CRM picklist.
const (
	TradeInReduceCarPrice    = "Reduce_Car_Price"
	TradeInReduceDownPayment = "Reduce_Down_Payment"
	TradeInAddToPrice        = "Add_To_Price"
	TradeInPaySeparate       = "Pay_Separate"
	TradeInNotApplicable     = "Not_Applicable"
)

// Record is a raw CRM record: field-name keyed, values as decoded JSON.
type Record map[string]any

// ID returns the record identifier, or "" if absent.
func (r Record) ID() string {
	return r.Str("id")
}

// Str returns a field as string; non-string and missing values yield "".
func (r Record) Str(field string) string {
	if s, ok := r[field].(string); ok {
		return s
	}
	return ""
}

// Attachments decodes a file-list field into attachment references.
// Unrecognized entries are skipped.
func (r Record) Attachments(field string) []ContractAttachment {
	raw, ok := r[field].([]any)
	if !ok {
		return nil
	}
	out := make([]ContractAttachment, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		a := ContractAttachment{}
		for k, v := range m {
			s, _ := v.(string)
			switch k {
			case "id":
				a.ID = s
			case "file_id":
				a.FileID = s
			case "file_name", "File_Name__s", "name":
				if a.FileName == "" {
					a.FileName = s
				}
			case "mime_type", "mimeType":
				if a.MimeType == "" {
					a.MimeType = s
				}
			case "url":
				a.URL = s
			case "view_url":
				a.ViewURL = s
			}
		}
		out = append(out, a)
	}
	return out
}

// Deal is the CRM sale/purchase record under edit. Fetched once at session
// start and never mutated; edits accumulate in the session overlay.
type Deal struct {
	Record
}

// Car is the vehicle record linked to the deal.
type Car struct {
	Record
}

// Contact is a buyer/seller record linked to the deal.
type Contact struct {
	Record
}

// Product is one entry of the external product catalog (Category=External).
type Product struct {
	ID        string  `json:"id"`
	Name      string  `json:"Product_Name"`
	UnitPrice float64 `json:"Unit_Price"`
	Category  string  `json:"Category"`
}

// DealInvoiceRow is one raw row of the deal's invoice subform. The product
// reference is either an embedded object or flat string fields, and the price
// hides under one of several names; the extras deriver sorts that out.
type DealInvoiceRow map[string]any

// ExtraItemType tags where a priced line item originates.
type ExtraItemType string

const (
	ExtraSubform    ExtraItemType = "subform"
	ExtraExternal   ExtraItemType = "external"
	ExtraCustom     ExtraItemType = "custom"
	ExtraSuccessFee ExtraItemType = "success_fee"
)

// ExtraItem is a priced add-on line (warranty, accessory, fee) on the contract.
type ExtraItem struct {
	Type      ExtraItemType `json:"type"`
	Name      string        `json:"name"`
	Price     float64       `json:"price"`
	Category  string        `json:"category,omitempty"`
	ProductID string        `json:"product_id,omitempty"`
	RowID     string        `json:"id,omitempty"`
}

// ContractAttachment references a file stored either in the CRM or in the
// session upload store.
type ContractAttachment struct {
	ID       string `json:"id,omitempty"`
	FileID   string `json:"file_id,omitempty"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	URL      string `json:"url,omitempty"`
	ViewURL  string `json:"view_url,omitempty"`
	Index    int    `json:"index,omitempty"`
}

// DealBundle is everything the CRM returns for one deal load.
type DealBundle struct {
	Deal             *Deal            `json:"deal,omitempty"`
	Car              *Car             `json:"car,omitempty"`
	Contact1         *Contact         `json:"contact1,omitempty"`
	Contact2         *Contact         `json:"contact2,omitempty"`
	ExternalProducts []Product        `json:"externalProducts,omitempty"`
	DealInvoice      []DealInvoiceRow `json:"dealInvoice,omitempty"`
}

// AttachmentRef is the attachment shape the send payload carries.
type AttachmentRef struct {
	FileID   string `json:"file_id,omitempty"`
	ID       string `json:"id,omitempty"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// InvoiceLine is one extras line of the send payload.
type InvoiceLine struct {
	ProductName string  `json:"Product_Name"`
	Price       float64 `json:"Price"`
	ProductID   string  `json:"product_id,omitempty"`
	ID          string  `json:"id,omitempty"`
}

// EditedFields splits the overlay into deal-scoped and car-scoped edits.
type EditedFields struct {
	Deal map[string]any `json:"deal"`
	Car  map[string]any `json:"car"`
}

// SendContractPayload is the single, immutable submission built per explicit
// send action.
type SendContractPayload struct {
	RecordID       string          `json:"record_id"`
	ContractType   ContractType    `json:"contract_type"`
	PrivateMessage string          `json:"private_message"`
	EmailMessage   string          `json:"email_message"`
	Attachments    []AttachmentRef `json:"attachments"`
	EditedFields   EditedFields    `json:"edited_fields"`
	ExtrasInvoice  []InvoiceLine   `json:"extras_invoice"`
}

// SendContractResponse is the queue acknowledgement for a submission.
type SendContractResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id,omitempty"`
	Error   string `json:"error,omitempty"`
}
