package contract

import (
	"github.com/carpal-dk/backoffice/src/models"
	"github.com/carpal-dk/backoffice/src/utils"
)

// FieldID enumerates the editable deal fields. All reads and writes go
// through the registry below so the "contract type selects the field name"
// indirection lives in exactly one place.
type FieldID string

const (
	FieldSalesPrice         FieldID = "sales_price"
	FieldDeliveryDate       FieldID = "delivery_date"
	FieldHandoverText       FieldID = "handover_text"
	FieldUnderFinance       FieldID = "under_finance"
	FieldOutstandingFinance FieldID = "outstanding_finance"
	FieldFinanceBank        FieldID = "finance_bank"
	FieldDealerFee          FieldID = "dealer_fee"
	FieldHasTradeIn         FieldID = "has_trade_in"
	FieldTradeInPrice       FieldID = "trade_in_price"
	FieldTradeInRemaining   FieldID = "trade_in_remaining"
	FieldTradeInUsage       FieldID = "trade_in_usage"
	FieldHasFinancing       FieldID = "has_financing"
	FieldDownPayment        FieldID = "down_payment"
	FieldFinancingAmount    FieldID = "financing_amount"
	FieldPaymentDate        FieldID = "payment_date"
	FieldPaymentText        FieldID = "payment_text"
	FieldExtraMessage       FieldID = "extra_message"
)

// FieldKind drives value coercion for a field.
type FieldKind int

const (
	KindMoney FieldKind = iota
	KindBool
	KindString
	KindDate
)

type fieldSpec struct {
	kind FieldKind
	// apiName is the CRM field name; empty when the name depends on the
	// contract type, in which case byType carries both names.
	apiName string
	byType  map[models.ContractType]string
}

var fieldRegistry = map[FieldID]fieldSpec{
	FieldSalesPrice:         {kind: KindMoney, apiName: "Sales_Price"},
	FieldDeliveryDate:       {kind: KindDate, apiName: "Deliverytime"},
	FieldUnderFinance:       {kind: KindBool, apiName: "Under_finance"},
	FieldOutstandingFinance: {kind: KindMoney, apiName: "Outstanding_finance"},
	FieldFinanceBank:        {kind: KindString, apiName: "Finance_Bank"},
	FieldDealerFee:          {kind: KindMoney, apiName: "CarPal_sales_fee"},
	FieldHasTradeIn:         {kind: KindBool, apiName: "Has_Trade_In"},
	FieldTradeInPrice:       {kind: KindMoney, apiName: "Trade_in_Price"},
	FieldTradeInRemaining:   {kind: KindMoney, apiName: "Trade_in_Finance_Remaining"},
	FieldTradeInUsage:       {kind: KindString, apiName: "Trade_in_Usage_Type"},
	FieldHasFinancing:       {kind: KindBool, apiName: "Has_Financing"},
	FieldDownPayment:        {kind: KindMoney, apiName: "Financing_Down_Payment_Amount"},
	FieldFinancingAmount:    {kind: KindMoney, apiName: "Financing_Amount"},
	FieldHandoverText: {kind: KindString, byType: map[models.ContractType]string{
		models.PurchaseAgreement: "Purchase_Agreement_Handover_Text",
		models.SalesAgreement:    "Sales_Agreement_Handover_Text",
	}},
	FieldPaymentDate: {kind: KindDate, byType: map[models.ContractType]string{
		models.PurchaseAgreement: "Purchase_Agreement_Payment_Date",
		models.SalesAgreement:    "Sales_Agreement_Payment_Date",
	}},
	FieldPaymentText: {kind: KindString, byType: map[models.ContractType]string{
		models.PurchaseAgreement: "Purchase_Agreement_Payment_Text",
		models.SalesAgreement:    "Sales_Agreement_Payment_Text",
	}},
	FieldExtraMessage: {kind: KindString, byType: map[models.ContractType]string{
		models.PurchaseAgreement: "Purchase_Agreement_Extra_Contract_Message",
		models.SalesAgreement:    "Sales_Agreement_Extra_Contract_Message",
	}},
}

// APIName resolves the CRM field name for a field under a contract type.
func (id FieldID) APIName(ct models.ContractType) string {
	spec, ok := fieldRegistry[id]
	if !ok {
		return ""
	}
	if spec.apiName != "" {
		return spec.apiName
	}
	return spec.byType[ct]
}

// Kind returns the field's value kind (string fields when unknown).
func (id FieldID) Kind() FieldKind {
	if spec, ok := fieldRegistry[id]; ok {
		return spec.kind
	}
	return KindString
}

// FieldIDByAPIName reverses the registry lookup for incoming edit requests.
func FieldIDByAPIName(name string, ct models.ContractType) (FieldID, bool) {
	for id := range fieldRegistry {
		if id.APIName(ct) == name {
			return id, true
		}
	}
	return "", false
}

// Overlay is the sparse set of session-local edits layered over the loaded
// deal. Write-once-per-edit, last write wins per field; it is the only
// mutable state in a session.
type Overlay struct {
	values map[FieldID]any
}

func NewOverlay() *Overlay {
	return &Overlay{values: make(map[FieldID]any)}
}

func (o *Overlay) Set(id FieldID, v any) {
	o.values[id] = v
}

func (o *Overlay) Get(id FieldID) (any, bool) {
	v, ok := o.values[id]
	return v, ok
}

// Snapshot copies the overlay keyed by CRM field names, for the send payload.
func (o *Overlay) Snapshot(ct models.ContractType) map[string]any {
	out := make(map[string]any, len(o.values))
	for id, v := range o.values {
		if name := id.APIName(ct); name != "" {
			out[name] = v
		}
	}
	return out
}

// FieldView reads effective field values: overlay value if present, else the
// deal's value, else a kind-appropriate zero. Every component that needs a
// field value reads through here so default handling cannot diverge.
type FieldView struct {
	Deal         *models.Deal
	Overlay      *Overlay
	ContractType models.ContractType
}

func (v FieldView) raw(id FieldID) any {
	if v.Overlay != nil {
		if val, ok := v.Overlay.Get(id); ok {
			return val
		}
	}
	if v.Deal != nil {
		if val, ok := v.Deal.Record[id.APIName(v.ContractType)]; ok {
			return val
		}
	}
	return nil
}

// Money returns the effective numeric value of a field.
func (v FieldView) Money(id FieldID) float64 {
	return CoerceMoney(v.raw(id))
}

// Bool returns the effective boolean value of a field.
func (v FieldView) Bool(id FieldID) bool {
	return CoerceBool(v.raw(id))
}

// Str returns the effective string value of a field.
func (v FieldView) Str(id FieldID) string {
	return CoerceString(v.raw(id))
}

// CoerceMoney turns any raw CRM/overlay value into a number. Strings go
// through the Danish money parser; anything unrecognized is 0.
func CoerceMoney(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		return utils.ParseMoney(n)
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// CoerceBool follows the CRM's loose boolean representations.
func CoerceBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "True"
	case float64:
		return b != 0
	default:
		return false
	}
}

// CoerceString stringifies scalar values; composite values yield "".
func CoerceString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return utils.ToMoney(s)
	case bool:
		if s {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
