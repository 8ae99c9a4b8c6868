package contract

import (
	"testing"

	"github.com/carpal-dk/backoffice/src/models"
)

func TestFieldAPINameByContractType(t *testing.T) {
	tests := []struct {
		id   FieldID
		ct   models.ContractType
		want string
	}{
		{FieldSalesPrice, models.PurchaseAgreement, "Sales_Price"},
		{FieldSalesPrice, models.SalesAgreement, "Sales_Price"},
		{FieldPaymentDate, models.PurchaseAgreement, "Purchase_Agreement_Payment_Date"},
		{FieldPaymentDate, models.SalesAgreement, "Sales_Agreement_Payment_Date"},
		{FieldExtraMessage, models.PurchaseAgreement, "Purchase_Agreement_Extra_Contract_Message"},
		{FieldHandoverText, models.SalesAgreement, "Sales_Agreement_Handover_Text"},
	}
	for _, tt := range tests {
		if got := tt.id.APIName(tt.ct); got != tt.want {
			t.Errorf("%s.APIName(%s) = %q, want %q", tt.id, tt.ct, got, tt.want)
		}
	}
}

func TestFieldIDByAPIName(t *testing.T) {
	id, ok := FieldIDByAPIName("Sales_Agreement_Payment_Text", models.SalesAgreement)
	if !ok || id != FieldPaymentText {
		t.Errorf("got %q ok=%v, want FieldPaymentText", id, ok)
	}

	// A purchase-scoped name does not resolve under a sales agreement.
	if _, ok := FieldIDByAPIName("Purchase_Agreement_Payment_Text", models.SalesAgreement); ok {
		t.Error("purchase-scoped name resolved under sales agreement")
	}

	if _, ok := FieldIDByAPIName("Nonexistent_Field", models.PurchaseAgreement); ok {
		t.Error("unknown name resolved")
	}
}

func TestOverlaySnapshotUsesContractTypeNames(t *testing.T) {
	o := NewOverlay()
	o.Set(FieldSalesPrice, "250.000")
	o.Set(FieldPaymentText, "Betales ved levering")

	snap := o.Snapshot(models.SalesAgreement)
	if snap["Sales_Price"] != "250.000" {
		t.Errorf("Sales_Price = %v", snap["Sales_Price"])
	}
	if snap["Sales_Agreement_Payment_Text"] != "Betales ved levering" {
		t.Errorf("payment text landed under %v", snap)
	}
	if _, ok := snap["Purchase_Agreement_Payment_Text"]; ok {
		t.Error("snapshot carries the purchase-scoped name")
	}
}

func TestCoerceMoney(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  float64
	}{
		{"nil", nil, 0},
		{"float", 1234.5, 1234.5},
		{"int", 500, 500},
		{"danish string", "1.234,56", 1234.56},
		{"empty string", "", 0},
		{"bool true", true, 1},
		{"map", map[string]any{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoerceMoney(tt.input); got != tt.want {
				t.Errorf("CoerceMoney(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCoerceBool(t *testing.T) {
	if !CoerceBool(true) || !CoerceBool("true") || !CoerceBool(1.0) {
		t.Error("truthy values not recognized")
	}
	if CoerceBool(false) || CoerceBool("yes") || CoerceBool(nil) || CoerceBool(0.0) {
		t.Error("falsy values misread")
	}
}
