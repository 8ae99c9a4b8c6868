package contract

import (
	"testing"

	"github.com/carpal-dk/backoffice/src/models"
)

func TestBuildInitialOverlay(t *testing.T) {
	deal := &models.Deal{Record: models.Record{
		"Sales_Price":                   "249.900",
		"Deliverytime":                  "2026-09-15T10:00:00+02:00",
		"Under_finance":                 true,
		"Outstanding_finance":           "50.000",
		"Sales_Agreement_Payment_Date":  "efter aftale",
		"Sales_Agreement_Handover_Text": "Afhentes i Valby",
	}}

	o := BuildInitialOverlay(deal, models.SalesAgreement)

	if v, _ := o.Get(FieldSalesPrice); v != 249900.0 {
		t.Errorf("sales price = %v, want 249900", v)
	}
	if v, _ := o.Get(FieldDeliveryDate); v != "2026-09-15" {
		t.Errorf("delivery date = %v, want date-only", v)
	}
	if v, _ := o.Get(FieldUnderFinance); v != true {
		t.Errorf("under finance = %v", v)
	}
	if v, _ := o.Get(FieldOutstandingFinance); v != 50000.0 {
		t.Errorf("outstanding = %v", v)
	}
	if v, _ := o.Get(FieldHandoverText); v != "Afhentes i Valby" {
		t.Errorf("handover text = %v", v)
	}

	// Free-text payment dates survive as typed.
	if v, _ := o.Get(FieldPaymentDate); v != "efter aftale" {
		t.Errorf("payment date = %v, want passthrough", v)
	}

	// Absent usage defaults to the Not_Applicable picklist value.
	if v, _ := o.Get(FieldTradeInUsage); v != models.TradeInNotApplicable {
		t.Errorf("trade-in usage = %v", v)
	}

	// Absent money/bool fields project to zeros, not missing keys.
	if v, ok := o.Get(FieldTradeInPrice); !ok || v != 0.0 {
		t.Errorf("trade-in price = %v ok=%v, want 0 present", v, ok)
	}
	if v, ok := o.Get(FieldHasFinancing); !ok || v != false {
		t.Errorf("has financing = %v ok=%v", v, ok)
	}
}

func TestBuildInitialOverlayNilDeal(t *testing.T) {
	o := BuildInitialOverlay(nil, models.PurchaseAgreement)
	if len(o.Snapshot(models.PurchaseAgreement)) != 0 {
		t.Error("nil deal produced a non-empty overlay")
	}
}
