package contract

import (
	"testing"

	"github.com/carpal-dk/backoffice/src/models"
)

func viewFor(ct models.ContractType, rec models.Record) FieldView {
	return FieldView{
		Deal:         &models.Deal{Record: rec},
		Overlay:      NewOverlay(),
		ContractType: ct,
	}
}

func line(t *testing.T, s Settlement, label string) float64 {
	t.Helper()
	for _, l := range s.Lines {
		if l.Label == label {
			return l.Amount
		}
	}
	t.Fatalf("no settlement line %q in %+v", label, s.Lines)
	return 0
}

func hasLine(s Settlement, label string) bool {
	for _, l := range s.Lines {
		if l.Label == label {
			return true
		}
	}
	return false
}

func TestCalculatePurchase(t *testing.T) {
	t.Run("financed car with fee line", func(t *testing.T) {
		v := viewFor(models.PurchaseAgreement, models.Record{
			"Sales_Price":         "200.000",
			"Under_finance":       true,
			"Outstanding_finance": "50.000",
		})
		extras := []models.ExtraItem{{Name: SuccessFeeName, Price: 10000}}

		s := Calculate(v, extras)
		if s.Total != 140000 {
			t.Errorf("Total = %v, want 140000", s.Total)
		}
		if got := line(t, s, "Indfrielse af restgæld"); got != -50000 {
			t.Errorf("rest debt line = %v, want -50000", got)
		}
		if got := line(t, s, "KØBESUM (CarPal)"); got != 140000 {
			t.Errorf("final line = %v, want 140000", got)
		}
	})

	t.Run("no financing skips the debt line", func(t *testing.T) {
		v := viewFor(models.PurchaseAgreement, models.Record{
			"Sales_Price":         "200.000",
			"Under_finance":       false,
			"Outstanding_finance": "50.000",
			"CarPal_sales_fee":    "5.000",
		})
		s := Calculate(v, nil)
		if s.Total != 195000 {
			t.Errorf("Total = %v, want 195000", s.Total)
		}
		if hasLine(s, "Indfrielse af restgæld") {
			t.Error("debt line present without financing")
		}
	})

	t.Run("fee falls back to the deal field", func(t *testing.T) {
		v := viewFor(models.PurchaseAgreement, models.Record{
			"Sales_Price":      100000.0,
			"CarPal_sales_fee": 2500.0,
		})
		s := Calculate(v, nil)
		if s.Total != 97500 {
			t.Errorf("Total = %v, want 97500", s.Total)
		}
	})
}

func TestCalculateSale(t *testing.T) {
	t.Run("cash sale", func(t *testing.T) {
		v := viewFor(models.SalesAgreement, models.Record{"Sales_Price": "300.000"})
		s := Calculate(v, nil)
		if s.CashNow != 300000 || s.Loan != 0 {
			t.Errorf("CashNow = %v, Loan = %v", s.CashNow, s.Loan)
		}
	})

	t.Run("trade-in reduces car price", func(t *testing.T) {
		v := viewFor(models.SalesAgreement, models.Record{
			"Sales_Price":                "300.000",
			"Has_Trade_In":               true,
			"Trade_in_Price":             "100.000",
			"Trade_in_Finance_Remaining": "20.000",
			"Trade_in_Usage_Type":        models.TradeInReduceCarPrice,
		})
		s := Calculate(v, nil)
		if s.CashNow != 220000 {
			t.Errorf("CashNow = %v, want 220000", s.CashNow)
		}
		if got := line(t, s, "Byttebil netto"); got != 80000 {
			t.Errorf("trade net line = %v, want 80000", got)
		}
	})

	t.Run("underwater trade added to price", func(t *testing.T) {
		v := viewFor(models.SalesAgreement, models.Record{
			"Sales_Price":                "300.000",
			"Has_Trade_In":               true,
			"Trade_in_Price":             "50.000",
			"Trade_in_Finance_Remaining": "70.000",
			"Trade_in_Usage_Type":        models.TradeInAddToPrice,
		})
		s := Calculate(v, nil)
		if s.CashNow != 320000 {
			t.Errorf("CashNow = %v, want 320000", s.CashNow)
		}
	})

	t.Run("underwater trade paid separately", func(t *testing.T) {
		v := viewFor(models.SalesAgreement, models.Record{
			"Sales_Price":                "300.000",
			"Has_Trade_In":               true,
			"Trade_in_Price":             "50.000",
			"Trade_in_Finance_Remaining": "70.000",
			"Trade_in_Usage_Type":        models.TradeInPaySeparate,
		})
		s := Calculate(v, nil)
		if s.CashNow != 320000 {
			t.Errorf("CashNow = %v, want 300000 + 20000 separate", s.CashNow)
		}
	})

	t.Run("extras raise the effective price", func(t *testing.T) {
		v := viewFor(models.SalesAgreement, models.Record{"Sales_Price": "300.000"})
		extras := []models.ExtraItem{
			{Name: "Garanti", Price: 5000},
			{Name: "Måtter", Price: 299},
		}
		s := Calculate(v, extras)
		if s.CashNow != 305299 {
			t.Errorf("CashNow = %v, want 305299", s.CashNow)
		}
		if got := line(t, s, "Extras (Ekstra salg)"); got != 5299 {
			t.Errorf("extras line = %v, want 5299", got)
		}
	})

	t.Run("financing splits cash and loan", func(t *testing.T) {
		v := viewFor(models.SalesAgreement, models.Record{
			"Sales_Price":                   "270.000",
			"Has_Financing":                 true,
			"Financing_Down_Payment_Amount": "70.000",
		})
		s := Calculate(v, nil)
		if s.CashNow != 70000 || s.Loan != 200000 {
			t.Errorf("CashNow = %v, Loan = %v; want 70000 / 200000", s.CashNow, s.Loan)
		}
		if got := line(t, s, "Lånebeløb"); got != 200000 {
			t.Errorf("loan line = %v, want 200000", got)
		}
	})

	t.Run("trade below down payment reduces cash only", func(t *testing.T) {
		v := viewFor(models.SalesAgreement, models.Record{
			"Sales_Price":                   "270.000",
			"Has_Trade_In":                  true,
			"Trade_in_Price":                "50.000",
			"Trade_in_Finance_Remaining":    "10.000",
			"Trade_in_Usage_Type":           models.TradeInReduceDownPayment,
			"Has_Financing":                 true,
			"Financing_Down_Payment_Amount": "70.000",
		})
		s := Calculate(v, nil)
		if s.CashNow != 30000 {
			t.Errorf("CashNow = %v, want 70000 - 40000 trade value", s.CashNow)
		}
		if s.Loan != 200000 {
			t.Errorf("Loan = %v, want unchanged 200000", s.Loan)
		}
	})

	t.Run("trade above down payment also reduces loan", func(t *testing.T) {
		v := viewFor(models.SalesAgreement, models.Record{
			"Sales_Price":                   "270.000",
			"Has_Trade_In":                  true,
			"Trade_in_Price":                "100.000",
			"Trade_in_Usage_Type":           models.TradeInReduceDownPayment,
			"Has_Financing":                 true,
			"Financing_Down_Payment_Amount": "70.000",
		})
		s := Calculate(v, nil)
		if s.CashNow != 0 {
			t.Errorf("CashNow = %v, want 0", s.CashNow)
		}
		if s.Loan != 170000 {
			t.Errorf("Loan = %v, want 200000 - 30000 overflow", s.Loan)
		}
	})

	t.Run("down payment clamped to effective price", func(t *testing.T) {
		v := viewFor(models.SalesAgreement, models.Record{
			"Sales_Price":                   "50.000",
			"Has_Financing":                 true,
			"Financing_Down_Payment_Amount": "80.000",
		})
		s := Calculate(v, nil)
		if s.CashNow != 50000 || s.Loan != 0 {
			t.Errorf("CashNow = %v, Loan = %v; want 50000 / 0", s.CashNow, s.Loan)
		}
	})
}

func TestOverlayOverridesDealValues(t *testing.T) {
	v := viewFor(models.SalesAgreement, models.Record{"Sales_Price": "300.000"})
	v.Overlay.Set(FieldSalesPrice, "250.000")

	s := Calculate(v, nil)
	if s.CashNow != 250000 {
		t.Errorf("CashNow = %v, want the overlay's 250000", s.CashNow)
	}
}
