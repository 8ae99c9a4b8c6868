package contract

import (
	"math"

	"github.com/carpal-dk/backoffice/src/models"
)

// SettlementLine is one labeled amount of the settlement breakdown, in
// display order.
type SettlementLine struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// Settlement is the computed cash/loan breakdown for the current form state.
// Purchase agreements populate Total; sales agreements populate CashNow and,
// when financed, Loan.
type Settlement struct {
	Lines   []SettlementLine `json:"lines"`
	Total   float64          `json:"total,omitempty"`
	CashNow float64          `json:"cashNow,omitempty"`
	Loan    float64          `json:"loan,omitempty"`
}

// ExtrasSumForPurchase returns the fee line's price, or 0 when no fee line
// exists. Purchase settlements count nothing else from the extras list.
func ExtrasSumForPurchase(extras []models.ExtraItem) float64 {
	for _, e := range extras {
		if isFeeLineName(e.Name) {
			return e.Price
		}
	}
	return 0
}

// ExtrasSumForSales sums all extras. Sales settlements apply every line to
// the effective price, regardless of origin.
func ExtrasSumForSales(extras []models.ExtraItem) float64 {
	var sum float64
	for _, e := range extras {
		sum += e.Price
	}
	return sum
}

// Calculate computes the settlement for the current effective field values
// and extras. Pure: no I/O, safe to run on every state read.
func Calculate(v FieldView, extras []models.ExtraItem) Settlement {
	if v.ContractType == models.PurchaseAgreement {
		return calculatePurchase(v, extras)
	}
	return calculateSale(v, extras)
}

func calculatePurchase(v FieldView, extras []models.ExtraItem) Settlement {
	price := v.Money(FieldSalesPrice)
	underFinance := v.Bool(FieldUnderFinance)
	rest := v.Money(FieldOutstandingFinance)

	fee := ExtrasSumForPurchase(extras)
	if fee <= 0 {
		fee = v.Money(FieldDealerFee)
	}

	restDebt := 0.0
	if underFinance {
		restDebt = rest
	}
	total := price - restDebt - fee

	lines := []SettlementLine{{Label: "Salgspris", Amount: price}}
	if underFinance && rest > 0 {
		lines = append(lines, SettlementLine{Label: "Indfrielse af restgæld", Amount: -rest})
	}
	lines = append(lines,
		SettlementLine{Label: "CarPal Salær (Success Fee)", Amount: -fee},
		SettlementLine{Label: "KØBESUM (CarPal)", Amount: total},
	)

	return Settlement{Lines: lines, Total: total}
}

// calculateSale computes the sales-agreement settlement. Note the
// Reduce_Down_Payment branch only lowers the loan when the trade value
// exceeds the down payment; smaller trade values affect cash only.
func calculateSale(v FieldView, extras []models.ExtraItem) Settlement {
	salesPrice := v.Money(FieldSalesPrice)
	hasTrade := v.Bool(FieldHasTradeIn)
	tiPrice := v.Money(FieldTradeInPrice)
	tiDebt := v.Money(FieldTradeInRemaining)
	tiUsage := v.Str(FieldTradeInUsage)
	hasFin := v.Bool(FieldHasFinancing)
	dpAmount := v.Money(FieldDownPayment)

	tradeValue := tiPrice - tiDebt
	effectivePrice := salesPrice
	extraNegativeTrade := 0.0
	if hasTrade {
		switch {
		case tradeValue > 0 && tiUsage == models.TradeInReduceCarPrice:
			effectivePrice = salesPrice - tradeValue
		case tradeValue < 0 && tiUsage == models.TradeInAddToPrice:
			effectivePrice = salesPrice + math.Abs(tradeValue)
		case tradeValue < 0 && tiUsage == models.TradeInPaySeparate:
			extraNegativeTrade = math.Abs(tradeValue)
		}
	}

	extraSum := ExtrasSumForSales(extras)
	effectivePrice = math.Max(0, effectivePrice+extraSum)

	var loan, cashNow float64
	if hasFin {
		dp := math.Max(0, math.Min(dpAmount, effectivePrice))
		loan = math.Max(0, effectivePrice-dp)
		remainingCashDown := dp
		if hasTrade && tradeValue > 0 && tiUsage == models.TradeInReduceDownPayment {
			remainingCashDown = math.Max(0, dp-tradeValue)
			if tradeValue > dp {
				loan = math.Max(0, loan-(tradeValue-dp))
			}
		}
		cashNow = remainingCashDown + extraNegativeTrade
	} else {
		cashNow = effectivePrice + extraNegativeTrade
	}

	lines := []SettlementLine{{Label: "Salgspris", Amount: salesPrice}}
	if extraSum > 0 {
		lines = append(lines, SettlementLine{Label: "Extras (Ekstra salg)", Amount: extraSum})
	}
	if hasTrade {
		lines = append(lines,
			SettlementLine{Label: "Byttebilspris", Amount: tiPrice},
			SettlementLine{Label: "Pant i byttebil", Amount: -tiDebt},
			SettlementLine{Label: "Byttebil netto", Amount: tradeValue},
		)
	}
	lines = append(lines, SettlementLine{Label: "Kontant betaling nu", Amount: cashNow})
	if loan > 0 {
		lines = append(lines, SettlementLine{Label: "Lånebeløb", Amount: loan})
	}

	return Settlement{Lines: lines, CashNow: cashNow, Loan: loan}
}
