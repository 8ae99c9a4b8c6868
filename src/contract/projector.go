package contract

import (
	"github.com/carpal-dk/backoffice/src/models"
	"github.com/carpal-dk/backoffice/src/utils"
)

// BuildInitialOverlay projects a freshly loaded deal into the editable
// field-set for the given contract type. It runs exactly once per successful
// deal load; afterwards edits go only into the overlay and are never
// re-derived from the deal.
func BuildInitialOverlay(deal *models.Deal, ct models.ContractType) *Overlay {
	o := NewOverlay()
	if deal == nil {
		return o
	}
	rec := deal.Record

	o.Set(FieldSalesPrice, CoerceMoney(rec[FieldSalesPrice.APIName(ct)]))
	o.Set(FieldDeliveryDate, utils.DateOnly(rec.Str(FieldDeliveryDate.APIName(ct))))
	o.Set(FieldHandoverText, CoerceString(rec[FieldHandoverText.APIName(ct)]))

	o.Set(FieldUnderFinance, CoerceBool(rec[FieldUnderFinance.APIName(ct)]))
	o.Set(FieldOutstandingFinance, CoerceMoney(rec[FieldOutstandingFinance.APIName(ct)]))
	o.Set(FieldFinanceBank, CoerceString(rec[FieldFinanceBank.APIName(ct)]))
	o.Set(FieldDealerFee, CoerceMoney(rec[FieldDealerFee.APIName(ct)]))

	o.Set(FieldHasTradeIn, CoerceBool(rec[FieldHasTradeIn.APIName(ct)]))
	o.Set(FieldTradeInPrice, CoerceMoney(rec[FieldTradeInPrice.APIName(ct)]))
	o.Set(FieldTradeInRemaining, CoerceMoney(rec[FieldTradeInRemaining.APIName(ct)]))
	usage := rec.Str(FieldTradeInUsage.APIName(ct))
	if usage == "" {
		usage = models.TradeInNotApplicable
	}
	o.Set(FieldTradeInUsage, usage)

	o.Set(FieldHasFinancing, CoerceBool(rec[FieldHasFinancing.APIName(ct)]))
	o.Set(FieldDownPayment, CoerceMoney(rec[FieldDownPayment.APIName(ct)]))
	o.Set(FieldFinancingAmount, CoerceMoney(rec[FieldFinancingAmount.APIName(ct)]))

	// Payment date is a text field in the CRM; values that are not a
	// recognizable datetime pass through untouched.
	payDate := rec.Str(FieldPaymentDate.APIName(ct))
	if d := utils.DateOnly(payDate); d != "" {
		payDate = d
	}
	o.Set(FieldPaymentDate, payDate)
	o.Set(FieldPaymentText, CoerceString(rec[FieldPaymentText.APIName(ct)]))
	o.Set(FieldExtraMessage, CoerceString(rec[FieldExtraMessage.APIName(ct)]))

	return o
}
