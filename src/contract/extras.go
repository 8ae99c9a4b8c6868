package contract

import (
	"errors"
	"strings"

	"github.com/carpal-dk/backoffice/src/models"
)

// SuccessFeeName is the canonical display name of the mandatory fee line.
// The legacy queue consumer matches on this exact string.
const SuccessFeeName = "Success Fee"

var (
	ErrExtraNameRequired   = errors.New("extra line requires a name")
	ErrExtraPriceInvalid   = errors.New("extra line price must be positive")
	ErrExtraIndexRange     = errors.New("extra line index out of range")
	ErrFeeLineImmutable    = errors.New("the fee line cannot be removed or renamed")
	ErrProductNotInCatalog = errors.New("product not found in external catalog")
)

// isFeeLineName reports whether a line name marks the mandatory fee row.
func isFeeLineName(name string) bool {
	n := strings.ToLower(name)
	return n == "sales fee" || n == "success fee"
}

// BuildExtrasFromInvoice converts the deal's raw invoice subform into priced
// line items, preserving row order. Rows without a resolvable product name
// are skipped, never fatal. For purchase agreements a mandatory Success Fee
// line is appended from the deal's fee field when no fee row already exists
// and the fee amount is positive.
func BuildExtrasFromInvoice(rows []models.DealInvoiceRow, catalog []models.Product, ct models.ContractType, deal *models.Deal) []models.ExtraItem {
	extras := make([]models.ExtraItem, 0, len(rows))
	for _, row := range rows {
		name, productID, embeddedCategory := resolveProduct(row["Product_Name"])
		if name == "" {
			name, _ = row["product_name"].(string)
		}
		if name == "" {
			continue
		}

		price := resolvePrice(row)
		category := embeddedCategory
		if category == "" {
			category, _ = row["Category"].(string)
		}
		if category == "" && productID != "" {
			for _, p := range catalog {
				if p.ID == productID {
					category = p.Category
					break
				}
			}
		}

		rowID, _ := row["id"].(string)
		if rowID == "" {
			rowID, _ = row["ID"].(string)
		}

		extras = append(extras, models.ExtraItem{
			Type:      models.ExtraSubform,
			Name:      name,
			Price:     price,
			Category:  category,
			ProductID: productID,
			RowID:     rowID,
		})
	}

	if ct == models.PurchaseAgreement && deal != nil {
		hasFeeLine := false
		for _, e := range extras {
			if isFeeLineName(e.Name) {
				hasFeeLine = true
				break
			}
		}
		if !hasFeeLine {
			fee := CoerceMoney(deal.Record[FieldDealerFee.APIName(ct)])
			if fee > 0 {
				extras = append(extras, models.ExtraItem{
					Type:  models.ExtraSuccessFee,
					Name:  SuccessFeeName,
					Price: fee,
				})
			}
		}
	}
	return extras
}

// resolveProduct reads the product reference of an invoice row, which is
// either an embedded object (name/display_value/id/Category) or a flat string.
func resolveProduct(v any) (name, productID, category string) {
	switch ref := v.(type) {
	case map[string]any:
		if s, ok := ref["name"].(string); ok && s != "" {
			name = s
		} else if s, ok := ref["display_value"].(string); ok {
			name = s
		}
		productID, _ = ref["id"].(string)
		category, _ = ref["Category"].(string)
	case string:
		name = ref
	}
	return
}

// resolvePrice takes the first coercible value among the price field aliases.
func resolvePrice(row models.DealInvoiceRow) float64 {
	for _, key := range []string{"Price", "price", "Amount"} {
		if v, ok := row[key]; ok && v != nil {
			return CoerceMoney(v)
		}
	}
	return 0
}

// AddCatalogExtra appends a line from the external product catalog.
func AddCatalogExtra(extras []models.ExtraItem, catalog []models.Product, productID string) ([]models.ExtraItem, error) {
	for _, p := range catalog {
		if p.ID == productID {
			return append(extras, models.ExtraItem{
				Type:      models.ExtraExternal,
				Name:      p.Name,
				Price:     p.UnitPrice,
				Category:  p.Category,
				ProductID: p.ID,
			}), nil
		}
	}
	return extras, ErrProductNotInCatalog
}

// AddCustomExtra appends an ad hoc line. Blank names and non-positive prices
// are rejected.
func AddCustomExtra(extras []models.ExtraItem, name string, price float64) ([]models.ExtraItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return extras, ErrExtraNameRequired
	}
	if price <= 0 {
		return extras, ErrExtraPriceInvalid
	}
	return append(extras, models.ExtraItem{
		Type:  models.ExtraCustom,
		Name:  name,
		Price: price,
	}), nil
}

// UpdateExtraPrice rewrites one line's price. Under a purchase agreement the
// fee line keeps its price from the deal's fee field and is not editable here.
func UpdateExtraPrice(extras []models.ExtraItem, ct models.ContractType, index int, price float64) ([]models.ExtraItem, error) {
	if index < 0 || index >= len(extras) {
		return extras, ErrExtraIndexRange
	}
	if ct == models.PurchaseAgreement && isFeeLineName(extras[index].Name) {
		return extras, ErrFeeLineImmutable
	}
	out := make([]models.ExtraItem, len(extras))
	copy(out, extras)
	out[index].Price = price
	return out, nil
}

// RemoveExtra drops one line. The fee line is non-removable under a purchase
// agreement.
func RemoveExtra(extras []models.ExtraItem, ct models.ContractType, index int) ([]models.ExtraItem, error) {
	if index < 0 || index >= len(extras) {
		return extras, ErrExtraIndexRange
	}
	if ct == models.PurchaseAgreement && isFeeLineName(extras[index].Name) {
		return extras, ErrFeeLineImmutable
	}
	out := make([]models.ExtraItem, 0, len(extras)-1)
	out = append(out, extras[:index]...)
	out = append(out, extras[index+1:]...)
	return out, nil
}
