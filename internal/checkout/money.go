package checkout

import (
	"frontdesk-service/internal/models"

	"github.com/shopspring/decimal"
)

// TotalsInput carries everything the totals computation depends on.
// DiscountPercentage and DiscountAmountFixed are mutually exclusive at
// input time; when both arrive set, the percentage wins. For tips the
// rule is symmetric the other way: a fixed amount wins over a percentage.
type TotalsInput struct {
	Services            []models.ServiceLineItem   `json:"services"`
	AdditionalProducts  []models.AdditionalProduct `json:"additional_products"`
	DiscountPercentage  decimal.Decimal            `json:"discount_percentage"`
	DiscountAmountFixed decimal.Decimal            `json:"discount_amount_fixed"`
	TipPercentage       decimal.Decimal            `json:"tip_percentage"`
	TipAmountFixed      decimal.Decimal            `json:"tip_amount_fixed"`
}

// TotalsBreakdown is a pure derived value, recomputed on every input
// change and never persisted.
type TotalsBreakdown struct {
	ServicesTotal  decimal.Decimal `json:"services_total"`
	ProductsTotal  decimal.Decimal `json:"products_total"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TipAmount      decimal.Decimal `json:"tip_amount"`
	Total          decimal.Decimal `json:"total"`
}

var hundred = decimal.NewFromInt(100)

// ComputeTotals turns the session's line items plus discount/tip inputs
// into a totals breakdown. The computation order is fixed:
// services, products, subtotal, discount, tip, total. The discount is
// clamped to the subtotal so a fixed amount larger than the bill can
// never produce a negative total.
func ComputeTotals(in TotalsInput) TotalsBreakdown {
	servicesTotal := decimal.Zero
	for _, svc := range in.Services {
		servicesTotal = servicesTotal.Add(svc.Price)
	}

	productsTotal := decimal.Zero
	for _, p := range in.AdditionalProducts {
		productsTotal = productsTotal.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Quantity))))
	}

	subtotal := servicesTotal.Add(productsTotal)

	var discount decimal.Decimal
	if in.DiscountPercentage.GreaterThan(decimal.Zero) {
		discount = subtotal.Mul(in.DiscountPercentage).Div(hundred)
	} else {
		discount = in.DiscountAmountFixed
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	afterDiscount := subtotal.Sub(discount)

	var tip decimal.Decimal
	if in.TipAmountFixed.GreaterThan(decimal.Zero) {
		tip = in.TipAmountFixed
	} else {
		tip = afterDiscount.Mul(in.TipPercentage).Div(hundred)
	}

	return TotalsBreakdown{
		ServicesTotal:  servicesTotal,
		ProductsTotal:  productsTotal,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TipAmount:      tip,
		Total:          afterDiscount.Add(tip),
	}
}

// SnapTipPercentage maps a requested tip percentage onto the preset
// menu. A value already on the menu comes back unchanged; anything else
// is treated as a custom tip and also comes back unchanged. The helper
// exists so the menu lives in one place for the UI contract.
func SnapTipPercentage(presets []int, pct decimal.Decimal) (decimal.Decimal, bool) {
	for _, p := range presets {
		if decimal.NewFromInt(int64(p)).Equal(pct) {
			return pct, true
		}
	}
	return pct, false
}
