// Package pricing derives the final charge for one checkout attempt.
package pricing

import (
	"github.com/shopspring/decimal"

	"sellpage/page"
)

var hundred = decimal.NewFromInt(100)

// FinalAmount computes the GST-inclusive charge in rupees, rounded to the
// paisa. Precedence: selected product price, then the buyer-chosen amount
// (only when the page is pay-what-you-want), then the page's base price.
// A zero or missing base yields zero, which callers treat as a free claim.
func FinalAmount(cfg page.Config, selected *page.Product, custom *decimal.Decimal) decimal.Decimal {
	base := decimal.Zero

	switch {
	case selected != nil:
		base = selected.Price
	case cfg.Mode == page.BuyerChooses:
		if custom != nil {
			base = *custom
		}
	default:
		base = cfg.BasePrice
	}

	if base.IsNegative() {
		base = decimal.Zero
	}

	gst := base.Mul(cfg.GSTPercent).Div(hundred)
	return base.Add(gst).Round(2)
}

// MinorUnits converts a rupee amount to integer paise for the gateway.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// DiscountPercent computes the "percent off" badge for the optional discount
// price. The discount is display-only and is never itself charged. Returns 0
// when no meaningful discount is configured.
func DiscountPercent(cfg page.Config) int64 {
	if cfg.DiscountPrice == nil || !cfg.BasePrice.IsPositive() {
		return 0
	}
	off := decimal.NewFromInt(1).Sub(cfg.DiscountPrice.Div(cfg.BasePrice))
	return off.Round(2).Mul(hundred).IntPart()
}
