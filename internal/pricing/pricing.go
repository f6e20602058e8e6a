// Package pricing computes order totals. Every function here is pure.
package pricing

import (
	"github.com/shopspring/decimal"

	"stockpilot/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Line is one priced line item.
type Line struct {
	Quantity  int
	UnitPrice decimal.Decimal
}

type Discount struct {
	Type  model.DiscountType
	Value decimal.Decimal
}

type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ShippingFee    decimal.Decimal `json:"shipping_fee"`
	Total          decimal.Decimal `json:"total"`
}

// Compute returns subtotal, discount and total for the given lines.
// Quantities are validated by the caller; shipping below zero counts as zero.
func Compute(lines []Line, discount Discount, shippingFee decimal.Decimal) Totals {
	subtotal := Subtotal(lines)
	amount := DiscountAmount(subtotal, discount)
	shipping := decimal.Max(shippingFee, decimal.Zero).Round(2)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: amount,
		ShippingFee:    shipping,
		Total:          subtotal.Sub(amount).Add(shipping),
	}
}

func Subtotal(lines []Line) decimal.Decimal {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return subtotal.Round(2)
}

// DiscountAmount applies the discount to subtotal, clamped to [0, subtotal].
func DiscountAmount(subtotal decimal.Decimal, discount Discount) decimal.Decimal {
	var amount decimal.Decimal
	switch discount.Type {
	case model.DiscountPercentage:
		amount = subtotal.Mul(discount.Value).Div(hundred)
	case model.DiscountFixed:
		amount = discount.Value
	default:
		return decimal.Zero
	}
	return clamp(amount.Round(2), decimal.Zero, subtotal)
}

// CostLine is the quantity drawn from one cost layer (usually a batch).
type CostLine struct {
	Quantity int
	UnitCost decimal.Decimal
}

func CostOfGoods(lines []CostLine) decimal.Decimal {
	cogs := decimal.Zero
	for _, l := range lines {
		cogs = cogs.Add(l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return cogs.Round(2)
}

// Profit is net revenue minus cost of goods. Shipping is passed through to
// the carrier and is not revenue.
func Profit(t Totals, cogs decimal.Decimal) decimal.Decimal {
	return t.Subtotal.Sub(t.DiscountAmount).Sub(cogs)
}

// AverageUnitCost spreads cogs over quantity for the line item snapshot.
func AverageUnitCost(cogs decimal.Decimal, quantity int) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	return cogs.Div(decimal.NewFromInt(int64(quantity))).Round(2)
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
