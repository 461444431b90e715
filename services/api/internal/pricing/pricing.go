// Package pricing holds the tax, shipping and discount rules applied when an
// order intent freezes its amounts.
package pricing

import (
	"context"
	"strings"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PercentTax charges a flat rate on the taxable amount.
type PercentTax struct {
	Rate decimal.Decimal
}

func NewPercentTax(rate decimal.Decimal) PercentTax {
	return PercentTax{Rate: rate}
}

func (t PercentTax) Tax(_ context.Context, taxable decimal.Decimal) (decimal.Decimal, error) {
	if !taxable.IsPositive() {
		return decimal.Zero, nil
	}
	return taxable.Mul(t.Rate).Round(2), nil
}

// FlatShipping charges Flat unless the order reaches FreeOver. A zero FreeOver
// always charges Flat.
type FlatShipping struct {
	Flat     decimal.Decimal
	FreeOver decimal.Decimal
}

func NewFlatShipping(flat, freeOver decimal.Decimal) FlatShipping {
	return FlatShipping{Flat: flat, FreeOver: freeOver}
}

func (s FlatShipping) Charge(_ context.Context, subtotal decimal.Decimal, _ string) (decimal.Decimal, error) {
	if s.FreeOver.IsPositive() && subtotal.GreaterThanOrEqual(s.FreeOver) {
		return decimal.Zero, nil
	}
	return s.Flat.Round(2), nil
}

// StaticDiscounts validates codes against a fixed table of percentages.
type StaticDiscounts struct {
	percent map[string]int
}

func NewStaticDiscounts(codes map[string]int) StaticDiscounts {
	percent := make(map[string]int, len(codes))
	for code, pct := range codes {
		percent[strings.ToUpper(code)] = pct
	}
	return StaticDiscounts{percent: percent}
}

func (d StaticDiscounts) Validate(_ context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	pct, ok := d.percent[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return decimal.Zero, domain.ErrInvalidDiscountCode
	}
	return subtotal.Mul(decimal.NewFromInt(int64(pct))).Div(hundred).Round(2), nil
}
