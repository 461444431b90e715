package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order represents a confirmed purchase derived from an order intent.
type Order struct {
	ID                string
	OrderNumber       string
	IntentID          string
	UserID            string
	Lines             []CartLine
	Subtotal          decimal.Decimal
	DiscountAmount    decimal.Decimal
	TaxAmount         decimal.Decimal
	ShippingCharge    decimal.Decimal
	TotalAmount       decimal.Decimal
	DiscountCode      string
	ShippingAddressID string
	BillingAddressID  string
	PaymentReference  string
	CreatedAt         time.Time
}

// NewOrderFromIntent copies the intent's frozen snapshot and amounts; nothing is recomputed.
func NewOrderFromIntent(id, number string, intent OrderIntent, paymentRef string, now time.Time) Order {
	lines := make([]CartLine, len(intent.Cart.Lines))
	copy(lines, intent.Cart.Lines)
	return Order{
		ID:                id,
		OrderNumber:       number,
		IntentID:          intent.ID,
		UserID:            intent.UserID,
		Lines:             lines,
		Subtotal:          intent.Subtotal,
		DiscountAmount:    intent.DiscountAmount,
		TaxAmount:         intent.TaxAmount,
		ShippingCharge:    intent.ShippingCharge,
		TotalAmount:       intent.TotalAmount,
		DiscountCode:      intent.DiscountCode,
		ShippingAddressID: intent.ShippingAddressID,
		BillingAddressID:  intent.BillingAddressID,
		PaymentReference:  paymentRef,
		CreatedAt:         now,
	}
}
