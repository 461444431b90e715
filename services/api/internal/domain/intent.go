package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type IntentStatus string

const (
	IntentStatusDraft     IntentStatus = "DRAFT"
	IntentStatusCreated   IntentStatus = "INTENT_CREATED"
	IntentStatusExpired   IntentStatus = "EXPIRED"
	IntentStatusConverted IntentStatus = "CONVERTED"
	IntentStatusCancelled IntentStatus = "CANCELLED"
)

var intentTransitions = map[IntentStatus][]IntentStatus{
	IntentStatusDraft:   {IntentStatusCreated},
	IntentStatusCreated: {IntentStatusExpired, IntentStatusCancelled, IntentStatusConverted},
}

func (s IntentStatus) IsTerminal() bool {
	switch s {
	case IntentStatusExpired, IntentStatusConverted, IntentStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether s -> next is an edge of the intent state machine.
func (s IntentStatus) CanTransitionTo(next IntentStatus) bool {
	for _, allowed := range intentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s IntentStatus) Valid() bool {
	switch s {
	case IntentStatusDraft, IntentStatusCreated, IntentStatusExpired, IntentStatusConverted, IntentStatusCancelled:
		return true
	}
	return false
}

// OrderIntent is a frozen, time-bound proposal to buy a cart at a fixed price.
type OrderIntent struct {
	ID           string
	UserID       string
	IntentNumber string
	Status       IntentStatus

	Cart     CartSnapshot
	CartHash string

	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingCharge decimal.Decimal
	TotalAmount    decimal.Decimal
	DiscountCode   string

	ShippingAddressID string
	BillingAddressID  string

	// OrderID is set once the intent converts.
	OrderID string

	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Pricing is the set of amounts computed once at intent creation.
type Pricing struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingCharge decimal.Decimal
	TotalAmount    decimal.Decimal
}

func (i OrderIntent) Pricing() Pricing {
	return Pricing{
		Subtotal:       i.Subtotal,
		DiscountAmount: i.DiscountAmount,
		TaxAmount:      i.TaxAmount,
		ShippingCharge: i.ShippingCharge,
		TotalAmount:    i.TotalAmount,
	}
}

// ExpiredAt reports whether the hold window has closed at now.
func (i OrderIntent) ExpiredAt(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}
