package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewOrderFromIntent(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	intent := OrderIntent{
		ID:     "intent-1",
		UserID: "user-1",
		Cart: CartSnapshot{Lines: []CartLine{
			{ProductID: "p-1", VariantID: "v-1", Quantity: 2, UnitPrice: decimal.RequireFromString("100.00")},
		}},
		Subtotal:          decimal.RequireFromString("200.00"),
		DiscountAmount:    decimal.RequireFromString("20.00"),
		TaxAmount:         decimal.RequireFromString("5.40"),
		ShippingCharge:    decimal.Zero,
		TotalAmount:       decimal.RequireFromString("185.40"),
		DiscountCode:      "TEN",
		ShippingAddressID: "addr-1",
		BillingAddressID:  "addr-2",
	}

	order := NewOrderFromIntent("order-1", "ORD-20250101-ABCDEF", intent, "pay-1", now)

	assert.Equal(t, "intent-1", order.IntentID)
	assert.Equal(t, intent.Cart.Lines, order.Lines)
	assert.True(t, order.TotalAmount.Equal(intent.TotalAmount))
	assert.Equal(t, "pay-1", order.PaymentReference)
	assert.Equal(t, "addr-2", order.BillingAddressID)

	intent.Cart.Lines[0].Quantity = 99
	assert.Equal(t, 2, order.Lines[0].Quantity)
}

func TestSummarizeLocks(t *testing.T) {
	t.Parallel()

	summary := SummarizeLocks([]InventoryLock{
		{VariantID: "v-1", Quantity: 2, Status: LockStatusLocked},
		{VariantID: "v-2", Quantity: 3, Status: LockStatusReleased},
		{VariantID: "v-3", Quantity: 1, Status: LockStatusLocked},
	})

	assert.Equal(t, 3, summary.LockedQuantity)
	assert.Equal(t, 3, summary.ClosedQuantity)
	assert.Len(t, summary.Locks, 3)
}
