package app

import (
	"context"
	"time"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/shopspring/decimal"
)

// Transactor runs fn inside a transaction. Nested calls join the outer transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// StockLedger holds per-variant total and locked counters.
type StockLedger interface {
	// Ensure seeds the counter row for a variant if it does not exist yet.
	Ensure(ctx context.Context, variantID string, totalStock int) error
	// TryReserve locks qty units when available, reporting false otherwise.
	TryReserve(ctx context.Context, variantID string, qty int) (bool, error)
	// Release gives back locked units. The locked counter never drops below zero.
	Release(ctx context.Context, variantID string, qty int) error
	// Commit turns locked units into sold units, decrementing both counters.
	Commit(ctx context.Context, variantID string, qty int) error
	Level(ctx context.Context, variantID string) (domain.StockLevel, error)
}

type LockRepository interface {
	InsertLocks(ctx context.Context, locks []domain.InventoryLock) error
	ListLocks(ctx context.Context, intentID string) ([]domain.InventoryLock, error)
	// TransitionLocks moves the intent's LOCKED rows to status and returns only
	// the rows this call moved, sorted by variant id.
	TransitionLocks(ctx context.Context, intentID string, to domain.LockStatus, at time.Time) ([]domain.InventoryLock, error)
	// ListExpiredIntentIDs returns intents owning LOCKED rows that expired before now.
	ListExpiredIntentIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
}

type IntentRepository interface {
	// CreateIntent returns domain.ErrIntentAlreadyActive when the user already
	// has an active intent for the same cart.
	CreateIntent(ctx context.Context, intent domain.OrderIntent) error
	GetIntent(ctx context.Context, id string) (domain.OrderIntent, error)
	GetIntentForUpdate(ctx context.Context, id string) (domain.OrderIntent, error)
	FindActiveIntent(ctx context.Context, userID, cartHash string) (*domain.OrderIntent, error)
	// TransitionIntent is a compare-and-set on status; false means the intent was not in from.
	TransitionIntent(ctx context.Context, id string, from, to domain.IntentStatus, at time.Time) (bool, error)
	SetOrderID(ctx context.Context, id, orderID string, at time.Time) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order domain.Order) error
	GetOrderByIntentID(ctx context.Context, intentID string) (*domain.Order, error)
}

type Catalog interface {
	GetVariant(ctx context.Context, variantID string) (domain.Variant, error)
}

type AddressBook interface {
	OwnsAddress(ctx context.Context, userID, addressID string) (bool, error)
}

type DiscountValidator interface {
	// Validate returns the discount amount for code applied to subtotal.
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, error)
}

type TaxCalculator interface {
	Tax(ctx context.Context, taxable decimal.Decimal) (decimal.Decimal, error)
}

type ShippingCalculator interface {
	Charge(ctx context.Context, subtotal decimal.Decimal, addressID string) (decimal.Decimal, error)
}

// EventPublisher receives lifecycle events after the owning transaction commits.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.IntentEvent) error
}

// SweepLease guards a reaper pass across instances.
type SweepLease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type Metrics interface {
	IntentCreated(reused bool)
	IntentClosed(status domain.IntentStatus)
	InsufficientStock()
	SweepCompleted(expired, released, failed int, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) IntentCreated(bool)                          {}
func (nopMetrics) IntentClosed(domain.IntentStatus)            {}
func (nopMetrics) InsufficientStock()                          {}
func (nopMetrics) SweepCompleted(int, int, int, time.Duration) {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.IntentEvent) error { return nil }
