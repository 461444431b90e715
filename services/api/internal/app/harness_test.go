package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/clock"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/pricing"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	store   *memory.Store
	ledger  *memory.Ledger
	clock   *clock.Manual
	events  *recordingPublisher
	intents IntentRepository
	locks   LockRepository

	lockMgr *LockManager
	svc     *IntentService
	convert *ConversionCoordinator
	reaper  *Reaper
}

type harnessOptions struct {
	wrapLedger  func(StockLedger) StockLedger
	wrapIntents func(IntentRepository) IntentRepository
	wrapLocks   func(LockRepository) LockRepository
}

func newHarness(t *testing.T, opts ...func(*harnessOptions)) *harness {
	t.Helper()

	var o harnessOptions
	for _, opt := range opts {
		opt(&o)
	}

	store := memory.NewStore()
	store.AddVariant(domain.Variant{ID: "v-ring", ProductID: "p-ring", UnitPrice: decimal.RequireFromString("1000.00"), TotalStock: 5})
	store.AddVariant(domain.Variant{ID: "v-chain", ProductID: "p-chain", UnitPrice: decimal.RequireFromString("250.50"), TotalStock: 2})
	store.AddVariant(domain.Variant{ID: "v-last", ProductID: "p-pendant", UnitPrice: decimal.RequireFromString("500.00"), TotalStock: 1})
	store.AddAddress("user-1", "addr-1")
	store.AddAddress("user-1", "addr-1b")
	store.AddAddress("user-2", "addr-2")

	var (
		ledger  StockLedger      = store.Ledger()
		intents IntentRepository = store
		locks   LockRepository   = store
	)
	if o.wrapLedger != nil {
		ledger = o.wrapLedger(ledger)
	}
	if o.wrapIntents != nil {
		intents = o.wrapIntents(intents)
	}
	if o.wrapLocks != nil {
		locks = o.wrapLocks(locks)
	}

	clk := clock.NewManual(testNow)
	events := &recordingPublisher{}
	lockMgr := NewLockManager(store, ledger, locks, store, clk)
	policy := PricingPolicy{
		Discounts: pricing.NewStaticDiscounts(map[string]int{"WELCOME10": 10}),
		Tax:       pricing.NewPercentTax(decimal.RequireFromString("0.03")),
		Shipping:  pricing.NewFlatShipping(decimal.NewFromInt(100), decimal.NewFromInt(2000)),
	}

	return &harness{
		store:   store,
		ledger:  store.Ledger(),
		clock:   clk,
		events:  events,
		intents: intents,
		locks:   locks,
		lockMgr: lockMgr,
		svc: NewIntentService(store, intents, locks, lockMgr, store, store, policy, clk,
			WithIntentEvents(events)),
		convert: NewConversionCoordinator(store, intents, store, lockMgr, clk,
			WithConversionEvents(events)),
		reaper: NewReaper(store, intents, locks, lockMgr, clk,
			WithReaperEvents(events), WithReaperBatchSize(10)),
	}
}

func (h *harness) level(t *testing.T, variantID string) domain.StockLevel {
	t.Helper()
	level, err := h.ledger.Level(context.Background(), variantID)
	require.NoError(t, err)
	return level
}

func (h *harness) createIntent(t *testing.T, userID, addressID string, items ...CartItem) CreateIntentResult {
	t.Helper()
	res, err := h.svc.CreateIntent(context.Background(), CreateIntentInput{
		UserID:            userID,
		Items:             items,
		ShippingAddressID: addressID,
	})
	require.NoError(t, err)
	return res
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.IntentEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.IntentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []domain.IntentEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.IntentEventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type failingCommitLedger struct {
	StockLedger
	variantID string
}

func (l failingCommitLedger) Commit(ctx context.Context, variantID string, qty int) error {
	if variantID == l.variantID {
		return domain.ErrStockCommitFailed
	}
	return l.StockLedger.Commit(ctx, variantID, qty)
}

type failingIntents struct {
	IntentRepository
	failFor map[string]bool
}

func (r failingIntents) GetIntentForUpdate(ctx context.Context, id string) (domain.OrderIntent, error) {
	if r.failFor[id] {
		return domain.OrderIntent{}, context.DeadlineExceeded
	}
	return r.IntentRepository.GetIntentForUpdate(ctx, id)
}

// droppingLocks loses the last converted lock, leaving a set that no longer matches the cart.
type droppingLocks struct {
	LockRepository
}

func (r droppingLocks) TransitionLocks(ctx context.Context, intentID string, to domain.LockStatus, at time.Time) ([]domain.InventoryLock, error) {
	moved, err := r.LockRepository.TransitionLocks(ctx, intentID, to, at)
	if err != nil || to != domain.LockStatusConverted || len(moved) == 0 {
		return moved, err
	}
	return moved[:len(moved)-1], nil
}

type fakeLease struct {
	ok       bool
	err      error
	released int
}

func (l *fakeLease) Acquire(context.Context) (bool, error) { return l.ok, l.err }

func (l *fakeLease) Release(context.Context) error {
	l.released++
	return nil
}
