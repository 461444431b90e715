package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/clock"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/rs/zerolog"
)

// LockManager acquires, releases and converts an intent's inventory locks
// against the stock ledger. Every operation joins the caller's transaction
// when there is one.
type LockManager struct {
	tx      Transactor
	ledger  StockLedger
	locks   LockRepository
	catalog Catalog
	clock   clock.Clock
	metrics Metrics
	logger  zerolog.Logger
}

type LockManagerOption func(*LockManager)

func WithLockMetrics(m Metrics) LockManagerOption {
	return func(l *LockManager) {
		if m != nil {
			l.metrics = m
		}
	}
}

func WithLockLogger(logger zerolog.Logger) LockManagerOption {
	return func(l *LockManager) { l.logger = logger }
}

func NewLockManager(tx Transactor, ledger StockLedger, locks LockRepository, catalog Catalog, clk clock.Clock, opts ...LockManagerOption) *LockManager {
	m := &LockManager{
		tx:      tx,
		ledger:  ledger,
		locks:   locks,
		catalog: catalog,
		clock:   clk,
		metrics: nopMetrics{},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AcquireAll reserves every line or none. Lines are merged per variant and
// reserved in ascending variant order.
func (m *LockManager) AcquireAll(ctx context.Context, intentID string, lines []domain.CartLine, expiresAt time.Time) ([]domain.InventoryLock, error) {
	canonical := domain.CartSnapshot{Lines: lines}.Canonical().Lines
	if len(canonical) == 0 {
		return nil, domain.ErrEmptyCart
	}
	for _, line := range canonical {
		if line.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
	}

	var acquired []domain.InventoryLock
	err := m.tx.WithTx(ctx, func(txCtx context.Context) error {
		reserved := make([]domain.CartLine, 0, len(canonical))
		for _, line := range canonical {
			ok, err := m.reserve(txCtx, line)
			if err != nil {
				m.compensate(txCtx, intentID, reserved)
				return err
			}
			if !ok {
				m.compensate(txCtx, intentID, reserved)
				m.metrics.InsufficientStock()
				return &domain.InsufficientStockError{VariantID: line.VariantID}
			}
			reserved = append(reserved, line)
		}

		now := m.clock.Now()
		locks := make([]domain.InventoryLock, 0, len(canonical))
		for _, line := range canonical {
			locks = append(locks, domain.InventoryLock{
				ID:        newUUID(),
				IntentID:  intentID,
				VariantID: line.VariantID,
				Quantity:  line.Quantity,
				Status:    domain.LockStatusLocked,
				LockedAt:  now,
				ExpiresAt: expiresAt,
			})
		}
		if err := m.locks.InsertLocks(txCtx, locks); err != nil {
			m.compensate(txCtx, intentID, reserved)
			return err
		}
		acquired = locks
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acquired, nil
}

func (m *LockManager) reserve(ctx context.Context, line domain.CartLine) (bool, error) {
	variant, err := m.catalog.GetVariant(ctx, line.VariantID)
	if err != nil {
		return false, err
	}
	if err := m.ledger.Ensure(ctx, variant.ID, variant.TotalStock); err != nil {
		return false, fmt.Errorf("ensure stock %s: %w", variant.ID, err)
	}
	ok, err := m.ledger.TryReserve(ctx, variant.ID, line.Quantity)
	if err != nil {
		return false, fmt.Errorf("reserve %s: %w", variant.ID, err)
	}
	return ok, nil
}

// compensate gives back what this call already reserved.
func (m *LockManager) compensate(ctx context.Context, intentID string, reserved []domain.CartLine) {
	for _, line := range reserved {
		if err := m.ledger.Release(ctx, line.VariantID, line.Quantity); err != nil {
			m.logger.Error().Err(err).
				Str("intent_id", intentID).
				Str("variant_id", line.VariantID).
				Msg("release after failed acquire")
		}
	}
}

// ReleaseAll returns the intent's still-locked stock to the pool. Calling it
// again releases nothing.
func (m *LockManager) ReleaseAll(ctx context.Context, intentID string) (int, error) {
	return m.close(ctx, intentID, domain.LockStatusReleased)
}

// ExpireAll is ReleaseAll for locks whose hold window ran out.
func (m *LockManager) ExpireAll(ctx context.Context, intentID string) (int, error) {
	return m.close(ctx, intentID, domain.LockStatusExpired)
}

func (m *LockManager) close(ctx context.Context, intentID string, to domain.LockStatus) (int, error) {
	released := 0
	err := m.tx.WithTx(ctx, func(txCtx context.Context) error {
		moved, err := m.locks.TransitionLocks(txCtx, intentID, to, m.clock.Now())
		if err != nil {
			return err
		}
		for _, lock := range moved {
			if err := m.ledger.Release(txCtx, lock.VariantID, lock.Quantity); err != nil {
				return fmt.Errorf("release %s: %w", lock.VariantID, err)
			}
			released += lock.Quantity
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}

// ConvertAll commits the intent's locked stock as sold and returns the locks it converted.
func (m *LockManager) ConvertAll(ctx context.Context, intentID string) ([]domain.InventoryLock, error) {
	var converted []domain.InventoryLock
	err := m.tx.WithTx(ctx, func(txCtx context.Context) error {
		moved, err := m.locks.TransitionLocks(txCtx, intentID, domain.LockStatusConverted, m.clock.Now())
		if err != nil {
			return err
		}
		for _, lock := range moved {
			if err := m.ledger.Commit(txCtx, lock.VariantID, lock.Quantity); err != nil {
				return fmt.Errorf("commit %s: %w", lock.VariantID, err)
			}
		}
		converted = moved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return converted, nil
}
