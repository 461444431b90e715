package memory

import (
	"context"
	"fmt"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
)

type stockRow struct {
	lock   rowLock
	total  int
	locked int
}

// Ledger is the StockLedger view of a Store.
type Ledger struct {
	store *Store
}

func (s *Store) Ledger() *Ledger { return &Ledger{store: s} }

// Ensure seeds a counter row. Seeding is not undone by a rollback.
func (l *Ledger) Ensure(_ context.Context, variantID string, totalStock int) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	if _, ok := l.store.stock[variantID]; !ok {
		l.store.stock[variantID] = &stockRow{lock: newRowLock(), total: totalStock}
	}
	return nil
}

func (l *Ledger) row(variantID string) (*stockRow, error) {
	l.store.mu.RLock()
	defer l.store.mu.RUnlock()
	row, ok := l.store.stock[variantID]
	if !ok {
		return nil, domain.ErrVariantNotFound
	}
	return row, nil
}

func (l *Ledger) lockRow(ctx context.Context, tx *memTx, variantID string) (*stockRow, error) {
	row, err := l.row(variantID)
	if err != nil {
		return nil, err
	}
	err = tx.lock(ctx, &row.lock, func() func() {
		total, locked := row.total, row.locked
		return func() { row.total, row.locked = total, locked }
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (l *Ledger) TryReserve(ctx context.Context, variantID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, domain.ErrInvalidQuantity
	}
	reserved := false
	err := l.store.inTx(ctx, func(tx *memTx) error {
		row, err := l.lockRow(ctx, tx, variantID)
		if err != nil {
			return err
		}
		if row.total-row.locked < qty {
			return nil
		}
		row.locked += qty
		reserved = true
		return nil
	})
	return reserved, err
}

func (l *Ledger) Release(ctx context.Context, variantID string, qty int) error {
	return l.store.inTx(ctx, func(tx *memTx) error {
		row, err := l.lockRow(ctx, tx, variantID)
		if err != nil {
			if err == domain.ErrVariantNotFound {
				return nil
			}
			return err
		}
		row.locked -= qty
		if row.locked < 0 {
			row.locked = 0
		}
		return nil
	})
}

func (l *Ledger) Commit(ctx context.Context, variantID string, qty int) error {
	return l.store.inTx(ctx, func(tx *memTx) error {
		row, err := l.lockRow(ctx, tx, variantID)
		if err != nil {
			return err
		}
		if row.locked < qty {
			return fmt.Errorf("variant %s has %d locked, want %d: %w", variantID, row.locked, qty, domain.ErrStockCommitFailed)
		}
		row.locked -= qty
		row.total -= qty
		return nil
	})
}

func (l *Ledger) Level(ctx context.Context, variantID string) (domain.StockLevel, error) {
	var level domain.StockLevel
	err := l.store.inTx(ctx, func(tx *memTx) error {
		row, err := l.lockRow(ctx, tx, variantID)
		if err != nil {
			return err
		}
		level = domain.StockLevel{VariantID: variantID, Total: row.total, Locked: row.locked}
		return nil
	})
	return level, err
}
