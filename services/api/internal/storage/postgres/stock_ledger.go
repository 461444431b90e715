package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StockLedger keeps per-variant counters in variant_stock. Each mutation is a
// single conditional UPDATE, so the row lock it takes serializes callers on
// the same variant until their transaction ends.
type StockLedger struct {
	conn
}

func NewStockLedger(pool *pgxpool.Pool) *StockLedger {
	return &StockLedger{conn{pool: pool}}
}

func (l *StockLedger) Ensure(ctx context.Context, variantID string, totalStock int) error {
	const stmt = `
INSERT INTO variant_stock (variant_id, total_stock)
VALUES ($1, $2)
ON CONFLICT (variant_id) DO NOTHING`

	if _, err := l.exec(ctx, stmt, variantID, totalStock); err != nil {
		return fmt.Errorf("ensure stock: %w", err)
	}
	return nil
}

func (l *StockLedger) TryReserve(ctx context.Context, variantID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, domain.ErrInvalidQuantity
	}
	const stmt = `
UPDATE variant_stock
SET locked_quantity = locked_quantity + $2, updated_at = NOW()
WHERE variant_id = $1 AND total_stock - locked_quantity >= $2`

	tag, err := l.exec(ctx, stmt, variantID, qty)
	if err != nil {
		return false, fmt.Errorf("reserve stock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (l *StockLedger) Release(ctx context.Context, variantID string, qty int) error {
	const stmt = `
UPDATE variant_stock
SET locked_quantity = GREATEST(locked_quantity - $2, 0), updated_at = NOW()
WHERE variant_id = $1`

	if _, err := l.exec(ctx, stmt, variantID, qty); err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	return nil
}

func (l *StockLedger) Commit(ctx context.Context, variantID string, qty int) error {
	const stmt = `
UPDATE variant_stock
SET locked_quantity = locked_quantity - $2, total_stock = total_stock - $2, updated_at = NOW()
WHERE variant_id = $1 AND locked_quantity >= $2`

	tag, err := l.exec(ctx, stmt, variantID, qty)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrStockCommitFailed
		}
		return fmt.Errorf("commit stock: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("variant %s: %w", variantID, domain.ErrStockCommitFailed)
	}
	return nil
}

func (l *StockLedger) Level(ctx context.Context, variantID string) (domain.StockLevel, error) {
	const query = `SELECT variant_id, total_stock, locked_quantity FROM variant_stock WHERE variant_id = $1`

	var level domain.StockLevel
	err := l.queryRow(ctx, query, variantID).Scan(&level.VariantID, &level.Total, &level.Locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StockLevel{}, domain.ErrVariantNotFound
		}
		return domain.StockLevel{}, fmt.Errorf("stock level: %w", err)
	}
	return level, nil
}
