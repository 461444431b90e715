package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LockRepository struct {
	conn
}

func NewLockRepository(pool *pgxpool.Pool) *LockRepository {
	return &LockRepository{conn{pool: pool}}
}

const lockColumns = `id, order_intent_id, variant_id, quantity, status, locked_at, expires_at, released_at`

func (r *LockRepository) InsertLocks(ctx context.Context, locks []domain.InventoryLock) error {
	const stmt = `
INSERT INTO inventory_locks (id, order_intent_id, variant_id, quantity, status, locked_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, l := range locks {
		_, err := r.exec(ctx, stmt, l.ID, l.IntentID, l.VariantID, l.Quantity, string(l.Status), l.LockedAt, l.ExpiresAt)
		if err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			if isUniqueViolation(err) {
				return fmt.Errorf("intent %s already locks variant %s: %w", l.IntentID, l.VariantID, err)
			}
			return fmt.Errorf("insert lock: %w", err)
		}
	}
	return nil
}

func (r *LockRepository) ListLocks(ctx context.Context, intentID string) ([]domain.InventoryLock, error) {
	rows, err := r.query(ctx, `SELECT `+lockColumns+` FROM inventory_locks WHERE order_intent_id = $1 ORDER BY variant_id`, intentID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list locks: %w", err)
	}
	locks, err := collectLocks(rows)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list locks: %w", err)
	}
	return locks, nil
}

func (r *LockRepository) TransitionLocks(ctx context.Context, intentID string, to domain.LockStatus, at time.Time) ([]domain.InventoryLock, error) {
	const stmt = `
UPDATE inventory_locks
SET status = $2, released_at = $3
WHERE order_intent_id = $1 AND status = 'LOCKED'
RETURNING ` + lockColumns

	rows, err := r.query(ctx, stmt, intentID, string(to), at)
	if err != nil {
		return nil, fmt.Errorf("transition locks: %w", err)
	}
	locks, err := collectLocks(rows)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("transition locks: %w", err)
	}
	sort.Slice(locks, func(i, j int) bool { return locks[i].VariantID < locks[j].VariantID })
	return locks, nil
}

func (r *LockRepository) ListExpiredIntentIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	const query = `
SELECT order_intent_id::text
FROM inventory_locks
WHERE status = 'LOCKED' AND expires_at < $1
GROUP BY order_intent_id
ORDER BY MIN(expires_at), order_intent_id
LIMIT $2`

	rows, err := r.query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired intents: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list expired intents: %w", err)
	}
	return ids, nil
}

func collectLocks(rows pgx.Rows) ([]domain.InventoryLock, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.InventoryLock, error) {
		var (
			l      domain.InventoryLock
			status string
		)
		err := row.Scan(&l.ID, &l.IntentID, &l.VariantID, &l.Quantity, &status, &l.LockedAt, &l.ExpiresAt, &l.ReleasedAt)
		l.Status = domain.LockStatus(status)
		return l, err
	})
}
