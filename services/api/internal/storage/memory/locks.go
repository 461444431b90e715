package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
)

func (s *Store) InsertLocks(ctx context.Context, locks []domain.InventoryLock) error {
	return s.inTx(ctx, func(tx *memTx) error {
		for _, lock := range locks {
			row, err := s.lockIntent(ctx, tx, lock.IntentID)
			if err != nil {
				return err
			}
			for _, existing := range row.locks {
				if existing.VariantID == lock.VariantID {
					return fmt.Errorf("insert lock: intent %s already locks variant %s", lock.IntentID, lock.VariantID)
				}
			}
			row.locks = append(row.locks, lock)
		}
		return nil
	})
}

func (s *Store) ListLocks(ctx context.Context, intentID string) ([]domain.InventoryLock, error) {
	var locks []domain.InventoryLock
	err := s.inTx(ctx, func(tx *memTx) error {
		row, err := s.lockIntent(ctx, tx, intentID)
		if err != nil {
			return err
		}
		locks = append([]domain.InventoryLock(nil), row.locks...)
		return nil
	})
	sortByVariant(locks)
	return locks, err
}

func (s *Store) TransitionLocks(ctx context.Context, intentID string, to domain.LockStatus, at time.Time) ([]domain.InventoryLock, error) {
	var moved []domain.InventoryLock
	err := s.inTx(ctx, func(tx *memTx) error {
		row, err := s.lockIntent(ctx, tx, intentID)
		if err != nil {
			return err
		}
		for i := range row.locks {
			if row.locks[i].Status != domain.LockStatusLocked {
				continue
			}
			closedAt := at
			row.locks[i].Status = to
			row.locks[i].ReleasedAt = &closedAt
			moved = append(moved, row.locks[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByVariant(moved)
	return moved, nil
}

// ListExpiredIntentIDs skips intents currently locked by another transaction;
// they are picked up by a later sweep.
func (s *Store) ListExpiredIntentIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	s.mu.RLock()
	rows := make([]*intentRow, 0, len(s.intents))
	for _, row := range s.intents {
		rows = append(rows, row)
	}
	s.mu.RUnlock()

	type candidate struct {
		id       string
		earliest time.Time
	}
	var found []candidate
	err := s.inTx(ctx, func(tx *memTx) error {
		for _, row := range rows {
			if !tx.tryLock(&row.lock, nil) || row.gone {
				continue
			}
			var earliest time.Time
			for _, lock := range row.locks {
				if lock.Status == domain.LockStatusLocked && lock.ExpiresAt.Before(now) {
					if earliest.IsZero() || lock.ExpiresAt.Before(earliest) {
						earliest = lock.ExpiresAt
					}
				}
			}
			if !earliest.IsZero() {
				found = append(found, candidate{id: row.intent.ID, earliest: earliest})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool {
		if !found[i].earliest.Equal(found[j].earliest) {
			return found[i].earliest.Before(found[j].earliest)
		}
		return found[i].id < found[j].id
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	ids := make([]string, len(found))
	for i, c := range found {
		ids[i] = c.id
	}
	return ids, nil
}

func sortByVariant(locks []domain.InventoryLock) {
	sort.Slice(locks, func(i, j int) bool { return locks[i].VariantID < locks[j].VariantID })
}
