package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
)

// intentRow keeps an intent together with the lock rows and order it owns, so
// one row lock covers all three.
type intentRow struct {
	lock   rowLock
	gone   bool
	intent domain.OrderIntent
	locks  []domain.InventoryLock
	order  *domain.Order
}

func activeKey(userID, cartHash string) string {
	return userID + "|" + cartHash
}

func (s *Store) CreateIntent(ctx context.Context, intent domain.OrderIntent) error {
	return s.inTx(ctx, func(tx *memTx) error {
		key := activeKey(intent.UserID, intent.CartHash)
		row := &intentRow{lock: newRowLock(), intent: intent}

		s.mu.Lock()
		if _, exists := s.intents[intent.ID]; exists {
			s.mu.Unlock()
			return fmt.Errorf("create intent %s: duplicate id", intent.ID)
		}
		if intent.Status == domain.IntentStatusCreated {
			if _, taken := s.active[key]; taken {
				s.mu.Unlock()
				return domain.ErrIntentAlreadyActive
			}
			s.active[key] = intent.ID
		}
		tx.tryLock(&row.lock, nil)
		s.intents[intent.ID] = row
		s.mu.Unlock()

		tx.onRollback(func() {
			s.mu.Lock()
			delete(s.intents, intent.ID)
			if s.active[key] == intent.ID {
				delete(s.active, key)
			}
			s.mu.Unlock()
			row.gone = true
		})
		return nil
	})
}

func (s *Store) lockIntent(ctx context.Context, tx *memTx, id string) (*intentRow, error) {
	s.mu.RLock()
	row, ok := s.intents[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrIntentNotFound
	}
	if err := tx.lock(ctx, &row.lock, s.snapshotIntent(row)); err != nil {
		return nil, err
	}
	if row.gone {
		return nil, domain.ErrIntentNotFound
	}
	return row, nil
}

func (s *Store) snapshotIntent(row *intentRow) func() func() {
	return func() func() {
		intent := row.intent
		locks := append([]domain.InventoryLock(nil), row.locks...)
		order := row.order
		return func() {
			row.intent = intent
			row.locks = locks
			row.order = order
			s.reindex(row)
		}
	}
}

// reindex brings the active index in line with the row's status.
func (s *Store) reindex(row *intentRow) {
	key := activeKey(row.intent.UserID, row.intent.CartHash)
	s.mu.Lock()
	defer s.mu.Unlock()
	if row.intent.Status == domain.IntentStatusCreated && !row.gone {
		s.active[key] = row.intent.ID
		return
	}
	if s.active[key] == row.intent.ID {
		delete(s.active, key)
	}
}

func (s *Store) GetIntent(ctx context.Context, id string) (domain.OrderIntent, error) {
	var intent domain.OrderIntent
	err := s.inTx(ctx, func(tx *memTx) error {
		row, err := s.lockIntent(ctx, tx, id)
		if err != nil {
			return err
		}
		intent = row.intent
		return nil
	})
	return intent, err
}

// GetIntentForUpdate is GetIntent; inside a transaction the row stays locked until it ends.
func (s *Store) GetIntentForUpdate(ctx context.Context, id string) (domain.OrderIntent, error) {
	return s.GetIntent(ctx, id)
}

func (s *Store) FindActiveIntent(ctx context.Context, userID, cartHash string) (*domain.OrderIntent, error) {
	key := activeKey(userID, cartHash)
	s.mu.RLock()
	id, ok := s.active[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var found *domain.OrderIntent
	err := s.inTx(ctx, func(tx *memTx) error {
		row, err := s.lockIntent(ctx, tx, id)
		if err == domain.ErrIntentNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		// The owner may have moved on while we waited for the row.
		if row.intent.Status != domain.IntentStatusCreated ||
			activeKey(row.intent.UserID, row.intent.CartHash) != key {
			return nil
		}
		intent := row.intent
		found = &intent
		return nil
	})
	return found, err
}

func (s *Store) TransitionIntent(ctx context.Context, id string, from, to domain.IntentStatus, at time.Time) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, &domain.TransitionError{From: from, To: to}
	}
	moved := false
	err := s.inTx(ctx, func(tx *memTx) error {
		row, err := s.lockIntent(ctx, tx, id)
		if err != nil {
			return err
		}
		if row.intent.Status != from {
			return nil
		}
		row.intent.Status = to
		row.intent.UpdatedAt = at
		s.reindex(row)
		moved = true
		return nil
	})
	return moved, err
}

func (s *Store) SetOrderID(ctx context.Context, id, orderID string, at time.Time) error {
	return s.inTx(ctx, func(tx *memTx) error {
		row, err := s.lockIntent(ctx, tx, id)
		if err != nil {
			return err
		}
		row.intent.OrderID = orderID
		row.intent.UpdatedAt = at
		return nil
	})
}
