// Package memory is an in-process store with row-level locking. A
// transaction holds every row it touches until it commits or rolls back,
// and a rollback restores each row to the state it had when first locked.
package memory

import (
	"context"
	"sync"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
)

type Store struct {
	// mu guards the maps themselves; row contents are guarded by row locks.
	mu        sync.RWMutex
	stock     map[string]*stockRow
	intents   map[string]*intentRow
	active    map[string]string
	variants  map[string]domain.Variant
	addresses map[string]string
}

func NewStore() *Store {
	return &Store{
		stock:     make(map[string]*stockRow),
		intents:   make(map[string]*intentRow),
		active:    make(map[string]string),
		variants:  make(map[string]domain.Variant),
		addresses: make(map[string]string),
	}
}

// rowLock is held by at most one transaction at a time.
type rowLock struct {
	sem chan struct{}
}

func newRowLock() rowLock {
	return rowLock{sem: make(chan struct{}, 1)}
}

type txKey struct{}

type memTx struct {
	held    map[*rowLock]struct{}
	order   []*rowLock
	restore []func()
}

func txFromContext(ctx context.Context) *memTx {
	tx, _ := ctx.Value(txKey{}).(*memTx)
	return tx
}

// WithTx runs fn in a transaction, joining the one already in ctx if present.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	tx := &memTx{held: make(map[*rowLock]struct{})}
	err := fn(context.WithValue(ctx, txKey{}, tx))
	if err != nil {
		tx.rollback()
	}
	tx.unlockAll()
	return err
}

// inTx gives single statements outside a transaction their own.
func (s *Store) inTx(ctx context.Context, fn func(tx *memTx) error) error {
	return s.WithTx(ctx, func(txCtx context.Context) error {
		return fn(txFromContext(txCtx))
	})
}

// lock acquires l for the transaction. snapshot runs only on first
// acquisition and returns the function that undoes the row's changes.
func (tx *memTx) lock(ctx context.Context, l *rowLock, snapshot func() func()) error {
	if _, ok := tx.held[l]; ok {
		return nil
	}
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	tx.held[l] = struct{}{}
	tx.order = append(tx.order, l)
	if snapshot != nil {
		tx.restore = append(tx.restore, snapshot())
	}
	return nil
}

// tryLock is lock without waiting.
func (tx *memTx) tryLock(l *rowLock, snapshot func() func()) bool {
	if _, ok := tx.held[l]; ok {
		return true
	}
	select {
	case l.sem <- struct{}{}:
	default:
		return false
	}
	tx.held[l] = struct{}{}
	tx.order = append(tx.order, l)
	if snapshot != nil {
		tx.restore = append(tx.restore, snapshot())
	}
	return true
}

func (tx *memTx) onRollback(fn func()) {
	tx.restore = append(tx.restore, fn)
}

func (tx *memTx) rollback() {
	for i := len(tx.restore) - 1; i >= 0; i-- {
		tx.restore[i]()
	}
	tx.restore = nil
}

func (tx *memTx) unlockAll() {
	for i := len(tx.order) - 1; i >= 0; i-- {
		<-tx.order[i].sem
	}
	tx.order = nil
	tx.held = nil
}
