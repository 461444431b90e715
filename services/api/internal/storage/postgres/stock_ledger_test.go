package postgres

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/testutil"
)

func TestStockLedger(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ledger := NewStockLedger(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("Ensure keeps the first total", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		if err := ledger.Ensure(ctx, "v-1", 5); err != nil {
			t.Fatalf("ensure: %v", err)
		}
		if err := ledger.Ensure(ctx, "v-1", 99); err != nil {
			t.Fatalf("ensure again: %v", err)
		}
		level, err := ledger.Level(ctx, "v-1")
		if err != nil {
			t.Fatalf("level: %v", err)
		}
		if level.Total != 5 || level.Locked != 0 {
			t.Fatalf("unexpected level: %+v", level)
		}
	})

	t.Run("reserve release commit", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		if err := ledger.Ensure(ctx, "v-1", 5); err != nil {
			t.Fatalf("ensure: %v", err)
		}

		ok, err := ledger.TryReserve(ctx, "v-1", 3)
		if err != nil || !ok {
			t.Fatalf("expected reserve to succeed, got ok=%v err=%v", ok, err)
		}
		ok, err = ledger.TryReserve(ctx, "v-1", 3)
		if err != nil || ok {
			t.Fatalf("expected reserve to be refused, got ok=%v err=%v", ok, err)
		}

		if err := ledger.Commit(ctx, "v-1", 2); err != nil {
			t.Fatalf("commit: %v", err)
		}
		level, err := ledger.Level(ctx, "v-1")
		if err != nil {
			t.Fatalf("level: %v", err)
		}
		if level.Total != 3 || level.Locked != 1 {
			t.Fatalf("unexpected level after commit: %+v", level)
		}

		if err := ledger.Release(ctx, "v-1", 10); err != nil {
			t.Fatalf("release: %v", err)
		}
		level, _ = ledger.Level(ctx, "v-1")
		if level.Locked != 0 || level.Available() != 3 {
			t.Fatalf("unexpected level after release: %+v", level)
		}

		if err := ledger.Commit(ctx, "v-1", 1); !errors.Is(err, domain.ErrStockCommitFailed) {
			t.Fatalf("expected ErrStockCommitFailed, got %v", err)
		}
	})

	t.Run("concurrent reserves never oversell", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		if err := ledger.Ensure(ctx, "v-1", 4); err != nil {
			t.Fatalf("ensure: %v", err)
		}

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := ledger.TryReserve(ctx, "v-1", 1)
				if err == nil && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		if wins.Load() != 4 {
			t.Fatalf("expected 4 reservations, got %d", wins.Load())
		}
		level, _ := ledger.Level(ctx, "v-1")
		if level.Locked != 4 {
			t.Fatalf("expected 4 locked, got %+v", level)
		}
	})
}
