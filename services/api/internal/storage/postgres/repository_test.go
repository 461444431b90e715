package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func sampleIntent(userID string, now time.Time) domain.OrderIntent {
	cart := domain.CartSnapshot{
		Lines: []domain.CartLine{
			{ProductID: "p-1", VariantID: "v-1", Quantity: 2, UnitPrice: decimal.RequireFromString("1000.00")},
			{ProductID: "p-2", VariantID: "v-2", Quantity: 1, UnitPrice: decimal.RequireFromString("250.50")},
		},
		CapturedAt: now,
	}
	return domain.OrderIntent{
		ID:                uuid.NewString(),
		UserID:            userID,
		IntentNumber:      "INT-" + uuid.NewString()[:8],
		Status:            domain.IntentStatusCreated,
		Cart:              cart,
		CartHash:          cart.Hash(),
		Subtotal:          decimal.RequireFromString("2250.50"),
		DiscountAmount:    decimal.Zero,
		TaxAmount:         decimal.RequireFromString("67.52"),
		ShippingCharge:    decimal.Zero,
		TotalAmount:       decimal.RequireFromString("2318.02"),
		ShippingAddressID: "addr-1",
		BillingAddressID:  "addr-1",
		ExpiresAt:         now.Add(15 * time.Minute),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestIntentRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	tx := NewTransactor(pool)
	intents := NewIntentRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("create and read back", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		in := sampleIntent("user-1", now)
		if err := intents.CreateIntent(ctx, in); err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := intents.GetIntent(ctx, in.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != domain.IntentStatusCreated || got.CartHash != in.CartHash || got.OrderID != "" {
			t.Fatalf("unexpected intent: %+v", got)
		}
		if !got.TotalAmount.Equal(in.TotalAmount) || !got.TaxAmount.Equal(in.TaxAmount) {
			t.Fatalf("amounts changed: total=%s tax=%s", got.TotalAmount, got.TaxAmount)
		}
		if len(got.Cart.Lines) != 2 || !got.Cart.Lines[1].UnitPrice.Equal(decimal.RequireFromString("250.50")) {
			t.Fatalf("unexpected cart: %+v", got.Cart)
		}
		if !got.ExpiresAt.Equal(in.ExpiresAt) {
			t.Fatalf("expected expires_at %v, got %v", in.ExpiresAt, got.ExpiresAt)
		}
	})

	t.Run("second active intent for the same cart is refused", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		first := sampleIntent("user-1", now)
		if err := intents.CreateIntent(ctx, first); err != nil {
			t.Fatalf("create: %v", err)
		}
		second := sampleIntent("user-1", now)
		err := intents.CreateIntent(ctx, second)
		if !errors.Is(err, domain.ErrIntentAlreadyActive) {
			t.Fatalf("expected ErrIntentAlreadyActive, got %v", err)
		}

		other := sampleIntent("user-2", now)
		if err := intents.CreateIntent(ctx, other); err != nil {
			t.Fatalf("other user should not conflict: %v", err)
		}

		ok, err := intents.TransitionIntent(ctx, first.ID, domain.IntentStatusCreated, domain.IntentStatusCancelled, now)
		if err != nil || !ok {
			t.Fatalf("cancel first: ok=%v err=%v", ok, err)
		}
		if err := intents.CreateIntent(ctx, second); err != nil {
			t.Fatalf("expected create after cancel to succeed: %v", err)
		}
	})

	t.Run("FindActiveIntent", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		in := sampleIntent("user-1", now)
		if err := intents.CreateIntent(ctx, in); err != nil {
			t.Fatalf("create: %v", err)
		}

		err := tx.WithTx(ctx, func(txCtx context.Context) error {
			found, err := intents.FindActiveIntent(txCtx, "user-1", in.CartHash)
			if err != nil {
				return err
			}
			if found == nil || found.ID != in.ID {
				t.Fatalf("expected %s, got %+v", in.ID, found)
			}
			missing, err := intents.FindActiveIntent(txCtx, "user-1", "other-hash")
			if err != nil {
				return err
			}
			if missing != nil {
				t.Fatalf("expected nil, got %+v", missing)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}
	})

	t.Run("TransitionIntent is a compare-and-set", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		in := sampleIntent("user-1", now)
		if err := intents.CreateIntent(ctx, in); err != nil {
			t.Fatalf("create: %v", err)
		}

		ok, err := intents.TransitionIntent(ctx, in.ID, domain.IntentStatusCreated, domain.IntentStatusExpired, now)
		if err != nil || !ok {
			t.Fatalf("expected transition, got ok=%v err=%v", ok, err)
		}
		ok, err = intents.TransitionIntent(ctx, in.ID, domain.IntentStatusCreated, domain.IntentStatusConverted, now)
		if err != nil || ok {
			t.Fatalf("expected stale CAS to report false, got ok=%v err=%v", ok, err)
		}
		_, err = intents.TransitionIntent(ctx, in.ID, domain.IntentStatusExpired, domain.IntentStatusCreated, now)
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("lookup errors", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		_, err := intents.GetIntent(ctx, "00000000-0000-0000-0000-000000000001")
		if err != domain.ErrIntentNotFound {
			t.Fatalf("expected ErrIntentNotFound, got %v", err)
		}
		_, err = intents.GetIntent(ctx, "not-a-uuid")
		if err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
		err = intents.SetOrderID(ctx, "00000000-0000-0000-0000-000000000001", uuid.NewString(), now)
		if err != domain.ErrIntentNotFound {
			t.Fatalf("expected ErrIntentNotFound, got %v", err)
		}
	})
}

func TestLockRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	intents := NewIntentRepository(pool)
	locks := NewLockRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	newLocks := func(intent domain.OrderIntent, expiresAt time.Time) []domain.InventoryLock {
		out := make([]domain.InventoryLock, 0, len(intent.Cart.Lines))
		for _, line := range intent.Cart.Lines {
			out = append(out, domain.InventoryLock{
				ID:        uuid.NewString(),
				IntentID:  intent.ID,
				VariantID: line.VariantID,
				Quantity:  line.Quantity,
				Status:    domain.LockStatusLocked,
				LockedAt:  now,
				ExpiresAt: expiresAt,
			})
		}
		return out
	}

	t.Run("insert list transition", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		intent := sampleIntent("user-1", now)
		if err := intents.CreateIntent(ctx, intent); err != nil {
			t.Fatalf("create intent: %v", err)
		}
		if err := locks.InsertLocks(ctx, newLocks(intent, intent.ExpiresAt)); err != nil {
			t.Fatalf("insert locks: %v", err)
		}
		if err := locks.InsertLocks(ctx, newLocks(intent, intent.ExpiresAt)[:1]); err == nil {
			t.Fatalf("expected duplicate variant lock to fail")
		}

		listed, err := locks.ListLocks(ctx, intent.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(listed) != 2 || listed[0].VariantID != "v-1" || listed[1].VariantID != "v-2" {
			t.Fatalf("unexpected locks: %+v", listed)
		}
		if listed[0].ReleasedAt != nil {
			t.Fatalf("expected no released_at, got %v", listed[0].ReleasedAt)
		}

		moved, err := locks.TransitionLocks(ctx, intent.ID, domain.LockStatusReleased, now)
		if err != nil {
			t.Fatalf("transition: %v", err)
		}
		if len(moved) != 2 || moved[0].VariantID != "v-1" || moved[0].Status != domain.LockStatusReleased {
			t.Fatalf("unexpected moved locks: %+v", moved)
		}
		if moved[0].ReleasedAt == nil || !moved[0].ReleasedAt.Equal(now) {
			t.Fatalf("expected released_at %v, got %v", now, moved[0].ReleasedAt)
		}

		moved, err = locks.TransitionLocks(ctx, intent.ID, domain.LockStatusExpired, now)
		if err != nil {
			t.Fatalf("second transition: %v", err)
		}
		if len(moved) != 0 {
			t.Fatalf("expected no rows to move twice, got %+v", moved)
		}
	})

	t.Run("ListExpiredIntentIDs orders by earliest expiry", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		older := sampleIntent("user-1", now)
		newer := sampleIntent("user-2", now)
		live := sampleIntent("user-3", now)
		for _, in := range []domain.OrderIntent{older, newer, live} {
			if err := intents.CreateIntent(ctx, in); err != nil {
				t.Fatalf("create intent: %v", err)
			}
		}
		if err := locks.InsertLocks(ctx, newLocks(older, now.Add(-10*time.Minute))); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if err := locks.InsertLocks(ctx, newLocks(newer, now.Add(-time.Minute))); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if err := locks.InsertLocks(ctx, newLocks(live, now.Add(time.Minute))); err != nil {
			t.Fatalf("insert: %v", err)
		}

		ids, err := locks.ListExpiredIntentIDs(ctx, now, 10)
		if err != nil {
			t.Fatalf("list expired: %v", err)
		}
		if len(ids) != 2 || ids[0] != older.ID || ids[1] != newer.ID {
			t.Fatalf("unexpected ids: %v", ids)
		}

		ids, err = locks.ListExpiredIntentIDs(ctx, now, 1)
		if err != nil {
			t.Fatalf("list expired: %v", err)
		}
		if len(ids) != 1 || ids[0] != older.ID {
			t.Fatalf("expected limit to keep the oldest, got %v", ids)
		}
	})
}

func TestOrderRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	intents := NewIntentRepository(pool)
	orders := NewOrderRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	intent := sampleIntent("user-1", now)
	if err := intents.CreateIntent(ctx, intent); err != nil {
		t.Fatalf("create intent: %v", err)
	}

	got, err := orders.GetOrderByIntentID(ctx, intent.ID)
	if err != nil || got != nil {
		t.Fatalf("expected no order yet, got %+v err=%v", got, err)
	}

	order := domain.NewOrderFromIntent(uuid.NewString(), "ORD-1", intent, "pay_123", now)
	if err := orders.CreateOrder(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	got, err = orders.GetOrderByIntentID(ctx, intent.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got == nil || got.ID != order.ID || got.PaymentReference != "pay_123" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if len(got.Lines) != 2 || !got.TotalAmount.Equal(intent.TotalAmount) {
		t.Fatalf("order does not match intent: %+v", got)
	}

	dup := domain.NewOrderFromIntent(uuid.NewString(), "ORD-2", intent, "pay_456", now)
	if err := orders.CreateOrder(ctx, dup); !errors.Is(err, domain.ErrIntentNoLongerValid) {
		t.Fatalf("expected ErrIntentNoLongerValid, got %v", err)
	}
}

func TestCatalogRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	catalog := NewCatalogRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	testutil.InsertVariant(t, ctx, pool, "v-1", "p-1", "1299.50", 3)
	testutil.InsertAddress(t, ctx, pool, "user-1", "addr-1")

	v, err := catalog.GetVariant(ctx, "v-1")
	if err != nil {
		t.Fatalf("get variant: %v", err)
	}
	if v.ProductID != "p-1" || v.TotalStock != 3 || !v.UnitPrice.Equal(decimal.RequireFromString("1299.50")) {
		t.Fatalf("unexpected variant: %+v", v)
	}
	if _, err := catalog.GetVariant(ctx, "missing"); err != domain.ErrVariantNotFound {
		t.Fatalf("expected ErrVariantNotFound, got %v", err)
	}

	ok, err := catalog.OwnsAddress(ctx, "user-1", "addr-1")
	if err != nil || !ok {
		t.Fatalf("expected ownership, got ok=%v err=%v", ok, err)
	}
	ok, err = catalog.OwnsAddress(ctx, "user-2", "addr-1")
	if err != nil || ok {
		t.Fatalf("expected no ownership, got ok=%v err=%v", ok, err)
	}
}
