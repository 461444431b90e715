package app

import (
	"context"
	"errors"
	"testing"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedIntent(t *testing.T, h *harness, id string) {
	t.Helper()
	require.NoError(t, h.store.CreateIntent(context.Background(), domain.OrderIntent{
		ID:        id,
		UserID:    "user-" + id,
		Status:    domain.IntentStatusCreated,
		CartHash:  id,
		ExpiresAt: testNow.Add(defaultHoldDuration),
	}))
}

func TestLockManager_AcquireAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	expires := testNow.Add(defaultHoldDuration)

	t.Run("locks every line in variant order", func(t *testing.T) {
		h := newHarness(t)
		seedIntent(t, h, "intent-1")

		locks, err := h.lockMgr.AcquireAll(ctx, "intent-1", []domain.CartLine{
			{VariantID: "v-ring", Quantity: 1},
			{VariantID: "v-chain", Quantity: 1},
			{VariantID: "v-ring", Quantity: 2},
		}, expires)
		require.NoError(t, err)
		require.Len(t, locks, 2)
		assert.Equal(t, "v-chain", locks[0].VariantID)
		assert.Equal(t, "v-ring", locks[1].VariantID)
		assert.Equal(t, 3, locks[1].Quantity)
		assert.Equal(t, domain.LockStatusLocked, locks[1].Status)
		assert.Equal(t, expires, locks[1].ExpiresAt)

		assert.Equal(t, 3, h.level(t, "v-ring").Locked)
		assert.Equal(t, 1, h.level(t, "v-chain").Locked)
	})

	t.Run("all or nothing when one line is short", func(t *testing.T) {
		h := newHarness(t)
		seedIntent(t, h, "intent-1")

		_, err := h.lockMgr.AcquireAll(ctx, "intent-1", []domain.CartLine{
			{VariantID: "v-chain", Quantity: 1},
			{VariantID: "v-ring", Quantity: 6},
		}, expires)

		var stockErr *domain.InsufficientStockError
		require.True(t, errors.As(err, &stockErr))
		assert.Equal(t, "v-ring", stockErr.VariantID)
		assert.Equal(t, 0, h.level(t, "v-chain").Locked)
		assert.Equal(t, 0, h.level(t, "v-ring").Locked)

		locks, err := h.store.ListLocks(ctx, "intent-1")
		require.NoError(t, err)
		assert.Empty(t, locks)
	})

	t.Run("unknown variant", func(t *testing.T) {
		h := newHarness(t)
		seedIntent(t, h, "intent-1")

		_, err := h.lockMgr.AcquireAll(ctx, "intent-1", []domain.CartLine{
			{VariantID: "v-ring", Quantity: 1},
			{VariantID: "v-zzz", Quantity: 1},
		}, expires)
		assert.ErrorIs(t, err, domain.ErrVariantNotFound)
		assert.Equal(t, 0, h.level(t, "v-ring").Locked)
	})

	t.Run("rejects bad quantities before touching stock", func(t *testing.T) {
		h := newHarness(t)
		seedIntent(t, h, "intent-1")

		_, err := h.lockMgr.AcquireAll(ctx, "intent-1", []domain.CartLine{{VariantID: "v-ring", Quantity: 0}}, expires)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
		_, err = h.lockMgr.AcquireAll(ctx, "intent-1", nil, expires)
		assert.ErrorIs(t, err, domain.ErrEmptyCart)
	})
}

func TestLockManager_ReleaseAllIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	seedIntent(t, h, "intent-1")
	seedIntent(t, h, "intent-2")

	_, err := h.lockMgr.AcquireAll(ctx, "intent-1", []domain.CartLine{{VariantID: "v-ring", Quantity: 2}}, testNow.Add(defaultHoldDuration))
	require.NoError(t, err)
	_, err = h.lockMgr.AcquireAll(ctx, "intent-2", []domain.CartLine{{VariantID: "v-ring", Quantity: 1}}, testNow.Add(defaultHoldDuration))
	require.NoError(t, err)

	released, err := h.lockMgr.ReleaseAll(ctx, "intent-1")
	require.NoError(t, err)
	assert.Equal(t, 2, released)

	released, err = h.lockMgr.ReleaseAll(ctx, "intent-1")
	require.NoError(t, err)
	assert.Equal(t, 0, released)

	// intent-2's lock is untouched by the repeated release.
	assert.Equal(t, 1, h.level(t, "v-ring").Locked)

	locks, err := h.store.ListLocks(ctx, "intent-1")
	require.NoError(t, err)
	require.Len(t, locks, 1)
	assert.Equal(t, domain.LockStatusReleased, locks[0].Status)
}

func TestLockManager_ConvertAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	seedIntent(t, h, "intent-1")

	_, err := h.lockMgr.AcquireAll(ctx, "intent-1", []domain.CartLine{
		{VariantID: "v-ring", Quantity: 2},
		{VariantID: "v-chain", Quantity: 1},
	}, testNow.Add(defaultHoldDuration))
	require.NoError(t, err)

	converted, err := h.lockMgr.ConvertAll(ctx, "intent-1")
	require.NoError(t, err)
	require.Len(t, converted, 2)

	assert.Equal(t, domain.StockLevel{VariantID: "v-ring", Total: 3, Locked: 0}, h.level(t, "v-ring"))
	assert.Equal(t, domain.StockLevel{VariantID: "v-chain", Total: 1, Locked: 0}, h.level(t, "v-chain"))

	released, err := h.lockMgr.ReleaseAll(ctx, "intent-1")
	require.NoError(t, err)
	assert.Equal(t, 0, released)
	assert.Equal(t, 3, h.level(t, "v-ring").Total)
}
