package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntentStatus_CanTransitionTo(t *testing.T) {
	t.Parallel()

	all := []IntentStatus{
		IntentStatusDraft,
		IntentStatusCreated,
		IntentStatusExpired,
		IntentStatusConverted,
		IntentStatusCancelled,
	}
	allowed := map[[2]IntentStatus]bool{
		{IntentStatusDraft, IntentStatusCreated}:     true,
		{IntentStatusCreated, IntentStatusExpired}:   true,
		{IntentStatusCreated, IntentStatusCancelled}: true,
		{IntentStatusCreated, IntentStatusConverted}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]IntentStatus{from, to}]
			assert.Equalf(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestIntentStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, IntentStatusDraft.IsTerminal())
	assert.False(t, IntentStatusCreated.IsTerminal())
	assert.True(t, IntentStatusExpired.IsTerminal())
	assert.True(t, IntentStatusConverted.IsTerminal())
	assert.True(t, IntentStatusCancelled.IsTerminal())
	assert.False(t, IntentStatus("PAID").Valid())
}

func TestOrderIntent_ExpiredAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	intent := OrderIntent{ExpiresAt: now}

	assert.True(t, intent.ExpiredAt(now))
	assert.True(t, intent.ExpiredAt(now.Add(time.Second)))
	assert.False(t, intent.ExpiredAt(now.Add(-time.Second)))
}

func TestErrors_Is(t *testing.T) {
	t.Parallel()

	var err error = &InsufficientStockError{VariantID: "v-9"}
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.Contains(t, err.Error(), "v-9")

	var stockErr *InsufficientStockError
	assert.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "v-9", stockErr.VariantID)

	err = &TransitionError{From: IntentStatusConverted, To: IntentStatusCancelled}
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.False(t, errors.Is(err, ErrInsufficientStock))
}
