package domain

import "time"

type IntentEventType string

const (
	EventIntentCreated   IntentEventType = "intent.created"
	EventIntentCancelled IntentEventType = "intent.cancelled"
	EventIntentExpired   IntentEventType = "intent.expired"
	EventIntentConverted IntentEventType = "intent.converted"
)

// IntentEvent is published after an intent lifecycle change commits.
type IntentEvent struct {
	Type        IntentEventType `json:"type"`
	IntentID    string          `json:"intent_id"`
	UserID      string          `json:"user_id"`
	OrderID     string          `json:"order_id,omitempty"`
	TotalAmount string          `json:"total_amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func NewIntentEvent(t IntentEventType, intent OrderIntent, at time.Time) IntentEvent {
	return IntentEvent{
		Type:        t,
		IntentID:    intent.ID,
		UserID:      intent.UserID,
		OrderID:     intent.OrderID,
		TotalAmount: intent.TotalAmount.StringFixed(2),
		OccurredAt:  at,
	}
}
