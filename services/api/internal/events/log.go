package events

import (
	"context"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/rs/zerolog"
)

// LogPublisher writes events to the service log when no broker is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event domain.IntentEvent) error {
	p.logger.Info().
		Str("event", string(event.Type)).
		Str("intent_id", event.IntentID).
		Str("user_id", event.UserID).
		Str("order_id", event.OrderID).
		Str("total_amount", event.TotalAmount).
		Time("occurred_at", event.OccurredAt).
		Msg("intent event")
	return nil
}
