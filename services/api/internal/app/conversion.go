package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/clock"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ConversionCoordinator turns a paid intent into an order exactly once.
type ConversionCoordinator struct {
	tx      Transactor
	intents IntentRepository
	orders  OrderRepository
	lockMgr *LockManager
	events  EventPublisher
	metrics Metrics
	clock   clock.Clock
	logger  zerolog.Logger
}

type ConversionOption func(*ConversionCoordinator)

func WithConversionEvents(p EventPublisher) ConversionOption {
	return func(c *ConversionCoordinator) {
		if p != nil {
			c.events = p
		}
	}
}

func WithConversionMetrics(m Metrics) ConversionOption {
	return func(c *ConversionCoordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

func WithConversionLogger(logger zerolog.Logger) ConversionOption {
	return func(c *ConversionCoordinator) { c.logger = logger }
}

func NewConversionCoordinator(tx Transactor, intents IntentRepository, orders OrderRepository, lockMgr *LockManager, clk clock.Clock, opts ...ConversionOption) *ConversionCoordinator {
	c := &ConversionCoordinator{
		tx:      tx,
		intents: intents,
		orders:  orders,
		lockMgr: lockMgr,
		events:  nopPublisher{},
		metrics: nopMetrics{},
		clock:   clk,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ConvertInput struct {
	IntentID         string
	PaymentReference string
}

type ConvertResult struct {
	Order   domain.Order
	Created bool
}

// Convert creates the order for a confirmed payment. Replays for an already
// converted intent return the existing order with Created false.
func (c *ConversionCoordinator) Convert(ctx context.Context, in ConvertInput) (ConvertResult, error) {
	ctx, span := tracer.Start(ctx, "ConversionCoordinator.Convert")
	defer span.End()
	span.SetAttributes(attribute.String("intent.id", in.IntentID))

	if in.IntentID == "" {
		return ConvertResult{}, domain.ErrInvalidID
	}

	now := c.clock.Now()
	var (
		result  ConvertResult
		intent  domain.OrderIntent
		expired bool
	)

	err := c.tx.WithTx(ctx, func(txCtx context.Context) error {
		current, err := c.intents.GetIntentForUpdate(txCtx, in.IntentID)
		if err != nil {
			return err
		}
		intent = current

		switch current.Status {
		case domain.IntentStatusConverted:
			existing, err := c.orders.GetOrderByIntentID(txCtx, current.ID)
			if err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("converted intent %s has no order: %w", current.ID, domain.ErrOrderNotFound)
			}
			result = ConvertResult{Order: *existing, Created: false}
			return nil
		case domain.IntentStatusCreated:
		default:
			return domain.ErrIntentNoLongerValid
		}

		if current.ExpiredAt(now) {
			// The hold ran out before the reaper got here; expire it now and
			// keep that change even though the conversion is refused.
			ok, _, err := expireIntent(txCtx, c.intents, c.lockMgr, current, now)
			if err != nil {
				return err
			}
			expired = ok
			return nil
		}

		ok, err := c.intents.TransitionIntent(txCtx, current.ID, domain.IntentStatusCreated, domain.IntentStatusConverted, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrIntentNoLongerValid
		}

		order := domain.NewOrderFromIntent(newUUID(), newOrderNumber(now), current, in.PaymentReference, now)
		if err := c.orders.CreateOrder(txCtx, order); err != nil {
			return err
		}

		converted, err := c.lockMgr.ConvertAll(txCtx, current.ID)
		if err != nil {
			return err
		}
		if !locksMatchCart(converted, current.Cart) {
			return domain.ErrLockSetMismatch
		}

		if err := c.intents.SetOrderID(txCtx, current.ID, order.ID, now); err != nil {
			return err
		}
		intent.Status = domain.IntentStatusConverted
		intent.OrderID = order.ID
		result = ConvertResult{Order: order, Created: true}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, domain.ErrLockSetMismatch) || errors.Is(err, domain.ErrStockCommitFailed) {
			c.logger.Error().Err(err).Str("intent_id", in.IntentID).Msg("conversion rolled back")
		}
		return ConvertResult{}, err
	}

	if expired {
		c.metrics.IntentClosed(domain.IntentStatusExpired)
		intent.Status = domain.IntentStatusExpired
		c.publish(ctx, domain.NewIntentEvent(domain.EventIntentExpired, intent, now))
	}
	if result.Order.ID == "" {
		return ConvertResult{}, domain.ErrIntentNoLongerValid
	}

	if result.Created {
		c.metrics.IntentClosed(domain.IntentStatusConverted)
		c.publish(ctx, domain.NewIntentEvent(domain.EventIntentConverted, intent, now))
		c.logger.Info().
			Str("intent_id", intent.ID).
			Str("order_id", result.Order.ID).
			Str("payment_reference", in.PaymentReference).
			Msg("order intent converted")
	}
	span.SetAttributes(attribute.String("order.id", result.Order.ID), attribute.Bool("order.created", result.Created))
	return result, nil
}

func (c *ConversionCoordinator) publish(ctx context.Context, event domain.IntentEvent) {
	if err := c.events.Publish(ctx, event); err != nil {
		c.logger.Warn().Err(err).Str("intent_id", event.IntentID).Msg("publish intent event")
	}
}

// locksMatchCart reports whether the converted locks cover exactly the cart's lines.
func locksMatchCart(locks []domain.InventoryLock, cart domain.CartSnapshot) bool {
	lines := cart.Canonical().Lines
	if len(locks) != len(lines) {
		return false
	}
	byVariant := make(map[string]int, len(locks))
	for _, lock := range locks {
		byVariant[lock.VariantID] += lock.Quantity
	}
	for _, line := range lines {
		if byVariant[line.VariantID] != line.Quantity {
			return false
		}
	}
	return true
}
