package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/clock"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/app")

const (
	defaultHoldDuration = 15 * time.Minute
	maxCreateAttempts   = 3
)

// PricingPolicy groups the collaborators consulted once, when an intent is created.
type PricingPolicy struct {
	Discounts DiscountValidator
	Tax       TaxCalculator
	Shipping  ShippingCalculator
}

type IntentService struct {
	tx        Transactor
	intents   IntentRepository
	locks     LockRepository
	lockMgr   *LockManager
	catalog   Catalog
	addresses AddressBook
	pricing   PricingPolicy
	events    EventPublisher
	metrics   Metrics
	clock     clock.Clock
	logger    zerolog.Logger
	holdFor   time.Duration
}

type IntentServiceOption func(*IntentService)

// WithHoldDuration overrides how long new intents keep their stock locked.
func WithHoldDuration(d time.Duration) IntentServiceOption {
	return func(s *IntentService) {
		if d > 0 {
			s.holdFor = d
		}
	}
}

func WithIntentEvents(p EventPublisher) IntentServiceOption {
	return func(s *IntentService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithIntentMetrics(m Metrics) IntentServiceOption {
	return func(s *IntentService) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithIntentLogger(logger zerolog.Logger) IntentServiceOption {
	return func(s *IntentService) { s.logger = logger }
}

func NewIntentService(
	tx Transactor,
	intents IntentRepository,
	locks LockRepository,
	lockMgr *LockManager,
	catalog Catalog,
	addresses AddressBook,
	pricing PricingPolicy,
	clk clock.Clock,
	opts ...IntentServiceOption,
) *IntentService {
	svc := &IntentService{
		tx:        tx,
		intents:   intents,
		locks:     locks,
		lockMgr:   lockMgr,
		catalog:   catalog,
		addresses: addresses,
		pricing:   pricing,
		events:    nopPublisher{},
		metrics:   nopMetrics{},
		clock:     clk,
		logger:    zerolog.Nop(),
		holdFor:   defaultHoldDuration,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CartItem struct {
	VariantID string
	Quantity  int
}

type CreateIntentInput struct {
	UserID            string
	Items             []CartItem
	ShippingAddressID string
	BillingAddressID  string
	DiscountCode      string
}

type CreateIntentResult struct {
	Intent domain.OrderIntent
	Locks  []domain.InventoryLock
	// Reused is true when an equivalent active intent was returned instead of a new one.
	Reused bool
}

func (s *IntentService) CreateIntent(ctx context.Context, in CreateIntentInput) (CreateIntentResult, error) {
	ctx, span := tracer.Start(ctx, "IntentService.CreateIntent")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", in.UserID), attribute.Int("cart.items", len(in.Items)))

	result, err := s.createIntent(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CreateIntentResult{}, err
	}
	span.SetAttributes(attribute.String("intent.id", result.Intent.ID), attribute.Bool("intent.reused", result.Reused))
	return result, nil
}

func (s *IntentService) createIntent(ctx context.Context, in CreateIntentInput) (CreateIntentResult, error) {
	if err := s.validate(ctx, &in); err != nil {
		return CreateIntentResult{}, err
	}

	now := s.clock.Now()
	cart, err := s.snapshot(ctx, in.Items, now)
	if err != nil {
		return CreateIntentResult{}, err
	}
	pricing, err := s.price(ctx, cart, in)
	if err != nil {
		return CreateIntentResult{}, err
	}

	intent := domain.OrderIntent{
		ID:                newUUID(),
		UserID:            in.UserID,
		IntentNumber:      newIntentNumber(now),
		Status:            domain.IntentStatusCreated,
		Cart:              cart,
		CartHash:          cart.Hash(),
		Subtotal:          pricing.Subtotal,
		DiscountAmount:    pricing.DiscountAmount,
		TaxAmount:         pricing.TaxAmount,
		ShippingCharge:    pricing.ShippingCharge,
		TotalAmount:       pricing.TotalAmount,
		DiscountCode:      in.DiscountCode,
		ShippingAddressID: in.ShippingAddressID,
		BillingAddressID:  in.BillingAddressID,
		ExpiresAt:         now.Add(s.holdFor),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		var (
			result   CreateIntentResult
			stale    string
			lostRace bool
		)
		err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
			existing, err := s.intents.FindActiveIntent(txCtx, in.UserID, intent.CartHash)
			if err != nil {
				return err
			}
			if existing != nil {
				if existing.ExpiredAt(now) {
					stale = existing.ID
					return nil
				}
				if !sameCheckout(*existing, in) {
					return domain.ErrIntentAlreadyActive
				}
				locks, err := s.locks.ListLocks(txCtx, existing.ID)
				if err != nil {
					return err
				}
				result = CreateIntentResult{Intent: *existing, Locks: locks, Reused: true}
				return nil
			}

			if err := s.intents.CreateIntent(txCtx, intent); err != nil {
				lostRace = errors.Is(err, domain.ErrIntentAlreadyActive)
				return err
			}
			locks, err := s.lockMgr.AcquireAll(txCtx, intent.ID, intent.Cart.Lines, intent.ExpiresAt)
			if err != nil {
				return err
			}
			result = CreateIntentResult{Intent: intent, Locks: locks}
			return nil
		})

		switch {
		case err == nil && stale != "":
			// An overdue intent the reaper has not reached yet still owns the cart.
			if err := s.expireStale(ctx, stale); err != nil {
				return CreateIntentResult{}, err
			}
		case err == nil:
			s.metrics.IntentCreated(result.Reused)
			if !result.Reused {
				s.publish(ctx, domain.NewIntentEvent(domain.EventIntentCreated, result.Intent, now))
				s.logger.Info().
					Str("intent_id", result.Intent.ID).
					Str("user_id", result.Intent.UserID).
					Str("total", result.Intent.TotalAmount.StringFixed(2)).
					Msg("order intent created")
			}
			return result, nil
		case lostRace:
			// A concurrent request inserted the same cart first; the next pass reads it.
		default:
			return CreateIntentResult{}, err
		}
	}
	return CreateIntentResult{}, domain.ErrIntentAlreadyActive
}

func (s *IntentService) validate(ctx context.Context, in *CreateIntentInput) error {
	if strings.TrimSpace(in.UserID) == "" {
		return domain.ErrUserRequired
	}
	if len(in.Items) == 0 {
		return domain.ErrEmptyCart
	}
	for _, item := range in.Items {
		if item.VariantID == "" {
			return domain.ErrVariantNotFound
		}
		if item.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
	}

	if in.ShippingAddressID == "" {
		return domain.ErrInvalidAddress
	}
	if in.BillingAddressID == "" {
		in.BillingAddressID = in.ShippingAddressID
	}
	for _, id := range []string{in.ShippingAddressID, in.BillingAddressID} {
		ok, err := s.addresses.OwnsAddress(ctx, in.UserID, id)
		if err != nil {
			return fmt.Errorf("check address: %w", err)
		}
		if !ok {
			return domain.ErrInvalidAddress
		}
	}

	in.DiscountCode = strings.ToUpper(strings.TrimSpace(in.DiscountCode))
	return nil
}

// snapshot freezes the cart with catalog prices.
func (s *IntentService) snapshot(ctx context.Context, items []CartItem, now time.Time) (domain.CartSnapshot, error) {
	raw := domain.CartSnapshot{CapturedAt: now}
	for _, item := range items {
		raw.Lines = append(raw.Lines, domain.CartLine{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	cart := raw.Canonical()
	for i, line := range cart.Lines {
		variant, err := s.catalog.GetVariant(ctx, line.VariantID)
		if err != nil {
			return domain.CartSnapshot{}, err
		}
		cart.Lines[i].ProductID = variant.ProductID
		cart.Lines[i].UnitPrice = variant.UnitPrice
	}
	return cart, nil
}

func (s *IntentService) price(ctx context.Context, cart domain.CartSnapshot, in CreateIntentInput) (domain.Pricing, error) {
	subtotal := cart.Subtotal()

	discount := decimal.Zero
	if in.DiscountCode != "" {
		amount, err := s.pricing.Discounts.Validate(ctx, in.DiscountCode, subtotal)
		if err != nil {
			return domain.Pricing{}, err
		}
		discount = decimal.Min(amount, subtotal).Round(2)
		if discount.IsNegative() {
			discount = decimal.Zero
		}
	}

	taxable := subtotal.Sub(discount)
	tax, err := s.pricing.Tax.Tax(ctx, taxable)
	if err != nil {
		return domain.Pricing{}, fmt.Errorf("tax: %w", err)
	}
	shipping, err := s.pricing.Shipping.Charge(ctx, taxable, in.ShippingAddressID)
	if err != nil {
		return domain.Pricing{}, fmt.Errorf("shipping: %w", err)
	}
	tax, shipping = tax.Round(2), shipping.Round(2)

	return domain.Pricing{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		ShippingCharge: shipping,
		TotalAmount:    taxable.Add(tax).Add(shipping).Round(2),
	}, nil
}

func sameCheckout(existing domain.OrderIntent, in CreateIntentInput) bool {
	return existing.ShippingAddressID == in.ShippingAddressID &&
		existing.BillingAddressID == in.BillingAddressID &&
		existing.DiscountCode == in.DiscountCode
}

func (s *IntentService) expireStale(ctx context.Context, intentID string) error {
	var expired *domain.OrderIntent
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		intent, err := s.intents.GetIntentForUpdate(txCtx, intentID)
		if err != nil {
			return err
		}
		ok, _, err := expireIntent(txCtx, s.intents, s.lockMgr, intent, s.clock.Now())
		if err != nil {
			return err
		}
		if ok {
			expired = &intent
		}
		return nil
	})
	if err != nil {
		return err
	}
	if expired != nil {
		s.metrics.IntentClosed(domain.IntentStatusExpired)
		s.publish(ctx, domain.NewIntentEvent(domain.EventIntentExpired, *expired, s.clock.Now()))
	}
	return nil
}

// CancelIntent closes an active intent on behalf of its owner and frees its stock.
func (s *IntentService) CancelIntent(ctx context.Context, intentID, userID string) (domain.OrderIntent, error) {
	ctx, span := tracer.Start(ctx, "IntentService.CancelIntent")
	defer span.End()
	span.SetAttributes(attribute.String("intent.id", intentID))

	now := s.clock.Now()
	var intent domain.OrderIntent

	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.intents.GetIntentForUpdate(txCtx, intentID)
		if err != nil {
			return err
		}
		if current.UserID != userID {
			return domain.ErrIntentNotFound
		}
		if !current.Status.CanTransitionTo(domain.IntentStatusCancelled) {
			return &domain.TransitionError{From: current.Status, To: domain.IntentStatusCancelled}
		}

		ok, err := s.intents.TransitionIntent(txCtx, intentID, domain.IntentStatusCreated, domain.IntentStatusCancelled, now)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.TransitionError{From: current.Status, To: domain.IntentStatusCancelled}
		}
		if _, err := s.lockMgr.ReleaseAll(txCtx, intentID); err != nil {
			return err
		}

		current.Status = domain.IntentStatusCancelled
		current.UpdatedAt = now
		intent = current
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.OrderIntent{}, err
	}

	s.metrics.IntentClosed(domain.IntentStatusCancelled)
	s.publish(ctx, domain.NewIntentEvent(domain.EventIntentCancelled, intent, now))
	s.logger.Info().Str("intent_id", intentID).Msg("order intent cancelled")
	return intent, nil
}

type IntentView struct {
	Intent domain.OrderIntent
	Locks  domain.LockSummary
}

// GetIntent returns the intent with its locks. Intents owned by someone else read as not found.
func (s *IntentService) GetIntent(ctx context.Context, intentID, userID string) (IntentView, error) {
	intent, err := s.intents.GetIntent(ctx, intentID)
	if err != nil {
		return IntentView{}, err
	}
	if intent.UserID != userID {
		return IntentView{}, domain.ErrIntentNotFound
	}
	locks, err := s.locks.ListLocks(ctx, intentID)
	if err != nil {
		return IntentView{}, err
	}
	return IntentView{Intent: intent, Locks: domain.SummarizeLocks(locks)}, nil
}

func (s *IntentService) publish(ctx context.Context, event domain.IntentEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).
			Str("intent_id", event.IntentID).
			Str("event", string(event.Type)).
			Msg("publish intent event")
	}
}

// expireIntent moves an active intent to EXPIRED and frees its locks. It must
// run inside a transaction that holds the intent row. It reports whether the
// status changed and how many units went back to the pool.
func expireIntent(ctx context.Context, intents IntentRepository, lockMgr *LockManager, intent domain.OrderIntent, now time.Time) (bool, int, error) {
	if intent.Status != domain.IntentStatusCreated {
		return false, 0, nil
	}
	ok, err := intents.TransitionIntent(ctx, intent.ID, domain.IntentStatusCreated, domain.IntentStatusExpired, now)
	if err != nil || !ok {
		return false, 0, err
	}
	released, err := lockMgr.ExpireAll(ctx, intent.ID)
	if err != nil {
		return false, 0, err
	}
	return true, released, nil
}
