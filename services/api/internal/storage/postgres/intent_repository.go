package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type IntentRepository struct {
	conn
}

func NewIntentRepository(pool *pgxpool.Pool) *IntentRepository {
	return &IntentRepository{conn{pool: pool}}
}

const intentColumns = `
id, user_id, intent_number, status, cart_snapshot, cart_hash,
subtotal::text, discount_amount::text, tax_amount::text, shipping_charge::text, total_amount::text,
discount_code, shipping_address_id, billing_address_id, COALESCE(order_id::text, ''),
expires_at, created_at, updated_at`

func (r *IntentRepository) CreateIntent(ctx context.Context, intent domain.OrderIntent) error {
	cart, err := json.Marshal(intent.Cart)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}

	// Losing the race for the active-cart index is reported, not raised, so
	// the surrounding transaction stays usable.
	const stmt = `
INSERT INTO order_intents (
	id, user_id, intent_number, status, cart_snapshot, cart_hash,
	subtotal, discount_amount, tax_amount, shipping_charge, total_amount,
	discount_code, shipping_address_id, billing_address_id,
	expires_at, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7::numeric, $8::numeric, $9::numeric, $10::numeric, $11::numeric, $12, $13, $14, $15, $16, $17)
ON CONFLICT (user_id, cart_hash) WHERE status = 'INTENT_CREATED' DO NOTHING`

	tag, err := r.exec(ctx, stmt,
		intent.ID,
		intent.UserID,
		intent.IntentNumber,
		string(intent.Status),
		string(cart),
		intent.CartHash,
		intent.Subtotal.String(),
		intent.DiscountAmount.String(),
		intent.TaxAmount.String(),
		intent.ShippingCharge.String(),
		intent.TotalAmount.String(),
		intent.DiscountCode,
		intent.ShippingAddressID,
		intent.BillingAddressID,
		intent.ExpiresAt,
		intent.CreatedAt,
		intent.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIntentAlreadyActive
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIntentAlreadyActive
	}
	return nil
}

func (r *IntentRepository) GetIntent(ctx context.Context, id string) (domain.OrderIntent, error) {
	return r.getIntent(ctx, `SELECT`+intentColumns+` FROM order_intents WHERE id = $1`, id)
}

func (r *IntentRepository) GetIntentForUpdate(ctx context.Context, id string) (domain.OrderIntent, error) {
	return r.getIntent(ctx, `SELECT`+intentColumns+` FROM order_intents WHERE id = $1 FOR UPDATE`, id)
}

func (r *IntentRepository) getIntent(ctx context.Context, query, id string) (domain.OrderIntent, error) {
	intent, err := scanIntent(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.OrderIntent{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OrderIntent{}, domain.ErrIntentNotFound
		}
		return domain.OrderIntent{}, fmt.Errorf("get intent: %w", err)
	}
	return intent, nil
}

func (r *IntentRepository) FindActiveIntent(ctx context.Context, userID, cartHash string) (*domain.OrderIntent, error) {
	query := `SELECT` + intentColumns + `
FROM order_intents
WHERE user_id = $1 AND cart_hash = $2 AND status = 'INTENT_CREATED'
FOR UPDATE`

	intent, err := scanIntent(r.queryRow(ctx, query, userID, cartHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active intent: %w", err)
	}
	return &intent, nil
}

func (r *IntentRepository) TransitionIntent(ctx context.Context, id string, from, to domain.IntentStatus, at time.Time) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, &domain.TransitionError{From: from, To: to}
	}
	const stmt = `UPDATE order_intents SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`

	tag, err := r.exec(ctx, stmt, id, string(from), string(to), at)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("transition intent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *IntentRepository) SetOrderID(ctx context.Context, id, orderID string, at time.Time) error {
	const stmt = `UPDATE order_intents SET order_id = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, orderID, at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set order id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIntentNotFound
	}
	return nil
}

func scanIntent(row pgx.Row) (domain.OrderIntent, error) {
	var (
		i                                        domain.OrderIntent
		status                                   string
		cart                                     []byte
		subtotal, discount, tax, shipping, total string
	)
	err := row.Scan(
		&i.ID, &i.UserID, &i.IntentNumber, &status, &cart, &i.CartHash,
		&subtotal, &discount, &tax, &shipping, &total,
		&i.DiscountCode, &i.ShippingAddressID, &i.BillingAddressID, &i.OrderID,
		&i.ExpiresAt, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return domain.OrderIntent{}, err
	}
	i.Status = domain.IntentStatus(status)
	if err := json.Unmarshal(cart, &i.Cart); err != nil {
		return domain.OrderIntent{}, fmt.Errorf("decode cart snapshot: %w", err)
	}
	amounts, err := parseAmounts(subtotal, discount, tax, shipping, total)
	if err != nil {
		return domain.OrderIntent{}, err
	}
	i.Subtotal, i.DiscountAmount, i.TaxAmount, i.ShippingCharge, i.TotalAmount =
		amounts[0], amounts[1], amounts[2], amounts[3], amounts[4]
	return i, nil
}

func parseAmounts(values ...string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", v, err)
		}
		out[i] = d
	}
	return out, nil
}
