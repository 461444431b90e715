package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	conn
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{conn{pool: pool}}
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	lines, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("encode order lines: %w", err)
	}

	const stmt = `
INSERT INTO orders (
	id, order_number, order_intent_id, user_id, lines,
	subtotal, discount_amount, tax_amount, shipping_charge, total_amount,
	discount_code, shipping_address_id, billing_address_id, payment_reference, created_at
)
VALUES ($1, $2, $3, $4, $5::jsonb, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10::numeric, $11, $12, $13, $14, $15)`

	_, err = r.exec(ctx, stmt,
		order.ID,
		order.OrderNumber,
		order.IntentID,
		order.UserID,
		string(lines),
		order.Subtotal.String(),
		order.DiscountAmount.String(),
		order.TaxAmount.String(),
		order.ShippingCharge.String(),
		order.TotalAmount.String(),
		order.DiscountCode,
		order.ShippingAddressID,
		order.BillingAddressID,
		order.PaymentReference,
		order.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIntentNoLongerValid
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetOrderByIntentID(ctx context.Context, intentID string) (*domain.Order, error) {
	const query = `
SELECT id, order_number, order_intent_id, user_id, lines,
	subtotal::text, discount_amount::text, tax_amount::text, shipping_charge::text, total_amount::text,
	discount_code, shipping_address_id, billing_address_id, payment_reference, created_at
FROM orders
WHERE order_intent_id = $1`

	var (
		o                                        domain.Order
		lines                                    []byte
		subtotal, discount, tax, shipping, total string
	)
	err := r.queryRow(ctx, query, intentID).Scan(
		&o.ID, &o.OrderNumber, &o.IntentID, &o.UserID, &lines,
		&subtotal, &discount, &tax, &shipping, &total,
		&o.DiscountCode, &o.ShippingAddressID, &o.BillingAddressID, &o.PaymentReference, &o.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := json.Unmarshal(lines, &o.Lines); err != nil {
		return nil, fmt.Errorf("decode order lines: %w", err)
	}
	amounts, err := parseAmounts(subtotal, discount, tax, shipping, total)
	if err != nil {
		return nil, err
	}
	o.Subtotal, o.DiscountAmount, o.TaxAmount, o.ShippingCharge, o.TotalAmount =
		amounts[0], amounts[1], amounts[2], amounts[3], amounts[4]
	return &o, nil
}
