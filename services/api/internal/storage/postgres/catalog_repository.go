package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CatalogRepository reads variants and addresses owned by the catalog and
// account services.
type CatalogRepository struct {
	conn
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{conn{pool: pool}}
}

func (r *CatalogRepository) GetVariant(ctx context.Context, variantID string) (domain.Variant, error) {
	const query = `SELECT id, product_id, unit_price::text, stock FROM product_variants WHERE id = $1`

	var (
		v     domain.Variant
		price string
	)
	err := r.queryRow(ctx, query, variantID).Scan(&v.ID, &v.ProductID, &price, &v.TotalStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Variant{}, domain.ErrVariantNotFound
		}
		return domain.Variant{}, fmt.Errorf("get variant: %w", err)
	}
	if v.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return domain.Variant{}, fmt.Errorf("parse price for %s: %w", variantID, err)
	}
	return v, nil
}

func (r *CatalogRepository) OwnsAddress(ctx context.Context, userID, addressID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM addresses WHERE id = $1 AND user_id = $2)`

	var ok bool
	if err := r.queryRow(ctx, query, addressID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check address: %w", err)
	}
	return ok, nil
}
