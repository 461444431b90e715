package memory

import (
	"context"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
)

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) error {
	return s.inTx(ctx, func(tx *memTx) error {
		row, err := s.lockIntent(ctx, tx, order.IntentID)
		if err != nil {
			return err
		}
		if row.order != nil {
			return domain.ErrIntentNoLongerValid
		}
		o := order
		row.order = &o
		return nil
	})
}

func (s *Store) GetOrderByIntentID(ctx context.Context, intentID string) (*domain.Order, error) {
	var order *domain.Order
	err := s.inTx(ctx, func(tx *memTx) error {
		row, err := s.lockIntent(ctx, tx, intentID)
		if err != nil {
			return err
		}
		if row.order != nil {
			o := *row.order
			order = &o
		}
		return nil
	})
	return order, err
}
