package memory

import (
	"context"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
)

func (s *Store) AddVariant(v domain.Variant) {
	s.mu.Lock()
	s.variants[v.ID] = v
	s.mu.Unlock()
}

func (s *Store) AddAddress(userID, addressID string) {
	s.mu.Lock()
	s.addresses[addressID] = userID
	s.mu.Unlock()
}

func (s *Store) GetVariant(_ context.Context, variantID string) (domain.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.variants[variantID]
	if !ok {
		return domain.Variant{}, domain.ErrVariantNotFound
	}
	return v, nil
}

func (s *Store) OwnsAddress(_ context.Context, userID, addressID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.addresses[addressID]
	return ok && owner == userID, nil
}
