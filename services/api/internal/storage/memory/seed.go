package memory

import (
	"fmt"
	"os"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Variants []struct {
		ID        string `yaml:"id"`
		ProductID string `yaml:"product_id"`
		UnitPrice string `yaml:"unit_price"`
		Stock     int    `yaml:"stock"`
	} `yaml:"variants"`
	Addresses []struct {
		ID     string `yaml:"id"`
		UserID string `yaml:"user_id"`
	} `yaml:"addresses"`
}

// LoadSeedFile reads variants and addresses from a YAML file.
func (s *Store) LoadSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	return s.LoadSeed(data)
}

func (s *Store) LoadSeed(data []byte) error {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}
	for _, v := range seed.Variants {
		if v.ID == "" {
			return fmt.Errorf("seed variant without id")
		}
		price, err := decimal.NewFromString(v.UnitPrice)
		if err != nil {
			return fmt.Errorf("seed variant %s: unit_price: %w", v.ID, err)
		}
		if v.Stock < 0 {
			return fmt.Errorf("seed variant %s: negative stock", v.ID)
		}
		s.AddVariant(domain.Variant{ID: v.ID, ProductID: v.ProductID, UnitPrice: price, TotalStock: v.Stock})
	}
	for _, a := range seed.Addresses {
		s.AddAddress(a.UserID, a.ID)
	}
	return nil
}
