package domain

import "github.com/shopspring/decimal"

// Variant is the catalog's view of a purchasable configuration.
type Variant struct {
	ID         string
	ProductID  string
	UnitPrice  decimal.Decimal
	TotalStock int
}

// StockLevel is the ledger's view of a variant's counters.
type StockLevel struct {
	VariantID string
	Total     int
	Locked    int
}

func (s StockLevel) Available() int {
	return s.Total - s.Locked
}
