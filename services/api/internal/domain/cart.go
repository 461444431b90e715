package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one frozen line of a cart snapshot.
type CartLine struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartSnapshot is the immutable copy of a cart taken when an intent is created.
type CartSnapshot struct {
	Lines      []CartLine `json:"lines"`
	CapturedAt time.Time  `json:"captured_at"`
}

func (c CartSnapshot) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Total())
	}
	return total.Round(2)
}

// Canonical merges lines that share a variant and sorts them by variant id.
func (c CartSnapshot) Canonical() CartSnapshot {
	merged := make(map[string]CartLine, len(c.Lines))
	for _, line := range c.Lines {
		if existing, ok := merged[line.VariantID]; ok {
			existing.Quantity += line.Quantity
			merged[line.VariantID] = existing
			continue
		}
		merged[line.VariantID] = line
	}
	lines := make([]CartLine, 0, len(merged))
	for _, line := range merged {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].VariantID < lines[j].VariantID })
	return CartSnapshot{Lines: lines, CapturedAt: c.CapturedAt}
}

// Hash identifies the cart by variant and quantity only. Prices are left out so
// a price change between two checkout attempts still maps to the same cart.
func (c CartSnapshot) Hash() string {
	var b strings.Builder
	for _, line := range c.Canonical().Lines {
		fmt.Fprintf(&b, "%s|%d\n", line.VariantID, line.Quantity)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
