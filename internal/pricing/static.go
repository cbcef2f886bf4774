package pricing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rvk/skycommerce/internal/obs"
)

// Table holds the config-driven pricing data: a flat price map for
// individuals and two revenue tiers for professionals. It is built once at
// startup and never mutated afterwards.
type Table struct {
	Individual   map[ProductType]decimal.Decimal
	Professional *ProfessionalTable
}

// ProfessionalTable groups the two professional revenue tiers.
type ProfessionalTable struct {
	Low  Tier
	High Tier
}

// Tier is a named pricing bracket bounded by optional revenue thresholds.
type Tier struct {
	MinRevenueExclusive *decimal.Decimal
	MaxRevenueInclusive *decimal.Decimal
	Products            map[ProductType]decimal.Decimal
}

// StaticResolver prices from an immutable Table.
type StaticResolver struct {
	table Table
	log   zerolog.Logger
}

// NewStaticResolver builds the config-driven pricing strategy.
func NewStaticResolver(table Table, log zerolog.Logger) *StaticResolver {
	return &StaticResolver{table: table, log: log}
}

// UnitPrice implements Resolver.
func (s *StaticResolver) UnitPrice(_ context.Context, category Category, revenue *decimal.Decimal, product ProductType) (price decimal.Decimal, err error) {
	defer func() { obs.ObservePriceResolution(string(category), err) }()
	switch category {
	case CategoryIndividual:
		price, ok := s.table.Individual[product]
		if !ok {
			return decimal.Decimal{}, fmt.Errorf("no individual price for product %s: %w", product, ErrNotConfigured)
		}
		return price, nil
	case CategoryProfessional:
		return s.professionalPrice(revenue, product)
	default:
		return decimal.Decimal{}, fmt.Errorf("category %q: %w", category, ErrUnsupportedCategory)
	}
}

func (s *StaticResolver) professionalPrice(revenue *decimal.Decimal, product ProductType) (decimal.Decimal, error) {
	pro := s.table.Professional
	if pro == nil {
		return decimal.Decimal{}, fmt.Errorf("no professional pricing for product %s: %w", product, ErrNotConfigured)
	}
	tier, name := selectTier(revenue, pro.Low, pro.High)
	price, ok := tier.Products[product]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no professional price for product %s at revenue %s (tier %s): %w",
			product, revenueString(revenue), name, ErrNotConfigured)
	}
	s.log.Debug().
		Str("product", string(product)).
		Str("revenue", revenueString(revenue)).
		Str("tier", name).
		Str("price", price.String()).
		Msg("resolved professional price")
	return price, nil
}

// selectTier picks the professional revenue tier. Unknown revenue and any
// gap in the configured bounds fall back to the low tier. Revenue equal to
// the low tier's upper bound stays low; only values strictly above the high
// tier's lower bound go high.
func selectTier(revenue *decimal.Decimal, low, high Tier) (Tier, string) {
	if revenue == nil {
		return low, "low"
	}
	if high.MinRevenueExclusive != nil && revenue.GreaterThan(*high.MinRevenueExclusive) {
		return high, "high"
	}
	if low.MaxRevenueInclusive != nil && revenue.LessThanOrEqual(*low.MaxRevenueInclusive) {
		return low, "low"
	}
	return low, "low"
}
