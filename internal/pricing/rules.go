package pricing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rvk/skycommerce/internal/obs"
)

// RuleSource supplies the full configured price rule list. Rules are
// read-only at request time and managed out of band.
type RuleSource interface {
	PriceRules(ctx context.Context) ([]PriceRule, error)
}

// RuleResolver prices from an externally held rule set.
type RuleResolver struct {
	source RuleSource
	log    zerolog.Logger
}

// NewRuleResolver builds the store-driven pricing strategy.
func NewRuleResolver(source RuleSource, log zerolog.Logger) *RuleResolver {
	return &RuleResolver{source: source, log: log}
}

// UnitPrice implements Resolver. The first rule in scan order that matches
// wins; the store invariant guarantees at most one match.
func (r *RuleResolver) UnitPrice(ctx context.Context, category Category, revenue *decimal.Decimal, product ProductType) (price decimal.Decimal, err error) {
	defer func() { obs.ObservePriceResolution(string(category), err) }()
	if category != CategoryIndividual && category != CategoryProfessional {
		return decimal.Decimal{}, fmt.Errorf("category %q: %w", category, ErrUnsupportedCategory)
	}
	rules, err := r.source.PriceRules(ctx)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("load price rules: %w", err)
	}
	for _, rule := range rules {
		if rule.Matches(category, revenue, product) {
			r.log.Debug().
				Int64("rule_id", rule.ID).
				Str("product", string(product)).
				Str("price", rule.Price.String()).
				Msg("matched price rule")
			return rule.Price, nil
		}
	}
	return decimal.Decimal{}, fmt.Errorf("no price rule for category %s, product %s, revenue %s: %w",
		category, product, revenueString(revenue), ErrNotConfigured)
}
