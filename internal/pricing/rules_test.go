package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type staticSource struct {
	rules []PriceRule
	err   error
	calls int
}

func (s *staticSource) PriceRules(context.Context) ([]PriceRule, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.rules, nil
}

func testRules(t *testing.T) []PriceRule {
	t.Helper()
	threshold := decPtr(t, "10000000.00")
	return []PriceRule{
		{ID: 1, Category: CategoryIndividual, Product: ProductHighEndPhone, Price: dec(t, "1500.00")},
		{ID: 2, Category: CategoryIndividual, Product: ProductMidRangePhone, Price: dec(t, "800.00")},
		{ID: 3, Category: CategoryIndividual, Product: ProductLaptop, Price: dec(t, "1200.00")},
		{ID: 4, Category: CategoryProfessional, Product: ProductHighEndPhone, MaxRevenueInclusive: threshold, Price: dec(t, "1150.00")},
		{ID: 5, Category: CategoryProfessional, Product: ProductMidRangePhone, MaxRevenueInclusive: threshold, Price: dec(t, "600.00")},
		{ID: 6, Category: CategoryProfessional, Product: ProductLaptop, MaxRevenueInclusive: threshold, Price: dec(t, "1000.00")},
		{ID: 7, Category: CategoryProfessional, Product: ProductHighEndPhone, MinRevenueExclusive: threshold, Price: dec(t, "1000.00")},
		{ID: 8, Category: CategoryProfessional, Product: ProductMidRangePhone, MinRevenueExclusive: threshold, Price: dec(t, "550.00")},
		{ID: 9, Category: CategoryProfessional, Product: ProductLaptop, MinRevenueExclusive: threshold, Price: dec(t, "900.00")},
	}
}

func TestPriceRuleMatchBounds(t *testing.T) {
	threshold := decPtr(t, "10000000.00")
	lowRule := PriceRule{Category: CategoryProfessional, Product: ProductLaptop, MaxRevenueInclusive: threshold}
	highRule := PriceRule{Category: CategoryProfessional, Product: ProductLaptop, MinRevenueExclusive: threshold}

	atThreshold := decPtr(t, "10000000.00")
	if !lowRule.Matches(CategoryProfessional, atThreshold, ProductLaptop) {
		t.Fatal("revenue at the inclusive maximum should match the low rule")
	}
	if highRule.Matches(CategoryProfessional, atThreshold, ProductLaptop) {
		t.Fatal("revenue equal to the exclusive minimum must not match the high rule")
	}

	above := decPtr(t, "10000000.01")
	if lowRule.Matches(CategoryProfessional, above, ProductLaptop) {
		t.Fatal("revenue above the maximum must not match the low rule")
	}
	if !highRule.Matches(CategoryProfessional, above, ProductLaptop) {
		t.Fatal("revenue above the exclusive minimum should match the high rule")
	}
}

func TestPriceRuleMatchNilRevenue(t *testing.T) {
	threshold := decPtr(t, "10000000.00")
	lowRule := PriceRule{Category: CategoryProfessional, Product: ProductLaptop, MaxRevenueInclusive: threshold}
	highRule := PriceRule{Category: CategoryProfessional, Product: ProductLaptop, MinRevenueExclusive: threshold}
	openRule := PriceRule{Category: CategoryProfessional, Product: ProductLaptop}

	if lowRule.Matches(CategoryProfessional, nil, ProductLaptop) {
		t.Fatal("unknown revenue must not match a bounded rule")
	}
	if highRule.Matches(CategoryProfessional, nil, ProductLaptop) {
		t.Fatal("unknown revenue must not match a bounded rule")
	}
	if !openRule.Matches(CategoryProfessional, nil, ProductLaptop) {
		t.Fatal("unknown revenue should match the rule with both bounds unset")
	}
}

func TestRuleResolverResolvesTiers(t *testing.T) {
	r := NewRuleResolver(&staticSource{rules: testRules(t)}, zerolog.Nop())
	cases := []struct {
		category Category
		revenue  *decimal.Decimal
		product  ProductType
		want     string
	}{
		{CategoryIndividual, nil, ProductHighEndPhone, "1500.00"},
		{CategoryProfessional, decPtr(t, "123456.00"), ProductMidRangePhone, "600.00"},
		{CategoryProfessional, decPtr(t, "10000000.00"), ProductHighEndPhone, "1150.00"},
		{CategoryProfessional, decPtr(t, "20000000.00"), ProductHighEndPhone, "1000.00"},
	}
	for _, tc := range cases {
		price, err := r.UnitPrice(context.Background(), tc.category, tc.revenue, tc.product)
		if err != nil {
			t.Fatalf("unit price %s/%s: %v", tc.category, tc.product, err)
		}
		if !price.Equal(dec(t, tc.want)) {
			t.Fatalf("unit price %s/%s: got %s, want %s", tc.category, tc.product, price, tc.want)
		}
	}
}

func TestRuleResolverNoMatchingRule(t *testing.T) {
	r := NewRuleResolver(&staticSource{rules: testRules(t)}, zerolog.Nop())
	_, err := r.UnitPrice(context.Background(), CategoryIndividual, nil, ProductTablet)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	// Every professional rule here carries a bound, so unknown revenue is a
	// configuration gap rather than a silent tier pick.
	_, err = r.UnitPrice(context.Background(), CategoryProfessional, nil, ProductLaptop)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured for unknown revenue, got %v", err)
	}
}

func TestRuleResolverUnsupportedCategory(t *testing.T) {
	r := NewRuleResolver(&staticSource{rules: testRules(t)}, zerolog.Nop())
	_, err := r.UnitPrice(context.Background(), Category("WHOLESALE"), nil, ProductLaptop)
	if !errors.Is(err, ErrUnsupportedCategory) {
		t.Fatalf("expected ErrUnsupportedCategory, got %v", err)
	}
}

func TestRuleResolverSourceFailure(t *testing.T) {
	wantErr := errors.New("store down")
	r := NewRuleResolver(&staticSource{err: wantErr}, zerolog.Nop())
	_, err := r.UnitPrice(context.Background(), CategoryIndividual, nil, ProductLaptop)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected source error, got %v", err)
	}
}

// Both strategies must price identically for every configured combination
// with known revenue. (Unknown professional revenue is low tier in the
// static table but needs an unbounded rule in the store-driven form, so it
// is not part of the equivalence set.)
func TestStrategiesAgree(t *testing.T) {
	static := NewStaticResolver(testTable(t), zerolog.Nop())
	ruled := NewRuleResolver(&staticSource{rules: testRules(t)}, zerolog.Nop())

	revenues := []*decimal.Decimal{decPtr(t, "0.00"), decPtr(t, "9999999.99"), decPtr(t, "10000000.00"), decPtr(t, "10000000.01"), decPtr(t, "75000000.00")}
	products := []ProductType{ProductHighEndPhone, ProductMidRangePhone, ProductLaptop}

	for _, product := range products {
		a, errA := static.UnitPrice(context.Background(), CategoryIndividual, nil, product)
		b, errB := ruled.UnitPrice(context.Background(), CategoryIndividual, nil, product)
		if errA != nil || errB != nil {
			t.Fatalf("individual %s: static err %v, rule err %v", product, errA, errB)
		}
		if !a.Equal(b) {
			t.Fatalf("individual %s: static %s != rules %s", product, a, b)
		}
		for _, revenue := range revenues {
			a, errA := static.UnitPrice(context.Background(), CategoryProfessional, revenue, product)
			b, errB := ruled.UnitPrice(context.Background(), CategoryProfessional, revenue, product)
			if errA != nil || errB != nil {
				t.Fatalf("professional %s at %s: static err %v, rule err %v", product, revenueString(revenue), errA, errB)
			}
			if !a.Equal(b) {
				t.Fatalf("professional %s at %s: static %s != rules %s", product, revenueString(revenue), a, b)
			}
		}
	}
}
