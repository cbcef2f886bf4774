package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Category classifies a client for pricing purposes.
type Category string

const (
	CategoryIndividual   Category = "INDIVIDUAL"
	CategoryProfessional Category = "PROFESSIONAL"
)

// ParseCategory validates a raw category value.
func ParseCategory(value string) (Category, error) {
	switch Category(value) {
	case CategoryIndividual, CategoryProfessional:
		return Category(value), nil
	}
	return "", fmt.Errorf("unknown client category %q", value)
}

// ProductType enumerates the sellable product kinds. The set is closed;
// anything outside it is rejected at the boundary.
type ProductType string

const (
	ProductHighEndPhone  ProductType = "HIGH_END_PHONE"
	ProductMidRangePhone ProductType = "MID_RANGE_PHONE"
	ProductLaptop        ProductType = "LAPTOP"
	ProductTablet        ProductType = "TABLET"
	ProductAccessory     ProductType = "ACCESSORY"
)

// ProductTypes lists every sellable product kind.
func ProductTypes() []ProductType {
	return []ProductType{
		ProductHighEndPhone,
		ProductMidRangePhone,
		ProductLaptop,
		ProductTablet,
		ProductAccessory,
	}
}

// ParseProductType validates a raw product type value.
func ParseProductType(value string) (ProductType, error) {
	switch ProductType(value) {
	case ProductHighEndPhone, ProductMidRangePhone, ProductLaptop, ProductTablet, ProductAccessory:
		return ProductType(value), nil
	}
	return "", fmt.Errorf("unknown product type %q", value)
}

// PriceRule is one pricing tier for a (category, product) pair. Bounds are
// open-ended when nil; the minimum is strictly exclusive and the maximum
// inclusive. The configured set for a (category, product) pair must be
// revenue-partitioned so that at most one rule matches any revenue value.
type PriceRule struct {
	ID                  int64            `json:"id"`
	Category            Category         `json:"category"`
	Product             ProductType      `json:"product"`
	MinRevenueExclusive *decimal.Decimal `json:"minRevenueExclusive,omitempty"`
	MaxRevenueInclusive *decimal.Decimal `json:"maxRevenueInclusive,omitempty"`
	Price               decimal.Decimal  `json:"price"`
}

// Matches reports whether the rule applies to the given category, product
// and revenue. Unknown revenue matches only rules with both bounds unset.
func (r PriceRule) Matches(category Category, revenue *decimal.Decimal, product ProductType) bool {
	if r.Category != category || r.Product != product {
		return false
	}
	if revenue == nil {
		return r.MinRevenueExclusive == nil && r.MaxRevenueInclusive == nil
	}
	if r.MinRevenueExclusive != nil && !revenue.GreaterThan(*r.MinRevenueExclusive) {
		return false
	}
	if r.MaxRevenueInclusive != nil && revenue.GreaterThan(*r.MaxRevenueInclusive) {
		return false
	}
	return true
}

func revenueString(revenue *decimal.Decimal) string {
	if revenue == nil {
		return "none"
	}
	return revenue.String()
}
