package pricing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotConfigured indicates that no rule or tier entry covers the requested
// combination. It signals a server-side pricing setup defect, not bad input.
var ErrNotConfigured = errors.New("pricing not configured")

// ErrUnsupportedCategory is returned for a category outside the closed set.
var ErrUnsupportedCategory = errors.New("unsupported client category")

// Resolver resolves the unit price for a client category, its annual revenue
// (nil when unknown, always nil for individuals) and a product type.
// Exactly one implementation is active per process, selected at startup.
type Resolver interface {
	UnitPrice(ctx context.Context, category Category, revenue *decimal.Decimal, product ProductType) (decimal.Decimal, error)
}
