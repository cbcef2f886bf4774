package client

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/rvk/skycommerce/internal/pricing"
)

// Kind tags the client variant.
type Kind string

const (
	KindIndividual   Kind = "individual"
	KindProfessional Kind = "professional"
)

// ErrNotFound indicates the requested client could not be located.
var ErrNotFound = errors.New("client not found")

// ErrWrongKind is returned when an id resolves to the other client variant.
var ErrWrongKind = errors.New("client kind mismatch")

// ErrInvalidInput is returned when the provided attributes are invalid.
var ErrInvalidInput = errors.New("invalid input")

// Client is a tagged variant. Individual fields are populated for
// KindIndividual, professional fields for KindProfessional. Identity is
// immutable once assigned; clients are never deleted.
type Client struct {
	ID   string
	Kind Kind

	FirstName string
	LastName  string

	CompanyName        string
	RegistrationNumber string
	AnnualRevenue      *decimal.Decimal
	VATNumber          string
}

// Category derives the pricing category from the variant tag. It is never
// stored redundantly.
func (c Client) Category() pricing.Category {
	if c.Kind == KindProfessional {
		return pricing.CategoryProfessional
	}
	return pricing.CategoryIndividual
}

// Revenue returns the annual revenue used for tier selection, nil when
// unknown. Individuals never carry revenue.
func (c Client) Revenue() *decimal.Decimal {
	if c.Kind != KindProfessional {
		return nil
	}
	return c.AnnualRevenue
}

// Store persists clients keyed by id.
type Store interface {
	CreateClient(ctx context.Context, c Client) error
	GetClient(ctx context.Context, id string) (Client, error)
	UpdateClient(ctx context.Context, c Client) error
	ListClients(ctx context.Context, kind Kind, limit, offset int) ([]Client, int, error)
}
