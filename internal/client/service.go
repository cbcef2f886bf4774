package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service encapsulates client registry operations.
type Service struct {
	Store Store
	Log   zerolog.Logger
}

// CreateIndividual registers an individual client with a fresh id.
func (s *Service) CreateIndividual(ctx context.Context, firstName, lastName string) (Client, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return Client{}, fmt.Errorf("first and last name are required: %w", ErrInvalidInput)
	}
	c := Client{
		ID:        uuid.NewString(),
		Kind:      KindIndividual,
		FirstName: firstName,
		LastName:  lastName,
	}
	if err := s.Store.CreateClient(ctx, c); err != nil {
		return Client{}, fmt.Errorf("create individual client: %w", err)
	}
	s.Log.Info().Str("client_id", c.ID).Msg("created individual client")
	return c, nil
}

// CreateProfessional registers a professional client with a fresh id.
// Revenue is optional but must be non-negative when present.
func (s *Service) CreateProfessional(ctx context.Context, companyName, registrationNumber string, annualRevenue *decimal.Decimal, vatNumber string) (Client, error) {
	companyName = strings.TrimSpace(companyName)
	registrationNumber = strings.TrimSpace(registrationNumber)
	if companyName == "" || registrationNumber == "" {
		return Client{}, fmt.Errorf("company name and registration number are required: %w", ErrInvalidInput)
	}
	if annualRevenue != nil && annualRevenue.IsNegative() {
		return Client{}, fmt.Errorf("annual revenue %s must not be negative: %w", annualRevenue, ErrInvalidInput)
	}
	c := Client{
		ID:                 uuid.NewString(),
		Kind:               KindProfessional,
		CompanyName:        companyName,
		RegistrationNumber: registrationNumber,
		AnnualRevenue:      annualRevenue,
		VATNumber:          strings.TrimSpace(vatNumber),
	}
	if err := s.Store.CreateClient(ctx, c); err != nil {
		return Client{}, fmt.Errorf("create professional client: %w", err)
	}
	s.Log.Info().Str("client_id", c.ID).Msg("created professional client")
	return c, nil
}

// GetIndividual fetches an individual client by id.
func (s *Service) GetIndividual(ctx context.Context, id string) (Client, error) {
	return s.getKind(ctx, id, KindIndividual)
}

// GetProfessional fetches a professional client by id.
func (s *Service) GetProfessional(ctx context.Context, id string) (Client, error) {
	return s.getKind(ctx, id, KindProfessional)
}

func (s *Service) getKind(ctx context.Context, id string, kind Kind) (Client, error) {
	c, err := s.Store.GetClient(ctx, id)
	if err != nil {
		return Client{}, fmt.Errorf("client %s: %w", id, err)
	}
	if c.Kind != kind {
		return Client{}, fmt.Errorf("client %s is not %s: %w", id, kind, ErrWrongKind)
	}
	return c, nil
}

// UpdateIndividual replaces the mutable attributes of an individual client.
func (s *Service) UpdateIndividual(ctx context.Context, id, firstName, lastName string) (Client, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return Client{}, fmt.Errorf("first and last name are required: %w", ErrInvalidInput)
	}
	c, err := s.getKind(ctx, id, KindIndividual)
	if err != nil {
		return Client{}, err
	}
	c.FirstName = firstName
	c.LastName = lastName
	if err := s.Store.UpdateClient(ctx, c); err != nil {
		return Client{}, fmt.Errorf("update individual client %s: %w", id, err)
	}
	s.Log.Info().Str("client_id", id).Msg("updated individual client")
	return c, nil
}

// UpdateProfessional replaces the mutable attributes of a professional client.
func (s *Service) UpdateProfessional(ctx context.Context, id, companyName, registrationNumber string, annualRevenue *decimal.Decimal, vatNumber string) (Client, error) {
	companyName = strings.TrimSpace(companyName)
	registrationNumber = strings.TrimSpace(registrationNumber)
	if companyName == "" || registrationNumber == "" {
		return Client{}, fmt.Errorf("company name and registration number are required: %w", ErrInvalidInput)
	}
	if annualRevenue != nil && annualRevenue.IsNegative() {
		return Client{}, fmt.Errorf("annual revenue %s must not be negative: %w", annualRevenue, ErrInvalidInput)
	}
	c, err := s.getKind(ctx, id, KindProfessional)
	if err != nil {
		return Client{}, err
	}
	c.CompanyName = companyName
	c.RegistrationNumber = registrationNumber
	c.AnnualRevenue = annualRevenue
	c.VATNumber = strings.TrimSpace(vatNumber)
	if err := s.Store.UpdateClient(ctx, c); err != nil {
		return Client{}, fmt.Errorf("update professional client %s: %w", id, err)
	}
	s.Log.Info().Str("client_id", id).Msg("updated professional client")
	return c, nil
}

// ListIndividuals returns a page of individual clients and the total count.
func (s *Service) ListIndividuals(ctx context.Context, page, perPage int) ([]Client, int, error) {
	return s.list(ctx, KindIndividual, page, perPage)
}

// ListProfessionals returns a page of professional clients and the total count.
func (s *Service) ListProfessionals(ctx context.Context, page, perPage int) ([]Client, int, error) {
	return s.list(ctx, KindProfessional, page, perPage)
}

func (s *Service) list(ctx context.Context, kind Kind, page, perPage int) ([]Client, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	clients, total, err := s.Store.ListClients(ctx, kind, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s clients: %w", kind, err)
	}
	return clients, total, nil
}
