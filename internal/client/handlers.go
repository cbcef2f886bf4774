package client

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/rvk/skycommerce/internal/common"
)

// Handler wires the client registry to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Register mounts client routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/clients", func(r chi.Router) {
		r.Post("/individual", h.CreateIndividual)
		r.Get("/individual", h.ListIndividuals)
		r.Get("/individual/{id}", h.GetIndividual)
		r.Put("/individual/{id}", h.UpdateIndividual)
		r.Post("/professional", h.CreateProfessional)
		r.Get("/professional", h.ListProfessionals)
		r.Get("/professional/{id}", h.GetProfessional)
		r.Put("/professional/{id}", h.UpdateProfessional)
	})
}

type individualRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
}

type professionalRequest struct {
	CompanyName        string           `json:"companyName" validate:"required"`
	RegistrationNumber string           `json:"registrationNumber" validate:"required"`
	AnnualRevenue      *decimal.Decimal `json:"annualRevenue"`
	VATNumber          string           `json:"vatNumber"`
}

// IndividualResponse is the public individual client payload.
type IndividualResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ProfessionalResponse is the public professional client payload.
type ProfessionalResponse struct {
	ID                 string           `json:"id"`
	CompanyName        string           `json:"companyName"`
	RegistrationNumber string           `json:"registrationNumber"`
	AnnualRevenue      *decimal.Decimal `json:"annualRevenue,omitempty"`
	VATNumber          string           `json:"vatNumber,omitempty"`
}

func toIndividualResponse(c Client) IndividualResponse {
	return IndividualResponse{ID: c.ID, FirstName: c.FirstName, LastName: c.LastName}
}

func toProfessionalResponse(c Client) ProfessionalResponse {
	return ProfessionalResponse{
		ID:                 c.ID,
		CompanyName:        c.CompanyName,
		RegistrationNumber: c.RegistrationNumber,
		AnnualRevenue:      c.AnnualRevenue,
		VATNumber:          c.VATNumber,
	}
}

// CreateIndividual handles POST /clients/individual.
func (h *Handler) CreateIndividual(w http.ResponseWriter, r *http.Request) {
	var payload individualRequest
	if !h.decode(w, r, &payload) {
		return
	}
	c, err := h.Svc.CreateIndividual(r.Context(), payload.FirstName, payload.LastName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, toIndividualResponse(c))
}

// CreateProfessional handles POST /clients/professional.
func (h *Handler) CreateProfessional(w http.ResponseWriter, r *http.Request) {
	var payload professionalRequest
	if !h.decode(w, r, &payload) {
		return
	}
	c, err := h.Svc.CreateProfessional(r.Context(), payload.CompanyName, payload.RegistrationNumber, payload.AnnualRevenue, payload.VATNumber)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, toProfessionalResponse(c))
}

// GetIndividual handles GET /clients/individual/{id}.
func (h *Handler) GetIndividual(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.GetIndividual(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, toIndividualResponse(c))
}

// GetProfessional handles GET /clients/professional/{id}.
func (h *Handler) GetProfessional(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.GetProfessional(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, toProfessionalResponse(c))
}

// UpdateIndividual handles PUT /clients/individual/{id}.
func (h *Handler) UpdateIndividual(w http.ResponseWriter, r *http.Request) {
	var payload individualRequest
	if !h.decode(w, r, &payload) {
		return
	}
	c, err := h.Svc.UpdateIndividual(r.Context(), chi.URLParam(r, "id"), payload.FirstName, payload.LastName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, toIndividualResponse(c))
}

// UpdateProfessional handles PUT /clients/professional/{id}.
func (h *Handler) UpdateProfessional(w http.ResponseWriter, r *http.Request) {
	var payload professionalRequest
	if !h.decode(w, r, &payload) {
		return
	}
	c, err := h.Svc.UpdateProfessional(r.Context(), chi.URLParam(r, "id"), payload.CompanyName, payload.RegistrationNumber, payload.AnnualRevenue, payload.VATNumber)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, toProfessionalResponse(c))
}

// ListIndividuals handles GET /clients/individual.
func (h *Handler) ListIndividuals(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	clients, total, err := h.Svc.ListIndividuals(r.Context(), page, perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]IndividualResponse, 0, len(clients))
	for _, c := range clients {
		out = append(out, toIndividualResponse(c))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       out,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

// ListProfessionals handles GET /clients/professional.
func (h *Handler) ListProfessionals(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	clients, total, err := h.Svc.ListProfessionals(r.Context(), page, perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]ProfessionalResponse, 0, len(clients))
	for _, c := range clients {
		out = append(out, toProfessionalResponse(c))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       out,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed JSON body", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return false
		}
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrWrongKind), errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}
