package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/rvk/skycommerce/internal/client"
	"github.com/rvk/skycommerce/internal/common"
	"github.com/rvk/skycommerce/internal/pricing"
)

// Handler wires the cart service to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Register mounts cart routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/carts", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/{cartId}", h.Get)
		r.Post("/{cartId}/items", h.AddItems)
		r.Put("/{cartId}/items/{itemId}", h.UpdateQuantity)
		r.Delete("/{cartId}/items/{itemId}", h.RemoveItem)
	})
}

type addItem struct {
	ProductType string `json:"productType" validate:"required"`
	Quantity    int    `json:"quantity"`
}

type addItemsRequest struct {
	Items []addItem `json:"items" validate:"required,min=1,dive"`
}

// Quantity validation stays in the service so InvalidQuantity has one home.
type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// Create handles POST /carts?clientId=….
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	clientID := strings.TrimSpace(r.URL.Query().Get("clientId"))
	if clientID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "clientId query parameter is required", nil)
		return
	}
	view, err := h.Svc.Create(r.Context(), clientID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, view)
}

// Get handles GET /carts/{cartId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Get(r.Context(), chi.URLParam(r, "cartId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// AddItems handles POST /carts/{cartId}/items. Each entry is applied in
// order; a failure aborts the batch, leaving earlier entries applied.
func (h *Handler) AddItems(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartId")
	var payload addItemsRequest
	if !h.decode(w, r, &payload) {
		return
	}
	var view View
	for _, entry := range payload.Items {
		product, err := pricing.ParseProductType(entry.ProductType)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		view, err = h.Svc.AddItem(r.Context(), cartID, product, entry.Quantity)
		if err != nil {
			h.writeError(w, err)
			return
		}
	}
	common.JSONData(w, http.StatusOK, view)
}

// UpdateQuantity handles PUT /carts/{cartId}/items/{itemId}.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var payload updateQuantityRequest
	if !h.decode(w, r, &payload) {
		return
	}
	view, err := h.Svc.UpdateQuantity(r.Context(), chi.URLParam(r, "cartId"), chi.URLParam(r, "itemId"), payload.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// RemoveItem handles DELETE /carts/{cartId}/items/{itemId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "cartId"), chi.URLParam(r, "itemId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
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

// writeError maps domain errors onto the canonical error payload. A pricing
// gap is reported as an internal error: it indicates incomplete pricing
// setup, not bad caller input.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrItemNotFound), errors.Is(err, client.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, pricing.ErrUnsupportedCategory):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, pricing.ErrNotConfigured):
		common.JSONError(w, http.StatusInternalServerError, "PRICING_NOT_CONFIGURED", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}
