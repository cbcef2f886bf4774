package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rvk/skycommerce/internal/client"
	"github.com/rvk/skycommerce/internal/obs"
	"github.com/rvk/skycommerce/internal/pricing"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrItemNotFound indicates the referenced line item is not in the cart.
var ErrItemNotFound = errors.New("cart item not found")

// ErrInvalidQuantity is returned for non-positive quantities.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// Item is one product-type line in a cart. A cart holds at most one line
// per product type.
type Item struct {
	ID       string
	Product  pricing.ProductType
	Quantity int
}

// Cart is the persisted aggregate. Total is a snapshot equal to
// Σ quantity × resolved unit price over all items, evaluated at the last
// mutation, never a live value.
type Cart struct {
	ID       string
	ClientID string
	Items    []Item
	Total    decimal.Decimal
}

// Store persists carts keyed by id. SaveCart must write the item list and
// the total snapshot as one unit.
type Store interface {
	CreateCart(ctx context.Context, c Cart) error
	GetCart(ctx context.Context, id string) (Cart, error)
	SaveCart(ctx context.Context, c Cart) error
}

// ItemView carries a line together with its freshly resolved unit price.
type ItemView struct {
	ID        string              `json:"id"`
	Product   pricing.ProductType `json:"productType"`
	Quantity  int                 `json:"quantity"`
	UnitPrice decimal.Decimal     `json:"unitPrice"`
	LineTotal decimal.Decimal     `json:"lineTotal"`
}

// View is the caller-facing cart representation. TotalAmount is the stored
// snapshot, not a recomputation.
type View struct {
	ID          string          `json:"id"`
	ClientID    string          `json:"clientId"`
	Items       []ItemView      `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// Service owns a cart's line items and keeps the total snapshot consistent
// across mutations. Callers serialize mutating operations per cart id;
// reads may run concurrently with each other and with the cache.
type Service struct {
	Carts   Store
	Clients client.Store
	Pricer  pricing.Resolver
	Cache   *Cache
	Log     zerolog.Logger
}

// Create opens an empty cart for the client and writes it through the cache.
func (s *Service) Create(ctx context.Context, clientID string) (View, error) {
	cl, err := s.Clients.GetClient(ctx, clientID)
	if err != nil {
		return View{}, fmt.Errorf("client %s: %w", clientID, err)
	}
	c := Cart{ID: uuid.NewString(), ClientID: cl.ID, Total: decimal.Zero}
	if err := s.Carts.CreateCart(ctx, c); err != nil {
		return View{}, fmt.Errorf("create cart: %w", err)
	}
	view := View{ID: c.ID, ClientID: c.ClientID, Items: []ItemView{}, TotalAmount: decimal.Zero}
	s.Cache.Put(ctx, view)
	obs.ObserveCartMutation("create")
	s.Log.Info().Str("cart_id", c.ID).Str("client_id", clientID).Msg("created cart")
	return view, nil
}

// Get returns the cart view. A cached view is authoritative, including its
// total, even when recomputing against the current rule set would differ;
// the next mutation overwrites it. On a miss the view is assembled with
// freshly resolved unit prices and the stored total snapshot, then written
// back to the cache.
func (s *Service) Get(ctx context.Context, cartID string) (View, error) {
	if s.Cache.Enabled() {
		if view, ok := s.Cache.Get(ctx, cartID); ok {
			obs.ObserveCacheLookup("carts", true)
			return view, nil
		}
		obs.ObserveCacheLookup("carts", false)
	}
	c, err := s.Carts.GetCart(ctx, cartID)
	if err != nil {
		return View{}, fmt.Errorf("cart %s: %w", cartID, err)
	}
	cl, err := s.Clients.GetClient(ctx, c.ClientID)
	if err != nil {
		return View{}, fmt.Errorf("client %s: %w", c.ClientID, err)
	}
	view, err := s.viewFor(ctx, cl, c)
	if err != nil {
		return View{}, err
	}
	s.Cache.Put(ctx, view)
	return view, nil
}

// AddItem merges the quantity into an existing line for the same product
// type or appends a new line, then recomputes and stores the total.
func (s *Service) AddItem(ctx context.Context, cartID string, product pricing.ProductType, quantity int) (View, error) {
	if quantity <= 0 {
		return View{}, fmt.Errorf("quantity %d: %w", quantity, ErrInvalidQuantity)
	}
	c, err := s.Carts.GetCart(ctx, cartID)
	if err != nil {
		return View{}, fmt.Errorf("cart %s: %w", cartID, err)
	}
	items := cloneItems(c.Items)
	merged := false
	for i := range items {
		if items[i].Product == product {
			items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, Item{ID: uuid.NewString(), Product: product, Quantity: quantity})
	}
	return s.commit(ctx, c, items, "add_item")
}

// UpdateQuantity sets the absolute quantity of an existing line, then
// recomputes and stores the total.
func (s *Service) UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) (View, error) {
	if quantity <= 0 {
		return View{}, fmt.Errorf("quantity %d: %w", quantity, ErrInvalidQuantity)
	}
	c, err := s.Carts.GetCart(ctx, cartID)
	if err != nil {
		return View{}, fmt.Errorf("cart %s: %w", cartID, err)
	}
	items := cloneItems(c.Items)
	found := false
	for i := range items {
		if items[i].ID == itemID {
			items[i].Quantity = quantity
			found = true
			break
		}
	}
	if !found {
		return View{}, fmt.Errorf("item %s in cart %s: %w", itemID, cartID, ErrItemNotFound)
	}
	return s.commit(ctx, c, items, "update_quantity")
}

// RemoveItem deletes a line, then recomputes and stores the total.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID string) (View, error) {
	c, err := s.Carts.GetCart(ctx, cartID)
	if err != nil {
		return View{}, fmt.Errorf("cart %s: %w", cartID, err)
	}
	items := make([]Item, 0, len(c.Items))
	found := false
	for _, it := range c.Items {
		if it.ID == itemID {
			found = true
			continue
		}
		items = append(items, it)
	}
	if !found {
		return View{}, fmt.Errorf("item %s in cart %s: %w", itemID, cartID, ErrItemNotFound)
	}
	return s.commit(ctx, c, items, "remove_item")
}

// commit recomputes the total for the candidate item list and persists
// items and total in one SaveCart only after pricing succeeds, so a failure
// mid-operation cannot leave the stored cart with new items and a stale
// total, nor touch the cache.
func (s *Service) commit(ctx context.Context, c Cart, items []Item, op string) (View, error) {
	cl, err := s.Clients.GetClient(ctx, c.ClientID)
	if err != nil {
		return View{}, fmt.Errorf("client %s: %w", c.ClientID, err)
	}
	total, err := s.totalFor(ctx, cl, items)
	if err != nil {
		return View{}, err
	}
	c.Items = items
	c.Total = total
	if err := s.Carts.SaveCart(ctx, c); err != nil {
		return View{}, fmt.Errorf("save cart %s: %w", c.ID, err)
	}
	view, err := s.viewFor(ctx, cl, c)
	if err != nil {
		return View{}, err
	}
	s.Cache.Put(ctx, view)
	obs.ObserveCartMutation(op)
	s.Log.Info().
		Str("cart_id", c.ID).
		Str("op", op).
		Int("items", len(items)).
		Str("total", total.String()).
		Msg("cart updated")
	return view, nil
}

// totalFor resolves every line fresh against the current rule set and sums
// with exact decimal arithmetic.
func (s *Service) totalFor(ctx context.Context, cl client.Client, items []Item) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, it := range items {
		price, err := s.Pricer.UnitPrice(ctx, cl.Category(), cl.Revenue(), it.Product)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total, nil
}

func (s *Service) viewFor(ctx context.Context, cl client.Client, c Cart) (View, error) {
	items := make([]ItemView, 0, len(c.Items))
	for _, it := range c.Items {
		price, err := s.Pricer.UnitPrice(ctx, cl.Category(), cl.Revenue(), it.Product)
		if err != nil {
			return View{}, err
		}
		items = append(items, ItemView{
			ID:        it.ID,
			Product:   it.Product,
			Quantity:  it.Quantity,
			UnitPrice: price,
			LineTotal: price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}
	return View{ID: c.ID, ClientID: c.ClientID, Items: items, TotalAmount: c.Total}, nil
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
