package repo

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rvk/skycommerce/internal/cart"
	"github.com/rvk/skycommerce/internal/client"
	"github.com/rvk/skycommerce/internal/pricing"
)

// Memory is an in-process store backing clients, carts, and price rules.
// It serves tests and local development when DATABASE_URL is unset.
type Memory struct {
	mu      sync.RWMutex
	clients map[string]client.Client
	carts   map[string]cart.Cart
	rules   []pricing.PriceRule
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		clients: make(map[string]client.Client),
		carts:   make(map[string]cart.Cart),
	}
}

func (m *Memory) CreateClient(_ context.Context, c client.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = copyClient(c)
	return nil
}

func (m *Memory) GetClient(_ context.Context, id string) (client.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return client.Client{}, client.ErrNotFound
	}
	return copyClient(c), nil
}

func (m *Memory) UpdateClient(_ context.Context, c client.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c.ID]; !ok {
		return client.ErrNotFound
	}
	m.clients[c.ID] = copyClient(c)
	return nil
}

func (m *Memory) ListClients(_ context.Context, kind client.Kind, limit, offset int) ([]client.Client, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]client.Client, 0, len(m.clients))
	for _, c := range m.clients {
		if c.Kind == kind {
			matched = append(matched, copyClient(c))
		}
	}
	total := len(matched)
	if offset >= total {
		return []client.Client{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *Memory) CreateCart(_ context.Context, c cart.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[c.ID] = copyCart(c)
	return nil
}

func (m *Memory) GetCart(_ context.Context, id string) (cart.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.carts[id]
	if !ok {
		return cart.Cart{}, cart.ErrNotFound
	}
	return copyCart(c), nil
}

func (m *Memory) SaveCart(_ context.Context, c cart.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[c.ID]; !ok {
		return cart.ErrNotFound
	}
	m.carts[c.ID] = copyCart(c)
	return nil
}

func (m *Memory) PriceRules(_ context.Context) ([]pricing.PriceRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]pricing.PriceRule, len(m.rules))
	copy(out, m.rules)
	return out, nil
}

// SetPriceRules replaces the rule set.
func (m *Memory) SetPriceRules(rules []pricing.PriceRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = make([]pricing.PriceRule, len(rules))
	copy(m.rules, rules)
}

// SeedDefaultRules loads the canonical rule set so a fresh in-memory server
// can price both client categories without external state.
func (m *Memory) SeedDefaultRules() {
	threshold := decimal.RequireFromString("10000000.00")
	rules := []pricing.PriceRule{
		{ID: 1, Category: pricing.CategoryIndividual, Product: pricing.ProductHighEndPhone, Price: decimal.RequireFromString("1500.00")},
		{ID: 2, Category: pricing.CategoryIndividual, Product: pricing.ProductMidRangePhone, Price: decimal.RequireFromString("800.00")},
		{ID: 3, Category: pricing.CategoryIndividual, Product: pricing.ProductLaptop, Price: decimal.RequireFromString("1200.00")},
		{ID: 4, Category: pricing.CategoryProfessional, Product: pricing.ProductHighEndPhone, MaxRevenueInclusive: &threshold, Price: decimal.RequireFromString("1150.00")},
		{ID: 5, Category: pricing.CategoryProfessional, Product: pricing.ProductMidRangePhone, MaxRevenueInclusive: &threshold, Price: decimal.RequireFromString("600.00")},
		{ID: 6, Category: pricing.CategoryProfessional, Product: pricing.ProductLaptop, MaxRevenueInclusive: &threshold, Price: decimal.RequireFromString("1000.00")},
		{ID: 7, Category: pricing.CategoryProfessional, Product: pricing.ProductHighEndPhone, MinRevenueExclusive: &threshold, Price: decimal.RequireFromString("1000.00")},
		{ID: 8, Category: pricing.CategoryProfessional, Product: pricing.ProductMidRangePhone, MinRevenueExclusive: &threshold, Price: decimal.RequireFromString("550.00")},
		{ID: 9, Category: pricing.CategoryProfessional, Product: pricing.ProductLaptop, MinRevenueExclusive: &threshold, Price: decimal.RequireFromString("900.00")},
	}
	m.SetPriceRules(rules)
}

func copyClient(c client.Client) client.Client {
	out := c
	if c.AnnualRevenue != nil {
		rev := *c.AnnualRevenue
		out.AnnualRevenue = &rev
	}
	return out
}

func copyCart(c cart.Cart) cart.Cart {
	out := c
	out.Items = make([]cart.Item, len(c.Items))
	copy(out.Items, c.Items)
	return out
}
