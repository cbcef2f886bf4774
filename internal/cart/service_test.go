package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rvk/skycommerce/internal/client"
	"github.com/rvk/skycommerce/internal/pricing"
)

type stubClients struct {
	clients map[string]client.Client
}

func (s *stubClients) CreateClient(_ context.Context, c client.Client) error {
	s.clients[c.ID] = c
	return nil
}

func (s *stubClients) GetClient(_ context.Context, id string) (client.Client, error) {
	c, ok := s.clients[id]
	if !ok {
		return client.Client{}, client.ErrNotFound
	}
	return c, nil
}

func (s *stubClients) UpdateClient(_ context.Context, c client.Client) error {
	s.clients[c.ID] = c
	return nil
}

func (s *stubClients) ListClients(context.Context, client.Kind, int, int) ([]client.Client, int, error) {
	return nil, 0, nil
}

type stubCarts struct {
	carts map[string]Cart
	saves int
}

func (s *stubCarts) CreateCart(_ context.Context, c Cart) error {
	s.carts[c.ID] = c
	return nil
}

func (s *stubCarts) GetCart(_ context.Context, id string) (Cart, error) {
	c, ok := s.carts[id]
	if !ok {
		return Cart{}, ErrNotFound
	}
	out := c
	out.Items = append([]Item(nil), c.Items...)
	return out, nil
}

func (s *stubCarts) SaveCart(_ context.Context, c Cart) error {
	if _, ok := s.carts[c.ID]; !ok {
		return ErrNotFound
	}
	s.carts[c.ID] = c
	s.saves++
	return nil
}

func d(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return v
}

func dp(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	v := d(t, s)
	return &v
}

func priceTable(t *testing.T) pricing.Table {
	t.Helper()
	return pricing.Table{
		Individual: map[pricing.ProductType]decimal.Decimal{
			pricing.ProductHighEndPhone:  d(t, "1500.00"),
			pricing.ProductMidRangePhone: d(t, "800.00"),
			pricing.ProductLaptop:        d(t, "1200.00"),
		},
		Professional: &pricing.ProfessionalTable{
			Low: pricing.Tier{
				MaxRevenueInclusive: dp(t, "10000000.00"),
				Products: map[pricing.ProductType]decimal.Decimal{
					pricing.ProductHighEndPhone:  d(t, "1150.00"),
					pricing.ProductMidRangePhone: d(t, "600.00"),
					pricing.ProductLaptop:        d(t, "1000.00"),
				},
			},
			High: pricing.Tier{
				MinRevenueExclusive: dp(t, "10000000.00"),
				Products: map[pricing.ProductType]decimal.Decimal{
					pricing.ProductHighEndPhone:  d(t, "1000.00"),
					pricing.ProductMidRangePhone: d(t, "550.00"),
					pricing.ProductLaptop:        d(t, "900.00"),
				},
			},
		},
	}
}

func newFixture(t *testing.T) (*Service, *stubCarts, *stubClients) {
	t.Helper()
	clients := &stubClients{clients: map[string]client.Client{
		"alice": {ID: "alice", Kind: client.KindIndividual, FirstName: "Alice", LastName: "Moreau"},
		"acme":  {ID: "acme", Kind: client.KindProfessional, CompanyName: "Acme", RegistrationNumber: "123", AnnualRevenue: dp(t, "12000000.00")},
		"small": {ID: "small", Kind: client.KindProfessional, CompanyName: "Small Co", RegistrationNumber: "456", AnnualRevenue: dp(t, "5000000.00")},
	}}
	carts := &stubCarts{carts: map[string]Cart{}}
	svc := &Service{
		Carts:   carts,
		Clients: clients,
		Pricer:  pricing.NewStaticResolver(priceTable(t), zerolog.Nop()),
		Log:     zerolog.Nop(),
	}
	return svc, carts, clients
}

func TestCreateCart(t *testing.T) {
	svc, carts, _ := newFixture(t)
	view, err := svc.Create(context.Background(), "alice")
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	if view.ClientID != "alice" {
		t.Fatalf("unexpected client id %q", view.ClientID)
	}
	if !view.TotalAmount.IsZero() {
		t.Fatalf("new cart total should be zero, got %s", view.TotalAmount)
	}
	if len(carts.carts) != 1 {
		t.Fatalf("expected 1 stored cart, got %d", len(carts.carts))
	}
}

func TestCreateCartUnknownClient(t *testing.T) {
	svc, _, _ := newFixture(t)
	_, err := svc.Create(context.Background(), "ghost")
	if !errors.Is(err, client.ErrNotFound) {
		t.Fatalf("expected client.ErrNotFound, got %v", err)
	}
}

func TestAddItemMergesSameProduct(t *testing.T) {
	svc, _, _ := newFixture(t)
	view, err := svc.Create(context.Background(), "alice")
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}

	if _, err := svc.AddItem(context.Background(), view.ID, pricing.ProductHighEndPhone, 1); err != nil {
		t.Fatalf("first add: %v", err)
	}
	got, err := svc.AddItem(context.Background(), view.ID, pricing.ProductHighEndPhone, 1)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}

	if len(got.Items) != 1 {
		t.Fatalf("expected a single merged line, got %d", len(got.Items))
	}
	if got.Items[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", got.Items[0].Quantity)
	}
	if !got.TotalAmount.Equal(d(t, "3000.00")) {
		t.Fatalf("expected total 3000.00, got %s", got.TotalAmount)
	}
}

func TestAddItemDistinctProductsAppend(t *testing.T) {
	svc, _, _ := newFixture(t)
	view, _ := svc.Create(context.Background(), "alice")

	if _, err := svc.AddItem(context.Background(), view.ID, pricing.ProductLaptop, 1); err != nil {
		t.Fatalf("add laptop: %v", err)
	}
	got, err := svc.AddItem(context.Background(), view.ID, pricing.ProductMidRangePhone, 1)
	if err != nil {
		t.Fatalf("add phone: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got.Items))
	}
	if !got.TotalAmount.Equal(d(t, "2000.00")) {
		t.Fatalf("expected total 2000.00, got %s", got.TotalAmount)
	}
}

func TestProfessionalHighTierTotal(t *testing.T) {
	svc, _, _ := newFixture(t)
	view, _ := svc.Create(context.Background(), "acme")

	got, err := svc.AddItem(context.Background(), view.ID, pricing.ProductLaptop, 3)
	if err != nil {
		t.Fatalf("add laptops: %v", err)
	}
	if !got.TotalAmount.Equal(d(t, "2700.00")) {
		t.Fatalf("expected total 2700.00, got %s", got.TotalAmount)
	}
	if !got.Items[0].UnitPrice.Equal(d(t, "900.00")) {
		t.Fatalf("expected high tier unit price 900.00, got %s", got.Items[0].UnitPrice)
	}
}

func TestProfessionalLowTierTotal(t *testing.T) {
	svc, _, _ := newFixture(t)
	view, _ := svc.Create(context.Background(), "small")

	got, err := svc.AddItem(context.Background(), view.ID, pricing.ProductHighEndPhone, 2)
	if err != nil {
		t.Fatalf("add phones: %v", err)
	}
	if !got.TotalAmount.Equal(d(t, "2300.00")) {
		t.Fatalf("expected total 2300.00, got %s", got.TotalAmount)
	}
}

func TestUpdateQuantitySetsAbsoluteValue(t *testing.T) {
	svc, _, _ := newFixture(t)
	view, _ := svc.Create(context.Background(), "alice")
	added, _ := svc.AddItem(context.Background(), view.ID, pricing.ProductMidRangePhone, 2)

	got, err := svc.UpdateQuantity(context.Background(), view.ID, added.Items[0].ID, 5)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if got.Items[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", got.Items[0].Quantity)
	}
	if !got.TotalAmount.Equal(d(t, "4000.00")) {
		t.Fatalf("expected total 4000.00, got %s", got.TotalAmount)
	}
}

func TestRemoveItemRecomputesTotal(t *testing.T) {
	svc, _, _ := newFixture(t)
	view, _ := svc.Create(context.Background(), "alice")
	if _, err := svc.AddItem(context.Background(), view.ID, pricing.ProductLaptop, 1); err != nil {
		t.Fatalf("add laptop: %v", err)
	}
	added, err := svc.AddItem(context.Background(), view.ID, pricing.ProductMidRangePhone, 1)
	if err != nil {
		t.Fatalf("add phone: %v", err)
	}

	var phoneLine string
	for _, it := range added.Items {
		if it.Product == pricing.ProductMidRangePhone {
			phoneLine = it.ID
		}
	}
	got, err := svc.RemoveItem(context.Background(), view.ID, phoneLine)
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if len(got.Items) != 1 {
		t.Fatalf("expected 1 remaining line, got %d", len(got.Items))
	}
	if !got.TotalAmount.Equal(d(t, "1200.00")) {
		t.Fatalf("expected total 1200.00, got %s", got.TotalAmount)
	}
}

func TestInvalidQuantityLeavesStateUntouched(t *testing.T) {
	svc, carts, _ := newFixture(t)
	view, _ := svc.Create(context.Background(), "alice")
	added, _ := svc.AddItem(context.Background(), view.ID, pricing.ProductLaptop, 1)
	savesBefore := carts.saves

	if _, err := svc.AddItem(context.Background(), view.ID, pricing.ProductLaptop, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := svc.UpdateQuantity(context.Background(), view.ID, added.Items[0].ID, -3); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if carts.saves != savesBefore {
		t.Fatal("rejected mutations must not persist")
	}
	stored := carts.carts[view.ID]
	if stored.Items[0].Quantity != 1 {
		t.Fatalf("stored quantity changed to %d", stored.Items[0].Quantity)
	}
}

func TestMissingItemLeavesStateUntouched(t *testing.T) {
	svc, carts, _ := newFixture(t)
	view, _ := svc.Create(context.Background(), "alice")
	svc.AddItem(context.Background(), view.ID, pricing.ProductLaptop, 2)
	savesBefore := carts.saves

	if _, err := svc.UpdateQuantity(context.Background(), view.ID, "nope", 1); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if _, err := svc.RemoveItem(context.Background(), view.ID, "nope"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if carts.saves != savesBefore {
		t.Fatal("failed mutations must not persist")
	}
}

func TestUnknownCart(t *testing.T) {
	svc, _, _ := newFixture(t)
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.AddItem(context.Background(), "missing", pricing.ProductLaptop, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// A pricing failure mid-mutation must leave the stored cart exactly as it
// was: no new items, no stale total.
func TestPricingFailureRollsBackMutation(t *testing.T) {
	svc, carts, _ := newFixture(t)
	view, _ := svc.Create(context.Background(), "alice")
	svc.AddItem(context.Background(), view.ID, pricing.ProductLaptop, 1)
	savesBefore := carts.saves

	_, err := svc.AddItem(context.Background(), view.ID, pricing.ProductTablet, 1)
	if !errors.Is(err, pricing.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if carts.saves != savesBefore {
		t.Fatal("failed mutation must not persist")
	}
	stored := carts.carts[view.ID]
	if len(stored.Items) != 1 {
		t.Fatalf("stored cart gained items: %d", len(stored.Items))
	}
	if !stored.Total.Equal(d(t, "1200.00")) {
		t.Fatalf("stored total changed to %s", stored.Total)
	}
}
