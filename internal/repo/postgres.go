package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rvk/skycommerce/internal/cart"
	"github.com/rvk/skycommerce/internal/client"
	"github.com/rvk/skycommerce/internal/pricing"
)

// Postgres backs clients, carts, and price rules with a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) CreateClient(ctx context.Context, c client.Client) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO clients (id, kind, first_name, last_name, company_name, registration_number, annual_revenue, vat_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, string(c.Kind), c.FirstName, c.LastName, c.CompanyName, c.RegistrationNumber, decimalArg(c.AnnualRevenue), c.VATNumber,
	)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (p *Postgres) GetClient(ctx context.Context, id string) (client.Client, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, kind, first_name, last_name, company_name, registration_number, annual_revenue::text, vat_number
		FROM clients WHERE id = $1`, id)
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return client.Client{}, client.ErrNotFound
		}
		return client.Client{}, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

func (p *Postgres) UpdateClient(ctx context.Context, c client.Client) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE clients
		SET first_name = $2, last_name = $3, company_name = $4, registration_number = $5,
		    annual_revenue = $6, vat_number = $7, updated_at = now()
		WHERE id = $1`,
		c.ID, c.FirstName, c.LastName, c.CompanyName, c.RegistrationNumber, decimalArg(c.AnnualRevenue), c.VATNumber,
	)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return client.ErrNotFound
	}
	return nil
}

func (p *Postgres) ListClients(ctx context.Context, kind client.Kind, limit, offset int) ([]client.Client, int, error) {
	var total int
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM clients WHERE kind = $1`, string(kind)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, kind, first_name, last_name, company_name, registration_number, annual_revenue::text, vat_number
		FROM clients WHERE kind = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`, string(kind), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]client.Client, 0, limit)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	return clients, total, nil
}

func (p *Postgres) CreateCart(ctx context.Context, c cart.Cart) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO shopping_carts (id, client_id, total)
		VALUES ($1, $2, $3)`,
		c.ID, c.ClientID, c.Total.String(),
	)
	if err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

func (p *Postgres) GetCart(ctx context.Context, id string) (cart.Cart, error) {
	var (
		c        cart.Cart
		totalStr string
	)
	err := p.pool.QueryRow(ctx, `
		SELECT id, client_id, total::text FROM shopping_carts WHERE id = $1`, id).
		Scan(&c.ID, &c.ClientID, &totalStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.Cart{}, cart.ErrNotFound
		}
		return cart.Cart{}, fmt.Errorf("get cart: %w", err)
	}
	if c.Total, err = decimal.NewFromString(totalStr); err != nil {
		return cart.Cart{}, fmt.Errorf("parse cart total: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, product, quantity FROM cart_items WHERE cart_id = $1 ORDER BY position`, id)
	if err != nil {
		return cart.Cart{}, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item    cart.Item
			product string
		)
		if err := rows.Scan(&item.ID, &product, &item.Quantity); err != nil {
			return cart.Cart{}, fmt.Errorf("scan cart item: %w", err)
		}
		item.Product = pricing.ProductType(product)
		c.Items = append(c.Items, item)
	}
	if err := rows.Err(); err != nil {
		return cart.Cart{}, fmt.Errorf("load cart items: %w", err)
	}
	return c, nil
}

// SaveCart rewrites the line set and the stored total in one transaction so
// readers never observe a total computed from a different set of lines.
func (p *Postgres) SaveCart(ctx context.Context, c cart.Cart) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save cart: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE shopping_carts SET total = $2, updated_at = now() WHERE id = $1`,
		c.ID, c.Total.String(),
	)
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, c.ID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	for i, item := range c.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO cart_items (id, cart_id, product, quantity, position)
			VALUES ($1, $2, $3, $4, $5)`,
			item.ID, c.ID, string(item.Product), item.Quantity, i,
		); err != nil {
			return fmt.Errorf("insert cart item: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save cart: %w", err)
	}
	return nil
}

func (p *Postgres) PriceRules(ctx context.Context) ([]pricing.PriceRule, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, category, product, min_revenue_exclusive::text, max_revenue_inclusive::text, price::text
		FROM price_rules
		ORDER BY category, product, min_revenue_exclusive NULLS FIRST`)
	if err != nil {
		return nil, fmt.Errorf("load price rules: %w", err)
	}
	defer rows.Close()

	var rules []pricing.PriceRule
	for rows.Next() {
		var (
			rule              pricing.PriceRule
			category, product string
			minStr, maxStr    *string
			priceStr          string
		)
		if err := rows.Scan(&rule.ID, &category, &product, &minStr, &maxStr, &priceStr); err != nil {
			return nil, fmt.Errorf("scan price rule: %w", err)
		}
		rule.Category = pricing.Category(category)
		rule.Product = pricing.ProductType(product)
		if rule.MinRevenueExclusive, err = decimalPtr(minStr); err != nil {
			return nil, fmt.Errorf("rule %d min bound: %w", rule.ID, err)
		}
		if rule.MaxRevenueInclusive, err = decimalPtr(maxStr); err != nil {
			return nil, fmt.Errorf("rule %d max bound: %w", rule.ID, err)
		}
		if rule.Price, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("rule %d price: %w", rule.ID, err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load price rules: %w", err)
	}
	return rules, nil
}

func scanClient(row pgx.Row) (client.Client, error) {
	var (
		c       client.Client
		kind    string
		revenue *string
	)
	if err := row.Scan(&c.ID, &kind, &c.FirstName, &c.LastName, &c.CompanyName, &c.RegistrationNumber, &revenue, &c.VATNumber); err != nil {
		return client.Client{}, err
	}
	c.Kind = client.Kind(kind)
	var err error
	if c.AnnualRevenue, err = decimalPtr(revenue); err != nil {
		return client.Client{}, fmt.Errorf("parse annual revenue: %w", err)
	}
	return c, nil
}

// decimalArg maps a nullable decimal to a driver argument, keeping NULL for
// unknown values instead of zero.
func decimalArg(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func decimalPtr(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
