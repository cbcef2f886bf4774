package pricing

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

type tierFile struct {
	MinRevenueExclusive string            `koanf:"min_revenue_exclusive"`
	MaxRevenueInclusive string            `koanf:"max_revenue_inclusive"`
	Products            map[string]string `koanf:"products"`
}

type tableFile struct {
	Individual   map[string]string `koanf:"individual"`
	Professional *struct {
		Low  tierFile `koanf:"low"`
		High tierFile `koanf:"high"`
	} `koanf:"professional"`
}

// LoadTable reads a pricing table from a YAML file. Prices are written as
// strings in the file so they parse to exact decimals.
func LoadTable(path string) (Table, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Table{}, fmt.Errorf("read pricing file %s: %w", path, err)
	}

	var raw tableFile
	if err := k.Unmarshal("", &raw); err != nil {
		return Table{}, fmt.Errorf("parse pricing file %s: %w", path, err)
	}

	table := Table{}
	if len(raw.Individual) > 0 {
		products, err := parseProducts(raw.Individual)
		if err != nil {
			return Table{}, fmt.Errorf("individual prices: %w", err)
		}
		table.Individual = products
	}
	if raw.Professional != nil {
		low, err := parseTier(raw.Professional.Low)
		if err != nil {
			return Table{}, fmt.Errorf("professional low tier: %w", err)
		}
		high, err := parseTier(raw.Professional.High)
		if err != nil {
			return Table{}, fmt.Errorf("professional high tier: %w", err)
		}
		table.Professional = &ProfessionalTable{Low: low, High: high}
	}
	return table, nil
}

func parseTier(raw tierFile) (Tier, error) {
	tier := Tier{}
	if raw.MinRevenueExclusive != "" {
		min, err := decimal.NewFromString(raw.MinRevenueExclusive)
		if err != nil {
			return Tier{}, fmt.Errorf("min_revenue_exclusive %q: %w", raw.MinRevenueExclusive, err)
		}
		tier.MinRevenueExclusive = &min
	}
	if raw.MaxRevenueInclusive != "" {
		max, err := decimal.NewFromString(raw.MaxRevenueInclusive)
		if err != nil {
			return Tier{}, fmt.Errorf("max_revenue_inclusive %q: %w", raw.MaxRevenueInclusive, err)
		}
		tier.MaxRevenueInclusive = &max
	}
	products, err := parseProducts(raw.Products)
	if err != nil {
		return Tier{}, err
	}
	tier.Products = products
	return tier, nil
}

func parseProducts(raw map[string]string) (map[ProductType]decimal.Decimal, error) {
	out := make(map[ProductType]decimal.Decimal, len(raw))
	for name, priceStr := range raw {
		product, err := ParseProductType(name)
		if err != nil {
			return nil, err
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("price for %s: %w", name, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("price for %s: negative price %s", name, price)
		}
		out[product] = price
	}
	return out, nil
}
