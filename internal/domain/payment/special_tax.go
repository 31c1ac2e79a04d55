package payment

import (
	"github.com/shopspring/decimal"

	"github.com/mnpay/backend/internal/domain/tax"
)

// SpecialTaxConfig describes the excise-style tax types a merchant may
// charge. Rates are percentages. When a payment names no type, the type
// flagged as default applies; with no default the rate is zero.
type SpecialTaxConfig struct {
	Rates       map[string]decimal.Decimal
	DefaultType string
	CityTaxRate decimal.Decimal
}

// RateFor resolves the rate for a tax type, falling back to the default
// type and then to zero.
func (c *SpecialTaxConfig) RateFor(taxType string) decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	if taxType != "" {
		if rate, ok := c.Rates[taxType]; ok {
			return rate
		}
	}
	if c.DefaultType != "" {
		if rate, ok := c.Rates[c.DefaultType]; ok {
			return rate
		}
	}
	return decimal.Zero
}

var hundred = decimal.NewFromInt(100)

// ComputeSpecialTax applies the resolved rate to the base amount,
// rounded to 2 decimal places.
func (c *SpecialTaxConfig) ComputeSpecialTax(base decimal.Decimal, taxType string) decimal.Decimal {
	return tax.Round(base.Mul(c.RateFor(taxType)).Div(hundred))
}

// ComputeCityTax applies the configured city tax rate to the base amount
func (c *SpecialTaxConfig) ComputeCityTax(base decimal.Decimal) decimal.Decimal {
	if c == nil || c.CityTaxRate.IsZero() {
		return decimal.Zero
	}
	return tax.Round(base.Mul(c.CityTaxRate).Div(hundred))
}
