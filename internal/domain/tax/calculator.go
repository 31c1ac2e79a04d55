package tax

import (
	"github.com/shopspring/decimal"
)

// Tax rate divisors and multipliers mandated by the receipt regulation.
// Each figure is derived with exactly one division and one multiplication
// before rounding, so results match the authority's own arithmetic.
var (
	divVATOnly   = decimal.RequireFromString("1.10")
	divVATCity   = decimal.RequireFromString("1.11")
	divCityNoVAT = decimal.RequireFromString("1.01")
	rateVAT      = decimal.RequireFromString("0.10")
	rateCity     = decimal.RequireFromString("0.01")
)

// Round rounds a monetary amount to 2 decimal places, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// VAT extracts the VAT portion of a gross amount that carries VAT only.
func VAT(amount decimal.Decimal) decimal.Decimal {
	return Round(amount.Div(divVATOnly).Mul(rateVAT))
}

// VATWithCityTax extracts the VAT portion of a gross amount that carries
// both VAT and city tax.
func VATWithCityTax(amount decimal.Decimal) decimal.Decimal {
	return Round(amount.Div(divVATCity).Mul(rateVAT))
}

// CityTax extracts the city tax portion of a gross amount that carries
// both VAT and city tax.
func CityTax(amount decimal.Decimal) decimal.Decimal {
	return Round(amount.Div(divVATCity).Mul(rateCity))
}

// CityTaxWithoutVAT extracts the city tax portion of a gross amount that
// carries city tax but no VAT.
func CityTaxWithoutVAT(amount decimal.Decimal) decimal.Decimal {
	return Round(amount.Div(divCityNoVAT).Mul(rateCity))
}

// Taxes holds the tax portions extracted from a gross amount
type Taxes struct {
	VAT     decimal.Decimal
	CityTax decimal.Decimal
}

// TaxesFor computes the tax portions of a gross amount under the given
// regime. VAT_FREE and VAT_ZERO goods carry no VAT but may still carry
// city tax; NOT_VAT and unknown regimes carry no tax at all.
func TaxesFor(regime Regime, amount decimal.Decimal, hasCityTax bool) Taxes {
	switch regime {
	case RegimeVATAble:
		if hasCityTax {
			return Taxes{VAT: VATWithCityTax(amount), CityTax: CityTax(amount)}
		}
		return Taxes{VAT: VAT(amount), CityTax: decimal.Zero}
	case RegimeVATFree, RegimeVATZero:
		if hasCityTax {
			return Taxes{VAT: decimal.Zero, CityTax: CityTaxWithoutVAT(amount)}
		}
		return Taxes{VAT: decimal.Zero, CityTax: decimal.Zero}
	default:
		return Taxes{VAT: decimal.Zero, CityTax: decimal.Zero}
	}
}
