package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"half rounds away from zero", "10.555", "10.56"},
		{"below half rounds down", "10.554", "10.55"},
		{"negative half rounds away from zero", "-10.555", "-10.56"},
		{"integer unchanged", "100", "100.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Round(d(tt.input)).StringFixed(2))
		})
	}
}

func TestVATExtraction(t *testing.T) {
	amount := d("10000")

	assert.Equal(t, "909.09", VAT(amount).StringFixed(2))
	assert.Equal(t, "900.90", VATWithCityTax(amount).StringFixed(2))
	assert.Equal(t, "90.09", CityTax(amount).StringFixed(2))
	assert.Equal(t, "99.01", CityTaxWithoutVAT(amount).StringFixed(2))
}

func TestTaxesFor(t *testing.T) {
	tests := []struct {
		name       string
		regime     Regime
		amount     string
		hasCityTax bool
		wantVAT    string
		wantCity   string
	}{
		{"vat able without city tax", RegimeVATAble, "10000", false, "909.09", "0.00"},
		{"vat able with city tax", RegimeVATAble, "5000", true, "450.45", "45.05"},
		{"vat free without city tax", RegimeVATFree, "10000", false, "0.00", "0.00"},
		{"vat free with city tax", RegimeVATFree, "10000", true, "0.00", "99.01"},
		{"zero rated without city tax", RegimeVATZero, "10000", false, "0.00", "0.00"},
		{"zero rated with city tax", RegimeVATZero, "10000", true, "0.00", "99.01"},
		{"not vat carries nothing", RegimeNotVAT, "10000", true, "0.00", "0.00"},
		{"unknown regime carries nothing", Regime("BOGUS"), "10000", true, "0.00", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taxes := TaxesFor(tt.regime, d(tt.amount), tt.hasCityTax)
			assert.Equal(t, tt.wantVAT, taxes.VAT.StringFixed(2))
			assert.Equal(t, tt.wantCity, taxes.CityTax.StringFixed(2))
		})
	}
}

func TestTaxesForRoundsEachFigureIndependently(t *testing.T) {
	// VAT and city tax are each derived from the gross amount, not from
	// each other, so rounding never compounds.
	taxes := TaxesFor(RegimeVATAble, d("10000"), true)

	require.Equal(t, "900.90", taxes.VAT.StringFixed(2))
	require.Equal(t, "90.09", taxes.CityTax.StringFixed(2))
}
