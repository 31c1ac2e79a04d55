package tax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vatMerchant() Merchant {
	return Merchant{TIN: "37900846788", Name: "Test Store", VATPayer: true, CityTaxPayer: true}
}

func TestBuildBatchGroupsByRegime(t *testing.T) {
	items := []LineItem{
		{Name: "Coffee", Code: "0111001", Regime: RegimeVATAble, Qty: d("2"), Total: d("10000")},
		{Name: "Book", Code: "5811001", Regime: RegimeVATFree, Qty: d("1"), Total: d("20000")},
		{Name: "Stamp", Code: "8412001", Regime: RegimeNotVAT, Qty: d("1"), Total: d("500")},
	}

	batch, err := BuildBatch(vatMerchant(), items)
	require.NoError(t, err)
	require.Len(t, batch.Groups, 3)

	assert.Equal(t, RegimeNotVAT, batch.Groups[0].Regime)

	notVAT, rest := batch.NotVATFirst()
	require.NotNil(t, notVAT)
	assert.Len(t, rest, 2)
	assert.Equal(t, "500.00", notVAT.Total.StringFixed(2))
	assert.Equal(t, "0.00", notVAT.VAT.StringFixed(2))
}

func TestBuildBatchDropsUnclassifiedItems(t *testing.T) {
	items := []LineItem{
		{Name: "No regime", Code: "0111001", Qty: d("1"), Total: d("1000")},
		{Name: "No code", Regime: RegimeVATAble, Qty: d("1"), Total: d("1000")},
		{Name: "Kept", Code: "0111001", Regime: RegimeVATAble, Qty: d("1"), Total: d("1000")},
	}

	batch, err := BuildBatch(vatMerchant(), items)
	require.NoError(t, err)
	require.Len(t, batch.Groups, 1)
	assert.Len(t, batch.Groups[0].Items, 1)
	assert.Equal(t, "Kept", batch.Groups[0].Items[0].Name)
}

func TestBuildBatchAllItemsDropped(t *testing.T) {
	items := []LineItem{
		{Name: "No regime", Code: "0111001", Qty: d("1"), Total: d("1000")},
	}

	_, err := BuildBatch(vatMerchant(), items)
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestBuildBatchNonVATPayerReportsNoVAT(t *testing.T) {
	merchant := Merchant{TIN: "37900846788", VATPayer: false, CityTaxPayer: false}
	items := []LineItem{
		{Name: "Coffee", Code: "0111001", Regime: RegimeVATAble, Qty: d("1"), Total: d("10000")},
	}

	batch, err := BuildBatch(merchant, items)
	require.NoError(t, err)
	require.Len(t, batch.Groups, 1)

	group := batch.Groups[0]
	assert.Equal(t, RegimeVATAble, group.Regime)
	assert.Equal(t, "0.00", group.VAT.StringFixed(2))
	assert.Equal(t, "10000.00", group.Total.StringFixed(2))
}

func TestBuildBatchNonVATPayerKeepsCityTax(t *testing.T) {
	merchant := Merchant{TIN: "37900846788", VATPayer: false, CityTaxPayer: true}
	items := []LineItem{
		{Name: "Beer", Code: "1103001", Regime: RegimeVATAble, CityTax: true, Qty: d("1"), Total: d("10000")},
	}

	batch, err := BuildBatch(merchant, items)
	require.NoError(t, err)
	require.Len(t, batch.Groups, 1)

	group := batch.Groups[0]
	assert.Equal(t, RegimeVATAble, group.Regime)
	assert.Equal(t, "0.00", group.VAT.StringFixed(2))
	assert.Equal(t, "90.09", group.CityTax.StringFixed(2))
}

func TestBuildBatchUnitPrice(t *testing.T) {
	items := []LineItem{
		{Name: "Tea", Code: "0111002", Regime: RegimeVATAble, Qty: d("3"), Total: d("1000")},
	}

	batch, err := BuildBatch(vatMerchant(), items)
	require.NoError(t, err)

	item := batch.Groups[0].Items[0]
	assert.Equal(t, "333.33", item.UnitPrice.StringFixed(2))
	assert.Equal(t, "1000.00", item.Total.StringFixed(2))
	assert.Equal(t, BarcodeUndefined, item.BarcodeType)
}

func TestBuildBatchCityTaxRequiresMerchantRegistration(t *testing.T) {
	merchant := Merchant{TIN: "37900846788", VATPayer: true, CityTaxPayer: false}
	items := []LineItem{
		{Name: "Beer", Code: "1103001", Regime: RegimeVATAble, CityTax: true, Qty: d("1"), Total: d("10000")},
	}

	batch, err := BuildBatch(merchant, items)
	require.NoError(t, err)

	group := batch.Groups[0]
	assert.Equal(t, "909.09", group.VAT.StringFixed(2))
	assert.Equal(t, "0.00", group.CityTax.StringFixed(2))
}
