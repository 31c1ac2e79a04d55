package tax

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

// Errors for batch building
var (
	ErrNoItems = errors.New("tax: no items to process")
)

// LineItem is a sellable line as it arrives from the invoicing system.
// Qty and Total are gross values; taxes are extracted, never added.
type LineItem struct {
	Name           string
	Code           string // classification code assigned by the tax authority
	TaxProductCode string // exemption product code, set for VAT_FREE and VAT_ZERO goods
	Barcode        string
	BarcodeType    BarcodeType
	MeasureUnit    string
	Regime         Regime
	CityTax        bool
	Qty            decimal.Decimal
	Total          decimal.Decimal
}

// ReceiptItem is a line item prepared for submission: unit price derived
// from the gross total and taxes extracted under the item's regime.
type ReceiptItem struct {
	Name           string
	Code           string
	TaxProductCode string
	Barcode        string
	BarcodeType    BarcodeType
	MeasureUnit    string
	Qty            decimal.Decimal
	UnitPrice      decimal.Decimal
	Total          decimal.Decimal
	VAT            decimal.Decimal
	CityTax        decimal.Decimal
}

// ReceiptGroup collects the items that share a tax regime. Each group
// becomes one receipt in the submission.
type ReceiptGroup struct {
	Regime  Regime
	Items   []ReceiptItem
	Total   decimal.Decimal
	VAT     decimal.Decimal
	CityTax decimal.Decimal
}

// Merchant describes the selling taxpayer as reported by the local
// receipt daemon.
type Merchant struct {
	TIN          string
	Name         string
	VATPayer     bool
	CityTaxPayer bool
}

// Batch is the full set of receipt groups for one order. Groups are
// ordered so that the NOT_VAT group, when present, comes first: it must
// be submitted and accepted before any taxed group goes out.
type Batch struct {
	Groups []ReceiptGroup
}

// NotVATFirst splits the batch into the NOT_VAT group (or nil) and the
// remaining groups, preserving order.
func (b *Batch) NotVATFirst() (*ReceiptGroup, []ReceiptGroup) {
	if len(b.Groups) > 0 && b.Groups[0].Regime == RegimeNotVAT {
		return &b.Groups[0], b.Groups[1:]
	}
	return nil, b.Groups
}

// BuildBatch groups line items by tax regime and extracts taxes per item.
// Items without a regime or a classification code are skipped. A merchant
// that is not registered for VAT reports zero VAT even on VAT_ABLE items,
// but the item keeps its regime and its city tax figure.
// Returns ErrNoItems when nothing survives the filter.
func BuildBatch(merchant Merchant, items []LineItem) (*Batch, error) {
	grouped := make(map[Regime][]ReceiptItem)

	for _, item := range items {
		if item.Regime == "" || item.Code == "" {
			continue
		}

		regime := item.Regime
		hasCity := item.CityTax && merchant.CityTaxPayer
		taxes := TaxesFor(regime, item.Total, hasCity)
		if !merchant.VATPayer {
			taxes.VAT = decimal.Zero
		}

		unitPrice := item.Total
		if !item.Qty.IsZero() {
			unitPrice = Round(item.Total.Div(item.Qty))
		}

		bt := item.BarcodeType
		if bt == "" {
			bt = BarcodeUndefined
		}

		grouped[regime] = append(grouped[regime], ReceiptItem{
			Name:           item.Name,
			Code:           item.Code,
			TaxProductCode: item.TaxProductCode,
			Barcode:        item.Barcode,
			BarcodeType:    bt,
			MeasureUnit:    item.MeasureUnit,
			Qty:            item.Qty,
			UnitPrice:      unitPrice,
			Total:          item.Total,
			VAT:            taxes.VAT,
			CityTax:        taxes.CityTax,
		})
	}

	if len(grouped) == 0 {
		return nil, ErrNoItems
	}

	regimes := make([]Regime, 0, len(grouped))
	for r := range grouped {
		regimes = append(regimes, r)
	}
	sort.Slice(regimes, func(i, j int) bool {
		// NOT_VAT sorts first, the rest alphabetically for stable output
		if regimes[i] == RegimeNotVAT {
			return true
		}
		if regimes[j] == RegimeNotVAT {
			return false
		}
		return regimes[i] < regimes[j]
	})

	batch := &Batch{Groups: make([]ReceiptGroup, 0, len(regimes))}
	for _, r := range regimes {
		group := ReceiptGroup{Regime: r, Items: grouped[r]}
		for _, it := range group.Items {
			group.Total = group.Total.Add(it.Total)
			group.VAT = group.VAT.Add(it.VAT)
			group.CityTax = group.CityTax.Add(it.CityTax)
		}
		batch.Groups = append(batch.Groups, group)
	}

	return batch, nil
}
