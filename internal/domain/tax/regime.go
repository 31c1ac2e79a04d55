package tax

// Regime classifies a line item for VAT purposes, using the vocabulary of
// the national receipt system.
type Regime string

const (
	RegimeVATAble Regime = "VAT_ABLE"
	RegimeVATFree Regime = "VAT_FREE"
	RegimeVATZero Regime = "VAT_ZERO"
	RegimeNotVAT  Regime = "NOT_VAT"
)

// IsValid checks if the regime is one of the known values
func (r Regime) IsValid() bool {
	switch r {
	case RegimeVATAble, RegimeVATFree, RegimeVATZero, RegimeNotVAT:
		return true
	}
	return false
}

// BarcodeType identifies the barcode standard on a line item
type BarcodeType string

const (
	BarcodeUndefined BarcodeType = "UNDEFINED"
	BarcodeGS1       BarcodeType = "GS1"
	BarcodeISBN      BarcodeType = "ISBN"
)

// ReceiptType distinguishes consumer receipts from business receipts
type ReceiptType string

const (
	ReceiptB2C ReceiptType = "B2C_RECEIPT"
	ReceiptB2B ReceiptType = "B2B_RECEIPT"
)
