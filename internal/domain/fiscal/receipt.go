package fiscal

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mnpay/backend/internal/domain/tax"
)

// Errors for fiscal receipt operations
var (
	ErrReceiptNotFound    = errors.New("fiscal: receipt not found")
	ErrReceiptInvalidated = errors.New("fiscal: receipt already invalidated")
	ErrMissingMerchantTIN = errors.New("fiscal: merchant TIN is required")
)

// ReceiptStatus represents the lifecycle state of a fiscal receipt
type ReceiptStatus string

const (
	ReceiptStatusIssued      ReceiptStatus = "ISSUED"
	ReceiptStatusInvalidated ReceiptStatus = "INVALIDATED"
)

// Receipt is a fiscal receipt registered with the tax authority. The
// authority's receipt id, lottery number and QR payload come back from the
// local daemon and are stored verbatim.
type Receipt struct {
	ID           uuid.UUID
	ReceiptID    string // id assigned by the tax authority
	OrderRef     string // reference of the order this receipt settles
	MerchantTIN  string
	BranchNo     string
	PosNo        string
	DistrictCode string
	Type         tax.ReceiptType
	CustomerTIN  string
	Regime       tax.Regime
	TotalAmount  decimal.Decimal
	TotalVAT     decimal.Decimal
	TotalCityTax decimal.Decimal
	Lottery      string
	QRData       string
	Status       ReceiptStatus
	IssuedAt     time.Time
	RawResponse  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewReceipt creates an issued receipt from an accepted submission
func NewReceipt(orderRef, merchantTIN string) *Receipt {
	now := time.Now()
	return &Receipt{
		ID:          uuid.New(),
		OrderRef:    orderRef,
		MerchantTIN: merchantTIN,
		Type:        tax.ReceiptB2C,
		Status:      ReceiptStatusIssued,
		IssuedAt:    now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Invalidate marks the receipt as returned to the tax authority
func (r *Receipt) Invalidate() error {
	if r.Status == ReceiptStatusInvalidated {
		return ErrReceiptInvalidated
	}
	r.Status = ReceiptStatusInvalidated
	r.UpdatedAt = time.Now()
	return nil
}
