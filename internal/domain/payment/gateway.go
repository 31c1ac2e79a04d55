package payment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Errors for gateway request validation
var (
	ErrMissingInvoiceCode  = errors.New("payment: invoice code is required")
	ErrMissingReceiverCode = errors.New("payment: receiver code is required")
	ErrMissingInvoiceID    = errors.New("payment: gateway invoice id is required")
)

// GatewayStatus is a payment status as reported by the gateway
type GatewayStatus string

const (
	GatewayStatusNew       GatewayStatus = "NEW"
	GatewayStatusPaid      GatewayStatus = "PAID"
	GatewayStatusFailed    GatewayStatus = "FAILED"
	GatewayStatusCancelled GatewayStatus = "CANCELLED"
	GatewayStatusExpired   GatewayStatus = "EXPIRED"
	GatewayStatusRefunded  GatewayStatus = "REFUNDED"
)

// MapGatewayStatus translates a gateway status to the local invoice
// status. The second return is false for statuses that carry no local
// transition; the invoice is then left unchanged.
func MapGatewayStatus(s GatewayStatus) (InvoiceStatus, bool) {
	switch s {
	case GatewayStatusPaid:
		return InvoiceStatusPaid, true
	case GatewayStatusFailed:
		return InvoiceStatusFailed, true
	case GatewayStatusCancelled, GatewayStatusExpired:
		return InvoiceStatusCancelled, true
	default:
		return "", false
	}
}

// CreateInvoiceRequest is a request to create a QR invoice with the gateway
type CreateInvoiceRequest struct {
	InvoiceCode     string
	SenderInvoiceNo string
	ReceiverCode    string
	ReceiverData    *ReceiverData
	Amount          decimal.Decimal
	Description     string
	CallbackURL     string
}

// ReceiverData carries optional payer details attached to the invoice
type ReceiverData struct {
	Name  string
	Email string
	Phone string
}

// Validate checks the request before it goes on the wire
func (r *CreateInvoiceRequest) Validate() error {
	if r.InvoiceCode == "" {
		return ErrMissingInvoiceCode
	}
	if r.SenderInvoiceNo == "" {
		return ErrMissingPaymentRef
	}
	if r.ReceiverCode == "" {
		return ErrMissingReceiverCode
	}
	if !r.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	return nil
}

// CreateInvoiceResponse is the gateway's reply to invoice creation
type CreateInvoiceResponse struct {
	InvoiceID string
	QRText    string
	QRImage   string
	ShortURL  string
	URLs      []DeeplinkURL
	Raw       string
}

// DeeplinkURL is one bank-app deeplink offered for the invoice
type DeeplinkURL struct {
	Name        string
	Description string
	Link        string
	Logo        string
}

// InvoiceDetails is the gateway's view of an existing invoice
type InvoiceDetails struct {
	InvoiceID   string
	Status      GatewayStatus
	Amount      decimal.Decimal
	Description string
	Raw         string
}

// PaymentRecord is one settled or attempted payment row from the gateway
type PaymentRecord struct {
	PaymentID string
	Status    GatewayStatus
	Amount    decimal.Decimal
	Currency  string
	Wallet    string
	PaidAt    *time.Time
	Raw       string
}

// CheckResult is a page of payment rows for one invoice
type CheckResult struct {
	Count int
	Rows  []PaymentRecord
	Raw   string
}

// First returns the first payment row, or nil when the page is empty
func (r *CheckResult) First() *PaymentRecord {
	if r == nil || len(r.Rows) == 0 {
		return nil
	}
	return &r.Rows[0]
}

// InvoiceGateway is the port to the QR payment provider
type InvoiceGateway interface {
	// CreateInvoice registers a new QR invoice
	CreateInvoice(ctx context.Context, req *CreateInvoiceRequest) (*CreateInvoiceResponse, error)
	// GetInvoice fetches the gateway's view of an invoice
	GetInvoice(ctx context.Context, invoiceID string) (*InvoiceDetails, error)
	// CancelInvoice voids an unpaid invoice
	CancelInvoice(ctx context.Context, invoiceID string) error
	// CheckPayment lists payments recorded against an invoice
	CheckPayment(ctx context.Context, invoiceID string, page, limit int) (*CheckResult, error)
	// GetPayment fetches one payment by its gateway id
	GetPayment(ctx context.Context, paymentID string) (*PaymentRecord, error)
	// CancelPayment voids a payment before settlement
	CancelPayment(ctx context.Context, paymentID string) error
	// RefundPayment refunds a settled payment
	RefundPayment(ctx context.Context, paymentID string) error
}
