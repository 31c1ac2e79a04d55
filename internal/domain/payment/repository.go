package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InvoiceRepository persists payment invoices. Upsert is keyed by the
// payment reference: a second create for the same reference updates the
// existing row instead of inserting a duplicate.
type InvoiceRepository interface {
	Upsert(ctx context.Context, invoice *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetByPaymentRef(ctx context.Context, paymentRef string) (*Invoice, error)
	GetByGatewayInvoice(ctx context.Context, gatewayInvoice string) (*Invoice, error)
	ListPending(ctx context.Context, limit int) ([]*Invoice, error)
	ListScrubCandidates(ctx context.Context, before time.Time, limit int) ([]*Invoice, error)
	Update(ctx context.Context, invoice *Invoice) error
	// UpdateStatusFromPending flips status only when the stored row is
	// still Pending. Returns false when the guard did not match.
	UpdateStatusFromPending(ctx context.Context, id uuid.UUID, to InvoiceStatus, raw string, paidAt *time.Time) (bool, error)
}

// TransactionRepository persists payment transactions
type TransactionRepository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByPaymentRef(ctx context.Context, paymentRef string) (*Transaction, error)
	Update(ctx context.Context, txn *Transaction) error
}

// PaymentRequestMarker marks the upstream payment request as paid. The
// implementation must be idempotent: a request already marked paid
// reports ErrAlreadyMarkedPaid.
type PaymentRequestMarker interface {
	MarkPaid(ctx context.Context, paymentRef string, paidAt time.Time) error
}
