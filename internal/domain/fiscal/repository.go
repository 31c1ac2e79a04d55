package fiscal

import (
	"context"

	"github.com/google/uuid"
)

// ReceiptRepository persists fiscal receipts
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *Receipt) error
	GetByID(ctx context.Context, id uuid.UUID) (*Receipt, error)
	GetByReceiptID(ctx context.Context, receiptID string) (*Receipt, error)
	ListByOrderRef(ctx context.Context, orderRef string) ([]*Receipt, error)
	Update(ctx context.Context, receipt *Receipt) error
}
