package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mnpay/backend/internal/domain/payment"
	"github.com/mnpay/backend/internal/infrastructure/persistence/models"
)

// PaymentRequestMarkRepository implements payment.PaymentRequestMarker
// with an insert-once marks table.
type PaymentRequestMarkRepository struct {
	db *gorm.DB
}

// NewPaymentRequestMarkRepository creates a new repository
func NewPaymentRequestMarkRepository(db *gorm.DB) *PaymentRequestMarkRepository {
	return &PaymentRequestMarkRepository{db: db}
}

// MarkPaid records the mark. A reference already marked reports
// ErrAlreadyMarkedPaid; the first mark wins and later paid times are
// ignored.
func (r *PaymentRequestMarkRepository) MarkPaid(ctx context.Context, paymentRef string, paidAt time.Time) error {
	mark := models.PaymentRequestMark{
		PaymentRef: paymentRef,
		PaidAt:     paidAt,
		CreatedAt:  time.Now(),
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payment_ref"}},
		DoNothing: true,
	}).Create(&mark)
	if result.Error != nil {
		return fmt.Errorf("mark payment request paid: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return payment.ErrAlreadyMarkedPaid
	}
	return nil
}

// Ensure PaymentRequestMarkRepository implements the marker port
var _ payment.PaymentRequestMarker = (*PaymentRequestMarkRepository)(nil)
