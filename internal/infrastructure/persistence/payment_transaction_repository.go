package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mnpay/backend/internal/domain/payment"
	"github.com/mnpay/backend/internal/infrastructure/persistence/models"
)

// PaymentTransactionRepository implements payment.TransactionRepository with GORM
type PaymentTransactionRepository struct {
	db *gorm.DB
}

// NewPaymentTransactionRepository creates a new repository
func NewPaymentTransactionRepository(db *gorm.DB) *PaymentTransactionRepository {
	return &PaymentTransactionRepository{db: db}
}

// Create inserts a transaction
func (r *PaymentTransactionRepository) Create(ctx context.Context, txn *payment.Transaction) error {
	var model models.PaymentTransaction
	model.FromDomain(txn)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("create payment transaction: %w", err)
	}
	return nil
}

// GetByPaymentRef fetches a transaction by its payment reference
func (r *PaymentTransactionRepository) GetByPaymentRef(ctx context.Context, paymentRef string) (*payment.Transaction, error) {
	var model models.PaymentTransaction
	err := r.db.WithContext(ctx).First(&model, "payment_ref = ?", paymentRef).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, payment.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment transaction: %w", err)
	}
	return model.ToDomain(), nil
}

// Update saves the transaction
func (r *PaymentTransactionRepository) Update(ctx context.Context, txn *payment.Transaction) error {
	var model models.PaymentTransaction
	model.FromDomain(txn)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return fmt.Errorf("update payment transaction: %w", err)
	}
	return nil
}

// Ensure PaymentTransactionRepository implements the repository port
var _ payment.TransactionRepository = (*PaymentTransactionRepository)(nil)
