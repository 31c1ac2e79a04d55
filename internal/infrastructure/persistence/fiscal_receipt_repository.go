package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mnpay/backend/internal/domain/fiscal"
	"github.com/mnpay/backend/internal/infrastructure/persistence/models"
)

// FiscalReceiptRepository implements fiscal.ReceiptRepository with GORM
type FiscalReceiptRepository struct {
	db *gorm.DB
}

// NewFiscalReceiptRepository creates a new repository
func NewFiscalReceiptRepository(db *gorm.DB) *FiscalReceiptRepository {
	return &FiscalReceiptRepository{db: db}
}

// Create inserts a receipt
func (r *FiscalReceiptRepository) Create(ctx context.Context, receipt *fiscal.Receipt) error {
	var model models.FiscalReceipt
	model.FromDomain(receipt)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("create fiscal receipt: %w", err)
	}
	return nil
}

// GetByID fetches a receipt by its id
func (r *FiscalReceiptRepository) GetByID(ctx context.Context, id uuid.UUID) (*fiscal.Receipt, error) {
	var model models.FiscalReceipt
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiscal.ErrReceiptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get fiscal receipt: %w", err)
	}
	return model.ToDomain(), nil
}

// GetByReceiptID fetches a receipt by the authority-assigned id
func (r *FiscalReceiptRepository) GetByReceiptID(ctx context.Context, receiptID string) (*fiscal.Receipt, error) {
	var model models.FiscalReceipt
	err := r.db.WithContext(ctx).First(&model, "receipt_id = ?", receiptID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiscal.ErrReceiptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get fiscal receipt: %w", err)
	}
	return model.ToDomain(), nil
}

// ListByOrderRef lists the receipts issued for one order
func (r *FiscalReceiptRepository) ListByOrderRef(ctx context.Context, orderRef string) ([]*fiscal.Receipt, error) {
	var rows []models.FiscalReceipt
	err := r.db.WithContext(ctx).
		Where("order_ref = ?", orderRef).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list fiscal receipts: %w", err)
	}
	receipts := make([]*fiscal.Receipt, 0, len(rows))
	for i := range rows {
		receipts = append(receipts, rows[i].ToDomain())
	}
	return receipts, nil
}

// Update saves the receipt
func (r *FiscalReceiptRepository) Update(ctx context.Context, receipt *fiscal.Receipt) error {
	var model models.FiscalReceipt
	model.FromDomain(receipt)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return fmt.Errorf("update fiscal receipt: %w", err)
	}
	return nil
}

// Ensure FiscalReceiptRepository implements the repository port
var _ fiscal.ReceiptRepository = (*FiscalReceiptRepository)(nil)
