package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mnpay/backend/internal/domain/payment"
	"github.com/mnpay/backend/internal/infrastructure/persistence/models"
)

// PaymentInvoiceRepository implements payment.InvoiceRepository with GORM
type PaymentInvoiceRepository struct {
	db *gorm.DB
}

// NewPaymentInvoiceRepository creates a new repository
func NewPaymentInvoiceRepository(db *gorm.DB) *PaymentInvoiceRepository {
	return &PaymentInvoiceRepository{db: db}
}

// Upsert inserts the invoice, or updates the existing row when the
// payment reference is already present. The unique index on payment_ref
// is the idempotency guard. A row that already reached a final state is
// never replaced: the update assignments leave status untouched, and an
// upsert over a final row fails with ErrInvoiceFinal.
func (r *PaymentInvoiceRepository) Upsert(ctx context.Context, inv *payment.Invoice) error {
	existing, err := r.GetByPaymentRef(ctx, inv.PaymentRef)
	if err != nil && !errors.Is(err, payment.ErrInvoiceNotFound) {
		return err
	}
	if existing != nil && existing.Status.IsFinal() {
		return payment.ErrInvoiceFinal
	}

	var model models.PaymentInvoice
	model.FromDomain(inv)

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "payment_ref"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"gateway_invoice", "amount", "description",
			"qr_text", "qr_image", "payer_type", "payer_email",
			"entity_name", "entity_reg_no", "retain_data",
			"raw_response", "updated_at",
		}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("upsert payment invoice: %w", err)
	}

	// the stored row keeps its original id on conflict
	stored, err := r.GetByPaymentRef(ctx, inv.PaymentRef)
	if err != nil {
		return err
	}
	inv.ID = stored.ID
	inv.CreatedAt = stored.CreatedAt
	return nil
}

// GetByID fetches an invoice by its id
func (r *PaymentInvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Invoice, error) {
	var model models.PaymentInvoice
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, payment.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment invoice: %w", err)
	}
	return model.ToDomain(), nil
}

// GetByPaymentRef fetches an invoice by its payment reference
func (r *PaymentInvoiceRepository) GetByPaymentRef(ctx context.Context, paymentRef string) (*payment.Invoice, error) {
	var model models.PaymentInvoice
	err := r.db.WithContext(ctx).First(&model, "payment_ref = ?", paymentRef).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, payment.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment invoice: %w", err)
	}
	return model.ToDomain(), nil
}

// GetByGatewayInvoice fetches an invoice by the gateway-assigned id
func (r *PaymentInvoiceRepository) GetByGatewayInvoice(ctx context.Context, gatewayInvoice string) (*payment.Invoice, error) {
	var model models.PaymentInvoice
	err := r.db.WithContext(ctx).First(&model, "gateway_invoice = ?", gatewayInvoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, payment.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment invoice: %w", err)
	}
	return model.ToDomain(), nil
}

// ListPending lists invoices that have not reached a final state
func (r *PaymentInvoiceRepository) ListPending(ctx context.Context, limit int) ([]*payment.Invoice, error) {
	var rows []models.PaymentInvoice
	q := r.db.WithContext(ctx).
		Where("status = ?", string(payment.InvoiceStatusPending)).
		Order("created_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list pending invoices: %w", err)
	}
	invoices := make([]*payment.Invoice, 0, len(rows))
	for i := range rows {
		invoices = append(invoices, rows[i].ToDomain())
	}
	return invoices, nil
}

// ListScrubCandidates lists individual-payer invoices older than the
// cutoff that still hold personal data
func (r *PaymentInvoiceRepository) ListScrubCandidates(ctx context.Context, before time.Time, limit int) ([]*payment.Invoice, error) {
	var rows []models.PaymentInvoice
	q := r.db.WithContext(ctx).
		Where("payer_type = ?", string(payment.PayerIndividual)).
		Where("created_at < ?", before).
		Where("qr_text <> '' OR qr_image <> '' OR payer_email <> '' OR entity_name <> '' OR entity_reg_no <> ''").
		Order("created_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list scrub candidates: %w", err)
	}
	invoices := make([]*payment.Invoice, 0, len(rows))
	for i := range rows {
		invoices = append(invoices, rows[i].ToDomain())
	}
	return invoices, nil
}

// Update saves the invoice
func (r *PaymentInvoiceRepository) Update(ctx context.Context, inv *payment.Invoice) error {
	var model models.PaymentInvoice
	model.FromDomain(inv)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return fmt.Errorf("update payment invoice: %w", err)
	}
	return nil
}

// UpdateStatusFromPending flips the status with a compare-and-set on the
// Pending state, so concurrent reconcilers apply a final state once.
func (r *PaymentInvoiceRepository) UpdateStatusFromPending(ctx context.Context, id uuid.UUID, to payment.InvoiceStatus, raw string, paidAt *time.Time) (bool, error) {
	updates := map[string]any{
		"status":     string(to),
		"updated_at": time.Now(),
	}
	if raw != "" {
		updates["raw_response"] = raw
	}
	if paidAt != nil {
		updates["paid_at"] = paidAt
	}

	result := r.db.WithContext(ctx).
		Model(&models.PaymentInvoice{}).
		Where("id = ? AND status = ?", id, string(payment.InvoiceStatusPending)).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("update invoice status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Ensure PaymentInvoiceRepository implements the repository port
var _ payment.InvoiceRepository = (*PaymentInvoiceRepository)(nil)
