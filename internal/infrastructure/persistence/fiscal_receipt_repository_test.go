package persistence

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnpay/backend/internal/domain/fiscal"
	"github.com/mnpay/backend/internal/domain/payment"
	"github.com/mnpay/backend/internal/domain/tax"
)

func TestFiscalReceiptRoundTrip(t *testing.T) {
	repo := NewFiscalReceiptRepository(setupTestDB(t))
	ctx := context.Background()

	receipt := fiscal.NewReceipt("SINV-2025-00017", "37900846788")
	receipt.ReceiptID = "00000000001234567890"
	receipt.Regime = tax.RegimeVATAble
	receipt.TotalAmount = decimal.RequireFromString("10000")
	receipt.TotalVAT = decimal.RequireFromString("909.09")
	receipt.Lottery = "AB12345678"
	require.NoError(t, repo.Create(ctx, receipt))

	stored, err := repo.GetByReceiptID(ctx, "00000000001234567890")
	require.NoError(t, err)
	assert.Equal(t, receipt.ID, stored.ID)
	assert.Equal(t, fiscal.ReceiptStatusIssued, stored.Status)
	assert.Equal(t, "909.09", stored.TotalVAT.StringFixed(2))

	require.NoError(t, stored.Invalidate())
	require.NoError(t, repo.Update(ctx, stored))

	listed, err := repo.ListByOrderRef(ctx, "SINV-2025-00017")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, fiscal.ReceiptStatusInvalidated, listed[0].Status)
}

func TestFiscalReceiptNotFound(t *testing.T) {
	repo := NewFiscalReceiptRepository(setupTestDB(t))
	_, err := repo.GetByReceiptID(context.Background(), "missing")
	assert.ErrorIs(t, err, fiscal.ErrReceiptNotFound)
}

func TestPaymentTransactionRoundTrip(t *testing.T) {
	repo := NewPaymentTransactionRepository(setupTestDB(t))
	ctx := context.Background()

	txn := payment.NewTransaction("ACC-PAY-2025-00042", payment.PayerOrganization, decimal.RequireFromString("2000"))
	txn.ApplyTaxes(decimal.RequireFromString("100"), decimal.RequireFromString("20"))
	require.NoError(t, repo.Create(ctx, txn))

	stored, err := repo.GetByPaymentRef(ctx, "ACC-PAY-2025-00042")
	require.NoError(t, err)
	assert.Equal(t, "2120.00", stored.Total.StringFixed(2))
	assert.Equal(t, payment.PayerOrganization, stored.PayerType)
}
