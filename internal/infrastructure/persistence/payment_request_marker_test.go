package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gorm.io/driver/sqlite"

	"github.com/mnpay/backend/internal/domain/payment"
	"github.com/mnpay/backend/internal/infrastructure/persistence/models"
)

func setupMarkDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PaymentRequestMark{}))
	return db
}

func TestMarkPaidExactlyOnce(t *testing.T) {
	repo := NewPaymentRequestMarkRepository(setupMarkDB(t))
	ctx := context.Background()

	first := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkPaid(ctx, "ACC-PAY-2025-00042", first))

	err := repo.MarkPaid(ctx, "ACC-PAY-2025-00042", first.Add(time.Hour))
	assert.ErrorIs(t, err, payment.ErrAlreadyMarkedPaid)

	var mark models.PaymentRequestMark
	require.NoError(t, repo.db.First(&mark, "payment_ref = ?", "ACC-PAY-2025-00042").Error)
	assert.Equal(t, first.Unix(), mark.PaidAt.Unix())
}

func TestMarkPaidDistinctReferences(t *testing.T) {
	repo := NewPaymentRequestMarkRepository(setupMarkDB(t))
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, repo.MarkPaid(ctx, "ACC-PAY-2025-00001", now))
	require.NoError(t, repo.MarkPaid(ctx, "ACC-PAY-2025-00002", now))
}
