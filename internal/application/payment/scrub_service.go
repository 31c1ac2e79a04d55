package payment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mnpay/backend/internal/domain/payment"
)

// ScrubService removes personal data from aged invoices of individual
// payers. Organizations that opted into retention are never touched.
type ScrubService struct {
	invoices  payment.InvoiceRepository
	retention time.Duration
	batch     int
	logger    *zap.Logger
}

// ScrubServiceConfig holds dependencies for the scrub service
type ScrubServiceConfig struct {
	Invoices  payment.InvoiceRepository
	Retention time.Duration
	Batch     int
	Logger    *zap.Logger
}

// NewScrubService creates a new ScrubService
func NewScrubService(config ScrubServiceConfig) *ScrubService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	retention := config.Retention
	if retention == 0 {
		retention = 90 * 24 * time.Hour
	}
	batch := config.Batch
	if batch == 0 {
		batch = 500
	}
	return &ScrubService{
		invoices:  config.Invoices,
		retention: retention,
		batch:     batch,
		logger:    logger.Named("scrub"),
	}
}

// Run scrubs one batch of aged invoices. Returns the number scrubbed.
func (s *ScrubService) Run(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.retention)
	candidates, err := s.invoices.ListScrubCandidates(ctx, cutoff, s.batch)
	if err != nil {
		return 0, fmt.Errorf("failed to list scrub candidates: %w", err)
	}

	scrubbed := 0
	for _, invoice := range candidates {
		if ctx.Err() != nil {
			return scrubbed, ctx.Err()
		}
		invoice.Scrub()
		if err := s.invoices.Update(ctx, invoice); err != nil {
			s.logger.Warn("failed to scrub invoice",
				zap.String("payment_ref", invoice.PaymentRef),
				zap.Error(err))
			continue
		}
		scrubbed++
	}

	if scrubbed > 0 {
		s.logger.Info("personal data scrubbed",
			zap.Int("invoices", scrubbed),
			zap.Time("cutoff", cutoff))
	}
	return scrubbed, nil
}
