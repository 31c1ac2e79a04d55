package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mnpay/backend/internal/domain/payment"
)

// Callback result statuses. The callback endpoint always answers the
// gateway with HTTP 200; the body tells retries apart from real work.
const (
	CallbackStatusSuccess = "success"
	CallbackStatusIgnored = "ignored"
	CallbackStatusError   = "error"
)

// Callback ignore reasons
const (
	ReasonMissingInvoice = "missing-invoice"
	ReasonUnknownInvoice = "unknown-invoice"
	ReasonInFlight       = "in-flight"
)

// CallbackResult is the body returned to the gateway for a callback
type CallbackResult struct {
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	PaymentRef string `json:"payment_ref,omitempty"`
}

// ReconcileService drives invoices from Pending to a final state. The
// gateway's payment listing is the source of truth: callbacks and the
// poller both verify against it before any transition.
type ReconcileService struct {
	invoices payment.InvoiceRepository
	gateway  payment.InvoiceGateway
	marker   payment.PaymentRequestMarker
	logger   *zap.Logger
	inFlight sync.Map // gateway invoice id -> struct{}
}

// ReconcileServiceConfig holds dependencies for the reconcile service
type ReconcileServiceConfig struct {
	Invoices payment.InvoiceRepository
	Gateway  payment.InvoiceGateway
	Marker   payment.PaymentRequestMarker
	Logger   *zap.Logger
}

// NewReconcileService creates a new ReconcileService
func NewReconcileService(config ReconcileServiceConfig) *ReconcileService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileService{
		invoices: config.Invoices,
		gateway:  config.Gateway,
		marker:   config.Marker,
		logger:   logger.Named("reconcile"),
	}
}

// HandleCallback processes a gateway payment notification. Callbacks
// carry only the gateway invoice id; the payment state is re-read from
// the gateway rather than trusted from the notification.
func (s *ReconcileService) HandleCallback(ctx context.Context, gatewayInvoice string) *CallbackResult {
	if gatewayInvoice == "" {
		return &CallbackResult{Status: CallbackStatusIgnored, Reason: ReasonMissingInvoice}
	}

	invoice, err := s.invoices.GetByGatewayInvoice(ctx, gatewayInvoice)
	if err != nil {
		if errors.Is(err, payment.ErrInvoiceNotFound) {
			s.logger.Warn("callback for unknown invoice",
				zap.String("gateway_invoice", gatewayInvoice))
			return &CallbackResult{Status: CallbackStatusIgnored, Reason: ReasonUnknownInvoice}
		}
		s.logger.Error("callback invoice lookup failed",
			zap.String("gateway_invoice", gatewayInvoice),
			zap.Error(err))
		return &CallbackResult{Status: CallbackStatusError}
	}

	// Concurrent callbacks for the same invoice collapse to one worker
	if _, loaded := s.inFlight.LoadOrStore(gatewayInvoice, struct{}{}); loaded {
		return &CallbackResult{Status: CallbackStatusIgnored, Reason: ReasonInFlight}
	}
	defer s.inFlight.Delete(gatewayInvoice)

	if err := s.reconcile(ctx, invoice); err != nil {
		s.logger.Error("callback reconciliation failed",
			zap.String("payment_ref", invoice.PaymentRef),
			zap.Error(err))
		return &CallbackResult{Status: CallbackStatusError, PaymentRef: invoice.PaymentRef}
	}
	return &CallbackResult{Status: CallbackStatusSuccess, PaymentRef: invoice.PaymentRef}
}

// PollPending reconciles a batch of pending invoices against the
// gateway. Returns the number of invoices that reached a final state.
func (s *ReconcileService) PollPending(ctx context.Context, batch int) (int, error) {
	pending, err := s.invoices.ListPending(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending invoices: %w", err)
	}

	finalized := 0
	for _, invoice := range pending {
		if ctx.Err() != nil {
			return finalized, ctx.Err()
		}
		before := invoice.Status
		if err := s.reconcile(ctx, invoice); err != nil {
			s.logger.Warn("failed to reconcile pending invoice",
				zap.String("payment_ref", invoice.PaymentRef),
				zap.Error(err))
			continue
		}
		if invoice.Status != before {
			finalized++
		}
	}
	return finalized, nil
}

// reconcile fetches the gateway's payment state for an invoice and
// applies the resulting transition exactly once.
func (s *ReconcileService) reconcile(ctx context.Context, invoice *payment.Invoice) error {
	if invoice.Status.IsFinal() {
		return nil
	}
	if invoice.GatewayInvoice == "" {
		return payment.ErrMissingInvoiceID
	}

	result, err := s.gateway.CheckPayment(ctx, invoice.GatewayInvoice, 1, 100)
	if err != nil {
		return fmt.Errorf("failed to check payment: %w", err)
	}

	row := result.First()
	gatewayStatus := payment.GatewayStatusNew
	raw := result.Raw
	if row != nil {
		gatewayStatus = row.Status
		if row.Raw != "" {
			raw = row.Raw
		}
	} else {
		// no payment rows: consult the invoice itself so expiry and
		// cancellation on the gateway side still propagate
		details, err := s.gateway.GetInvoice(ctx, invoice.GatewayInvoice)
		if err != nil {
			return fmt.Errorf("failed to get gateway invoice: %w", err)
		}
		gatewayStatus = details.Status
		if details.Raw != "" {
			raw = details.Raw
		}
	}

	to, ok := payment.MapGatewayStatus(gatewayStatus)
	if !ok {
		return nil
	}

	paidTime := invoice.PaidAt
	if to == payment.InvoiceStatusPaid {
		if row != nil && row.PaidAt != nil {
			paidTime = row.PaidAt
		} else {
			now := time.Now()
			paidTime = &now
		}
	}

	transitioned, err := s.invoices.UpdateStatusFromPending(ctx, invoice.ID, to, raw, paidTime)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	if !transitioned {
		// lost the race: another worker already finalized the row
		return nil
	}

	invoice.Status = to
	invoice.PaidAt = paidTime
	s.logger.Info("invoice reconciled",
		zap.String("payment_ref", invoice.PaymentRef),
		zap.String("gateway_status", string(gatewayStatus)),
		zap.String("status", string(to)))

	if to == payment.InvoiceStatusPaid && s.marker != nil {
		markedAt := time.Now()
		if paidTime != nil {
			markedAt = *paidTime
		}
		if err := s.marker.MarkPaid(ctx, invoice.PaymentRef, markedAt); err != nil {
			if errors.Is(err, payment.ErrAlreadyMarkedPaid) {
				return nil
			}
			return fmt.Errorf("failed to mark payment request paid: %w", err)
		}
	}
	return nil
}
