package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mnpay/backend/internal/domain/payment"
)

// amountFields are the source document fields an amount may be resolved
// from, in priority order.
var amountFields = []string{
	"grand_total",
	"total_amount",
	"base_grand_total",
	"amount",
	"outstanding_amount",
}

// ResolveAmount picks the invoice amount from an explicit override or, in
// priority order, from the source document fields. Zero values are
// treated as absent.
func ResolveAmount(override *decimal.Decimal, source map[string]decimal.Decimal) (decimal.Decimal, error) {
	if override != nil && override.IsPositive() {
		return *override, nil
	}
	for _, field := range amountFields {
		if v, ok := source[field]; ok && v.IsPositive() {
			return v, nil
		}
	}
	return decimal.Zero, payment.ErrNoResolvableAmount
}

// CreatePaymentInput describes one payment request to invoice
type CreatePaymentInput struct {
	PaymentRef     string
	AmountOverride *decimal.Decimal
	Source         map[string]decimal.Decimal
	SpecialTaxType string
	PayerType      payment.PayerType
	PayerEmail     string
	EntityName     string
	EntityRegNo    string
	ReceiverCode   string
	RetainData     bool
	Description    string
}

// PaymentResult is the outcome of creating a payment invoice. QR payloads
// are always returned to the caller even when not retained in storage.
type PaymentResult struct {
	Invoice    *payment.Invoice
	QRText     string
	QRImage    string
	ShortURL   string
	URLs       []payment.DeeplinkURL
	BaseAmount decimal.Decimal
	SpecialTax decimal.Decimal
	CityTax    decimal.Decimal
	Total      decimal.Decimal
}

// PaymentService creates payment invoices through the QR gateway and
// records them for reconciliation.
type PaymentService struct {
	invoices     payment.InvoiceRepository
	transactions payment.TransactionRepository
	gateway      payment.InvoiceGateway
	taxes        *payment.SpecialTaxConfig
	logger       *zap.Logger
}

// PaymentServiceConfig holds dependencies for the payment service
type PaymentServiceConfig struct {
	Invoices     payment.InvoiceRepository
	Transactions payment.TransactionRepository
	Gateway      payment.InvoiceGateway
	Taxes        *payment.SpecialTaxConfig
	Logger       *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(config PaymentServiceConfig) *PaymentService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		invoices:     config.Invoices,
		transactions: config.Transactions,
		gateway:      config.Gateway,
		taxes:        config.Taxes,
		logger:       logger.Named("payment"),
	}
}

// CreatePayment resolves the amount, applies taxes, registers a QR
// invoice with the gateway and stores the result. Calling it again for
// the same payment reference replaces the stored invoice rather than
// creating a duplicate.
func (s *PaymentService) CreatePayment(ctx context.Context, input *CreatePaymentInput) (*PaymentResult, error) {
	if input.PaymentRef == "" {
		return nil, payment.ErrMissingPaymentRef
	}

	base, err := ResolveAmount(input.AmountOverride, input.Source)
	if err != nil {
		return nil, err
	}

	payerType := input.PayerType
	if payerType == "" {
		payerType = payment.PayerIndividual
	}

	txn := payment.NewTransaction(input.PaymentRef, payerType, base)
	txn.PayerEmail = input.PayerEmail
	txn.EntityName = input.EntityName
	txn.EntityRegNo = input.EntityRegNo
	txn.RetainData = input.RetainData
	txn.ApplyTaxes(
		s.taxes.ComputeSpecialTax(base, input.SpecialTaxType),
		s.taxes.ComputeCityTax(base),
	)
	txn.ApplyPrivacy()

	invoice, err := payment.NewInvoice(input.PaymentRef, txn.Total)
	if err != nil {
		return nil, err
	}
	invoice.Description = input.Description
	invoice.PayerType = payerType
	invoice.PayerEmail = input.PayerEmail
	invoice.EntityName = input.EntityName
	invoice.EntityRegNo = input.EntityRegNo
	invoice.RetainData = input.RetainData

	receiverCode := input.ReceiverCode
	if receiverCode == "" {
		receiverCode = input.PaymentRef
	}
	req := &payment.CreateInvoiceRequest{
		SenderInvoiceNo: input.PaymentRef,
		ReceiverCode:    receiverCode,
		Amount:          txn.Total,
		Description:     input.Description,
	}
	if input.EntityName != "" || input.PayerEmail != "" {
		req.ReceiverData = &payment.ReceiverData{
			Name:  input.EntityName,
			Email: input.PayerEmail,
		}
	}

	resp, err := s.gateway.CreateInvoice(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway invoice: %w", err)
	}

	invoice.GatewayInvoice = resp.InvoiceID
	invoice.QRText = resp.QRText
	invoice.QRImage = resp.QRImage
	invoice.RawResponse = resp.Raw
	invoice.ApplyPrivacy()

	if err := s.invoices.Upsert(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to store invoice: %w", err)
	}
	if s.transactions != nil {
		if err := s.transactions.Create(ctx, txn); err != nil {
			s.logger.Warn("failed to store payment transaction",
				zap.String("payment_ref", input.PaymentRef),
				zap.Error(err))
		}
	}

	s.logger.Info("payment invoice created",
		zap.String("payment_ref", input.PaymentRef),
		zap.String("gateway_invoice", resp.InvoiceID),
		zap.String("amount", txn.Total.StringFixed(2)))

	return &PaymentResult{
		Invoice:    invoice,
		QRText:     resp.QRText,
		QRImage:    resp.QRImage,
		ShortURL:   resp.ShortURL,
		URLs:       resp.URLs,
		BaseAmount: base,
		SpecialTax: txn.SpecialTax,
		CityTax:    txn.CityTax,
		Total:      txn.Total,
	}, nil
}

// GetPayment returns the stored invoice for a payment reference
func (s *PaymentService) GetPayment(ctx context.Context, paymentRef string) (*payment.Invoice, error) {
	return s.invoices.GetByPaymentRef(ctx, paymentRef)
}

// CancelPayment voids the gateway invoice and marks the stored invoice
// cancelled. Already-final invoices are left unchanged.
func (s *PaymentService) CancelPayment(ctx context.Context, paymentRef string) (*payment.Invoice, error) {
	invoice, err := s.invoices.GetByPaymentRef(ctx, paymentRef)
	if err != nil {
		return nil, err
	}
	if invoice.Status.IsFinal() {
		return invoice, payment.ErrInvoiceFinal
	}

	if invoice.GatewayInvoice != "" {
		if err := s.gateway.CancelInvoice(ctx, invoice.GatewayInvoice); err != nil {
			return nil, fmt.Errorf("failed to cancel gateway invoice: %w", err)
		}
	}

	ok, err := s.invoices.UpdateStatusFromPending(ctx, invoice.ID, payment.InvoiceStatusCancelled, "", nil)
	if err != nil {
		return nil, err
	}
	if ok {
		invoice.Status = payment.InvoiceStatusCancelled
	}
	return invoice, nil
}
