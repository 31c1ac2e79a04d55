package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors for invoice operations
var (
	ErrInvoiceNotFound    = errors.New("payment: invoice not found")
	ErrInvoiceFinal       = errors.New("payment: invoice is in a final state")
	ErrMissingPaymentRef  = errors.New("payment: payment reference is required")
	ErrNonPositiveAmount  = errors.New("payment: amount must be positive")
	ErrAlreadyMarkedPaid  = errors.New("payment: payment request already marked paid")
	ErrNoResolvableAmount = errors.New("payment: no amount could be resolved from the source document")
)

// InvoiceStatus represents the lifecycle state of a payment invoice
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "Pending"
	InvoiceStatusPaid      InvoiceStatus = "Paid"
	InvoiceStatusCancelled InvoiceStatus = "Cancelled"
	InvoiceStatusFailed    InvoiceStatus = "Failed"
)

// IsValid checks if the status is a known value
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusCancelled, InvoiceStatusFailed:
		return true
	}
	return false
}

// IsFinal reports whether the status permits no further transition
func (s InvoiceStatus) IsFinal() bool {
	return s != InvoiceStatusPending
}

// Invoice is a payment invoice issued through the QR payment gateway and
// tracked until it reaches a final state. PaymentRef is the reference of
// the upstream payment request and is unique per invoice.
type Invoice struct {
	ID             uuid.UUID
	PaymentRef     string
	GatewayInvoice string // invoice id assigned by the gateway
	Amount         decimal.Decimal
	Status         InvoiceStatus
	Description    string
	QRText         string
	QRImage        string
	PayerType      PayerType
	PayerEmail     string
	EntityName     string
	EntityRegNo    string
	RetainData     bool
	RawResponse    string
	PaidAt         *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewInvoice creates a pending invoice for a payment request
func NewInvoice(paymentRef string, amount decimal.Decimal) (*Invoice, error) {
	if paymentRef == "" {
		return nil, ErrMissingPaymentRef
	}
	if !amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	now := time.Now()
	return &Invoice{
		ID:         uuid.New(),
		PaymentRef: paymentRef,
		Amount:     amount,
		Status:     InvoiceStatusPending,
		PayerType:  PayerIndividual,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Transition moves the invoice to a new status. Final states are sticky:
// once paid, cancelled or failed the invoice never changes again.
func (inv *Invoice) Transition(to InvoiceStatus) error {
	if !to.IsValid() {
		return errors.New("payment: unknown invoice status " + string(to))
	}
	if inv.Status.IsFinal() {
		if inv.Status == to {
			return nil
		}
		return ErrInvoiceFinal
	}
	inv.Status = to
	inv.UpdatedAt = time.Now()
	if to == InvoiceStatusPaid {
		now := time.Now()
		inv.PaidAt = &now
	}
	return nil
}

// ApplyPrivacy enforces the retention rules for the payer type: individual
// payers never retain personal data, organizations only with explicit
// opt-in. Without retention the QR payloads, the payer email and the
// entity registration number are dropped before the invoice is stored.
func (inv *Invoice) ApplyPrivacy() {
	if inv.PayerType == PayerIndividual {
		inv.RetainData = false
	}
	if !inv.RetainData {
		inv.QRText = ""
		inv.QRImage = ""
		inv.PayerEmail = ""
		inv.EntityRegNo = ""
	}
}

// Scrub removes all personal data from the invoice. Used by the retention
// job once an individual payer's invoice has aged out.
func (inv *Invoice) Scrub() {
	inv.QRText = ""
	inv.QRImage = ""
	inv.PayerEmail = ""
	inv.EntityName = ""
	inv.EntityRegNo = ""
	inv.UpdatedAt = time.Now()
}
