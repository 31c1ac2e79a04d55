package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mnpay/backend/internal/domain/payment"
)

// PaymentInvoice is the persistence model for payment invoices. The
// unique index on PaymentRef makes invoice creation idempotent per
// payment request.
type PaymentInvoice struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PaymentRef     string          `gorm:"type:varchar(140);uniqueIndex;not null"`
	GatewayInvoice string          `gorm:"type:varchar(64);index"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Status         string          `gorm:"type:varchar(20);index;not null"`
	Description    string          `gorm:"type:varchar(255)"`
	QRText         string          `gorm:"type:text"`
	QRImage        string          `gorm:"type:text"`
	PayerType      string          `gorm:"type:varchar(20);not null"`
	PayerEmail     string          `gorm:"type:varchar(140)"`
	EntityName     string          `gorm:"type:varchar(140)"`
	EntityRegNo    string          `gorm:"type:varchar(20)"`
	RetainData     bool            `gorm:"not null;default:false"`
	RawResponse    string          `gorm:"type:text"`
	PaidAt         *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name
func (PaymentInvoice) TableName() string {
	return "payment_invoices"
}

// ToDomain converts the model to a domain invoice
func (m *PaymentInvoice) ToDomain() *payment.Invoice {
	return &payment.Invoice{
		ID:             m.ID,
		PaymentRef:     m.PaymentRef,
		GatewayInvoice: m.GatewayInvoice,
		Amount:         m.Amount,
		Status:         payment.InvoiceStatus(m.Status),
		Description:    m.Description,
		QRText:         m.QRText,
		QRImage:        m.QRImage,
		PayerType:      payment.PayerType(m.PayerType),
		PayerEmail:     m.PayerEmail,
		EntityName:     m.EntityName,
		EntityRegNo:    m.EntityRegNo,
		RetainData:     m.RetainData,
		RawResponse:    m.RawResponse,
		PaidAt:         m.PaidAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromDomain fills the model from a domain invoice
func (m *PaymentInvoice) FromDomain(inv *payment.Invoice) {
	m.ID = inv.ID
	m.PaymentRef = inv.PaymentRef
	m.GatewayInvoice = inv.GatewayInvoice
	m.Amount = inv.Amount
	m.Status = string(inv.Status)
	m.Description = inv.Description
	m.QRText = inv.QRText
	m.QRImage = inv.QRImage
	m.PayerType = string(inv.PayerType)
	m.PayerEmail = inv.PayerEmail
	m.EntityName = inv.EntityName
	m.EntityRegNo = inv.EntityRegNo
	m.RetainData = inv.RetainData
	m.RawResponse = inv.RawResponse
	m.PaidAt = inv.PaidAt
	m.CreatedAt = inv.CreatedAt
	m.UpdatedAt = inv.UpdatedAt
}

// PaymentRequestMark records that a payment request was marked paid.
// The primary key on PaymentRef makes the mark exactly-once.
type PaymentRequestMark struct {
	PaymentRef string    `gorm:"type:varchar(140);primaryKey"`
	PaidAt     time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name
func (PaymentRequestMark) TableName() string {
	return "payment_request_marks"
}

// PaymentTransaction is the persistence model for payment transactions
type PaymentTransaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PaymentRef  string          `gorm:"type:varchar(140);uniqueIndex;not null"`
	PayerType   string          `gorm:"type:varchar(20);not null"`
	PayerEmail  string          `gorm:"type:varchar(140)"`
	EntityName  string          `gorm:"type:varchar(140)"`
	EntityRegNo string          `gorm:"type:varchar(20)"`
	BaseAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	SpecialTax  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CityTax     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Total       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	RetainData  bool            `gorm:"not null;default:false"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

// ToDomain converts the model to a domain transaction
func (m *PaymentTransaction) ToDomain() *payment.Transaction {
	return &payment.Transaction{
		ID:          m.ID,
		PaymentRef:  m.PaymentRef,
		PayerType:   payment.PayerType(m.PayerType),
		PayerEmail:  m.PayerEmail,
		EntityName:  m.EntityName,
		EntityRegNo: m.EntityRegNo,
		BaseAmount:  m.BaseAmount,
		SpecialTax:  m.SpecialTax,
		CityTax:     m.CityTax,
		Total:       m.Total,
		RetainData:  m.RetainData,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain fills the model from a domain transaction
func (m *PaymentTransaction) FromDomain(t *payment.Transaction) {
	m.ID = t.ID
	m.PaymentRef = t.PaymentRef
	m.PayerType = string(t.PayerType)
	m.PayerEmail = t.PayerEmail
	m.EntityName = t.EntityName
	m.EntityRegNo = t.EntityRegNo
	m.BaseAmount = t.BaseAmount
	m.SpecialTax = t.SpecialTax
	m.CityTax = t.CityTax
	m.Total = t.Total
	m.RetainData = t.RetainData
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
}
