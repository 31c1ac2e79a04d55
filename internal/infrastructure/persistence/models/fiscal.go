package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mnpay/backend/internal/domain/fiscal"
	"github.com/mnpay/backend/internal/domain/tax"
)

// FiscalReceipt is the persistence model for fiscal receipts
type FiscalReceipt struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ReceiptID    string          `gorm:"type:varchar(40);uniqueIndex;not null"`
	OrderRef     string          `gorm:"type:varchar(140);index;not null"`
	MerchantTIN  string          `gorm:"type:varchar(14);not null"`
	BranchNo     string          `gorm:"type:varchar(10)"`
	PosNo        string          `gorm:"type:varchar(20)"`
	DistrictCode string          `gorm:"type:varchar(10)"`
	Type         string          `gorm:"type:varchar(20);not null"`
	CustomerTIN  string          `gorm:"type:varchar(14)"`
	Regime       string          `gorm:"type:varchar(20);not null"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalVAT     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalCityTax decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Lottery      string          `gorm:"type:varchar(20)"`
	QRData       string          `gorm:"type:text"`
	Status       string          `gorm:"type:varchar(20);index;not null"`
	IssuedAt     time.Time       `gorm:"not null"`
	RawResponse  string          `gorm:"type:text"`
	CreatedAt    time.Time       `gorm:"not null"`
	UpdatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name
func (FiscalReceipt) TableName() string {
	return "fiscal_receipts"
}

// ToDomain converts the model to a domain receipt
func (m *FiscalReceipt) ToDomain() *fiscal.Receipt {
	return &fiscal.Receipt{
		ID:           m.ID,
		ReceiptID:    m.ReceiptID,
		OrderRef:     m.OrderRef,
		MerchantTIN:  m.MerchantTIN,
		BranchNo:     m.BranchNo,
		PosNo:        m.PosNo,
		DistrictCode: m.DistrictCode,
		Type:         tax.ReceiptType(m.Type),
		CustomerTIN:  m.CustomerTIN,
		Regime:       tax.Regime(m.Regime),
		TotalAmount:  m.TotalAmount,
		TotalVAT:     m.TotalVAT,
		TotalCityTax: m.TotalCityTax,
		Lottery:      m.Lottery,
		QRData:       m.QRData,
		Status:       fiscal.ReceiptStatus(m.Status),
		IssuedAt:     m.IssuedAt,
		RawResponse:  m.RawResponse,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// FromDomain fills the model from a domain receipt
func (m *FiscalReceipt) FromDomain(r *fiscal.Receipt) {
	m.ID = r.ID
	m.ReceiptID = r.ReceiptID
	m.OrderRef = r.OrderRef
	m.MerchantTIN = r.MerchantTIN
	m.BranchNo = r.BranchNo
	m.PosNo = r.PosNo
	m.DistrictCode = r.DistrictCode
	m.Type = string(r.Type)
	m.CustomerTIN = r.CustomerTIN
	m.Regime = string(r.Regime)
	m.TotalAmount = r.TotalAmount
	m.TotalVAT = r.TotalVAT
	m.TotalCityTax = r.TotalCityTax
	m.Lottery = r.Lottery
	m.QRData = r.QRData
	m.Status = string(r.Status)
	m.IssuedAt = r.IssuedAt
	m.RawResponse = r.RawResponse
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt
}
