package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayerType distinguishes individual consumers from organizations
type PayerType string

const (
	PayerIndividual   PayerType = "Individual"
	PayerOrganization PayerType = "Organization"
)

// Transaction records one payment with its tax breakdown. Amounts are
// gross-additive: special tax and city tax are computed from the base
// amount and added on top, each rounded independently.
type Transaction struct {
	ID          uuid.UUID
	PaymentRef  string
	PayerType   PayerType
	PayerEmail  string
	EntityName  string
	EntityRegNo string
	BaseAmount  decimal.Decimal
	SpecialTax  decimal.Decimal
	CityTax     decimal.Decimal
	Total       decimal.Decimal
	RetainData  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTransaction creates a transaction for a payment request
func NewTransaction(paymentRef string, payerType PayerType, base decimal.Decimal) *Transaction {
	now := time.Now()
	return &Transaction{
		ID:         uuid.New(),
		PaymentRef: paymentRef,
		PayerType:  payerType,
		BaseAmount: base,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ApplyTaxes sets the tax figures and recomputes the total
func (t *Transaction) ApplyTaxes(special, city decimal.Decimal) {
	t.SpecialTax = special
	t.CityTax = city
	t.Total = t.BaseAmount.Add(special).Add(city)
	t.UpdatedAt = time.Now()
}

// ApplyPrivacy enforces retention rules: individual payers never opt in
func (t *Transaction) ApplyPrivacy() {
	if t.PayerType == PayerIndividual {
		t.RetainData = false
	}
}
