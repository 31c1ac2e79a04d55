package fiscal

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mnpay/backend/internal/domain/tax"
)

// Errors for gateway request validation
var (
	ErrMissingBranchNo   = errors.New("fiscal: branch number is required")
	ErrMissingPosNo      = errors.New("fiscal: pos number is required")
	ErrMissingDistrict   = errors.New("fiscal: district code is required")
	ErrEmptyReceiptGroup = errors.New("fiscal: receipt group has no items")
)

// MerchantInfo is the operator information reported by the local receipt
// daemon, including VAT registration status and configured branches.
type MerchantInfo struct {
	TIN          string
	Name         string
	VATPayer     bool
	CityTaxPayer bool
	Branches     []BranchInfo
}

// BranchInfo describes one registered selling point
type BranchInfo struct {
	BranchNo     string
	PosNo        string
	DistrictCode string
	Name         string
}

// Merchant converts the operator info into the tax domain's merchant view
func (m MerchantInfo) Merchant() tax.Merchant {
	return tax.Merchant{
		TIN:          m.TIN,
		Name:         m.Name,
		VATPayer:     m.VATPayer,
		CityTaxPayer: m.CityTaxPayer,
	}
}

// SaveReceiptRequest is one receipt submission to the local daemon.
// Each group becomes its own sub-receipt in the submission; all groups
// share one bill id.
type SaveReceiptRequest struct {
	MerchantTIN  string
	BranchNo     string
	PosNo        string
	DistrictCode string
	Type         tax.ReceiptType
	CustomerTIN  string
	ConsumerNo   string
	OrderRef     string
	Groups       []tax.ReceiptGroup
}

// Validate checks the request before it goes on the wire
func (r *SaveReceiptRequest) Validate() error {
	if r.MerchantTIN == "" {
		return ErrMissingMerchantTIN
	}
	if r.BranchNo == "" {
		return ErrMissingBranchNo
	}
	if r.PosNo == "" {
		return ErrMissingPosNo
	}
	if r.DistrictCode == "" {
		return ErrMissingDistrict
	}
	if len(r.Groups) == 0 {
		return ErrEmptyReceiptGroup
	}
	for _, g := range r.Groups {
		if len(g.Items) == 0 {
			return ErrEmptyReceiptGroup
		}
	}
	return nil
}

// SaveReceiptResponse carries the authority-assigned identifiers back
type SaveReceiptResponse struct {
	ReceiptID    string
	Lottery      string
	QRData       string
	TotalAmount  decimal.Decimal
	TotalVAT     decimal.Decimal
	TotalCityTax decimal.Decimal
	IssuedAt     time.Time
	Raw          string
}

// BankAccount is a settlement account registered with the authority
type BankAccount struct {
	AccountNo string
	BankCode  string
	IsDefault bool
}

// ReceiptGateway is the port to the local receipt daemon
type ReceiptGateway interface {
	// Info fetches the operator information, including VAT payer status
	Info(ctx context.Context) (*MerchantInfo, error)
	// SaveReceipt registers one receipt and returns its identifiers
	SaveReceipt(ctx context.Context, req *SaveReceiptRequest) (*SaveReceiptResponse, error)
	// InvalidateReceipt returns an issued receipt to the authority
	InvalidateReceipt(ctx context.Context, receiptID string, issuedAt time.Time) error
	// SendData flushes locally buffered receipts to the authority
	SendData(ctx context.Context) error
	// BankAccounts lists the registered settlement accounts
	BankAccounts(ctx context.Context) ([]BankAccount, error)
}

// TaxpayerInfo is the registry record for one taxpayer
type TaxpayerInfo struct {
	TIN       string
	Name      string
	VATPayer  bool
	CityPayer bool
	Found     bool
}

// ProductTaxCode is a classification entry from the authority's registry
type ProductTaxCode struct {
	Code    string
	Name    string
	Regime  tax.Regime
	CityTax bool
}

// OperatorMerchant is one merchant registered under a service operator
type OperatorMerchant struct {
	TIN   string
	RegNo string
	Name  string
}

// TaxpayerRegistry is the port to the authority's remote information
// services. Implementations authenticate on the caller's behalf and cache
// the bearer token.
type TaxpayerRegistry interface {
	// TaxpayerInfo looks up a taxpayer by TIN
	TaxpayerInfo(ctx context.Context, tin string) (*TaxpayerInfo, error)
	// TinByRegistration resolves a state registration number to a TIN
	TinByRegistration(ctx context.Context, regNo string) (string, error)
	// BranchInfo lists the branches registered for the authenticated operator
	BranchInfo(ctx context.Context) ([]BranchInfo, error)
	// ProductTaxCodes searches the product classification registry
	ProductTaxCodes(ctx context.Context, query string) ([]ProductTaxCode, error)
	// StockQR resolves a stock QR code to its product record
	StockQR(ctx context.Context, code string) (*ProductTaxCode, error)
	// RegisterOperatorMerchants registers merchants under the operator
	RegisterOperatorMerchants(ctx context.Context, merchants []OperatorMerchant) error
}
