package fiscal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mnpay/backend/internal/domain/fiscal"
	"github.com/mnpay/backend/internal/domain/tax"
	"github.com/mnpay/backend/internal/infrastructure/cache"
	"github.com/mnpay/backend/internal/infrastructure/notify"
	"github.com/mnpay/backend/internal/infrastructure/qr"
)

// Errors for receipt issuance
var (
	ErrNoBranchConfigured = errors.New("fiscal: no branch available for receipt routing")
	ErrPersistenceOff     = errors.New("fiscal: receipt persistence is disabled")
)

const (
	merchantInfoCacheKey = "posapi:info"
	referenceTTL         = time.Hour
)

// IssueReceiptsInput describes one order to fiscalize
type IssueReceiptsInput struct {
	OrderRef      string
	Items         []tax.LineItem
	CustomerRegNo string // state registration number; triggers a B2B receipt
	CustomerEmail string
	ConsumerNo    string // consumer number printed on B2C receipts
	BranchNo      string // overrides the daemon's branch routing
	PosNo         string
	DistrictCode  string
}

// IssuedReceipt pairs a stored receipt with its rendered QR image
type IssuedReceipt struct {
	Receipt *fiscal.Receipt
	QRPNG   []byte
}

// IssueReceiptsResult is the outcome of fiscalizing one order
type IssueReceiptsResult struct {
	Receipts []*IssuedReceipt
	Type     tax.ReceiptType
}

// BranchDefaults is the fallback selling point used when the daemon
// reports no branches.
type BranchDefaults struct {
	BranchNo     string
	PosNo        string
	DistrictCode string
}

// ReceiptService fiscalizes orders: it groups line items by tax regime,
// submits the groups to the local daemon and records the authority's
// identifiers. The untaxed group always goes first in its own receipt;
// if the authority rejects it, no taxed receipt is submitted. All taxed
// groups then share one receipt, each as its own sub-receipt.
type ReceiptService struct {
	gateway  fiscal.ReceiptGateway
	registry fiscal.TaxpayerRegistry
	receipts fiscal.ReceiptRepository
	refCache cache.ReferenceCache
	email    *notify.EmailSender
	defaults BranchDefaults
	renderQR bool
	logger   *zap.Logger
}

// ReceiptServiceConfig holds dependencies for the receipt service.
// Receipts, RefCache and Email are optional.
type ReceiptServiceConfig struct {
	Gateway  fiscal.ReceiptGateway
	Registry fiscal.TaxpayerRegistry
	Receipts fiscal.ReceiptRepository
	RefCache cache.ReferenceCache
	Email    *notify.EmailSender
	Defaults BranchDefaults
	RenderQR bool
	Logger   *zap.Logger
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(config ReceiptServiceConfig) *ReceiptService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{
		gateway:  config.Gateway,
		registry: config.Registry,
		receipts: config.Receipts,
		refCache: config.RefCache,
		email:    config.Email,
		defaults: config.Defaults,
		renderQR: config.RenderQR,
		logger:   logger.Named("fiscal"),
	}
}

// IssueReceipts fiscalizes one order. Returns the receipts accepted so
// far together with the first submission error, so callers can tell a
// full failure from a partial one.
func (s *ReceiptService) IssueReceipts(ctx context.Context, input *IssueReceiptsInput) (*IssueReceiptsResult, error) {
	info, err := s.merchantInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read merchant info: %w", err)
	}

	batch, err := tax.BuildBatch(info.Merchant(), input.Items)
	if err != nil {
		return nil, err
	}

	branch, err := s.resolveBranch(info, input)
	if err != nil {
		return nil, err
	}

	receiptType, customerTIN := s.resolveReceiptType(ctx, input.CustomerRegNo)

	result := &IssueReceiptsResult{Type: receiptType}

	notVAT, taxed := batch.NotVATFirst()
	if notVAT != nil {
		issued, err := s.submitGroups(ctx, input, info, branch, receiptType, customerTIN, []tax.ReceiptGroup{*notVAT})
		if err != nil {
			return result, fmt.Errorf("untaxed receipt rejected: %w", err)
		}
		result.Receipts = append(result.Receipts, issued)
	}
	if len(taxed) > 0 {
		issued, err := s.submitGroups(ctx, input, info, branch, receiptType, customerTIN, taxed)
		if err != nil {
			return result, fmt.Errorf("taxed receipt rejected: %w", err)
		}
		result.Receipts = append(result.Receipts, issued)
	}

	s.notifyCustomer(input, result)
	return result, nil
}

// merchantInfo reads the operator info from the daemon, serving from the
// reference cache when available.
func (s *ReceiptService) merchantInfo(ctx context.Context) (*fiscal.MerchantInfo, error) {
	if s.refCache != nil {
		var cached fiscal.MerchantInfo
		if hit, err := s.refCache.Get(ctx, merchantInfoCacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	info, err := s.gateway.Info(ctx)
	if err != nil {
		return nil, err
	}

	if s.refCache != nil {
		if err := s.refCache.Set(ctx, merchantInfoCacheKey, info, referenceTTL); err != nil {
			s.logger.Warn("failed to cache merchant info", zap.Error(err))
		}
	}
	return info, nil
}

// resolveBranch picks the selling point: explicit input first, then the
// daemon's first registered branch, then the configured fallback.
func (s *ReceiptService) resolveBranch(info *fiscal.MerchantInfo, input *IssueReceiptsInput) (fiscal.BranchInfo, error) {
	if input.BranchNo != "" {
		return fiscal.BranchInfo{
			BranchNo:     input.BranchNo,
			PosNo:        input.PosNo,
			DistrictCode: input.DistrictCode,
		}, nil
	}
	if len(info.Branches) > 0 {
		return info.Branches[0], nil
	}
	if s.defaults.BranchNo != "" {
		return fiscal.BranchInfo{
			BranchNo:     s.defaults.BranchNo,
			PosNo:        s.defaults.PosNo,
			DistrictCode: s.defaults.DistrictCode,
		}, nil
	}
	return fiscal.BranchInfo{}, ErrNoBranchConfigured
}

// resolveReceiptType decides between consumer and business receipts. A
// registration number that cannot be resolved to a TIN degrades to a
// consumer receipt rather than blocking issuance.
func (s *ReceiptService) resolveReceiptType(ctx context.Context, regNo string) (tax.ReceiptType, string) {
	if regNo == "" || s.registry == nil {
		return tax.ReceiptB2C, ""
	}

	tin, err := s.tinByRegistration(ctx, regNo)
	if err != nil || tin == "" {
		s.logger.Warn("could not resolve customer TIN, issuing consumer receipt",
			zap.String("reg_no", regNo),
			zap.Error(err))
		return tax.ReceiptB2C, ""
	}
	return tax.ReceiptB2B, tin
}

func (s *ReceiptService) submitGroups(
	ctx context.Context,
	input *IssueReceiptsInput,
	info *fiscal.MerchantInfo,
	branch fiscal.BranchInfo,
	receiptType tax.ReceiptType,
	customerTIN string,
	groups []tax.ReceiptGroup,
) (*IssuedReceipt, error) {
	req := &fiscal.SaveReceiptRequest{
		MerchantTIN:  info.TIN,
		BranchNo:     branch.BranchNo,
		PosNo:        branch.PosNo,
		DistrictCode: branch.DistrictCode,
		Type:         receiptType,
		CustomerTIN:  customerTIN,
		ConsumerNo:   input.ConsumerNo,
		OrderRef:     input.OrderRef,
		Groups:       groups,
	}

	receipt := fiscal.NewReceipt(input.OrderRef, info.TIN)
	for _, group := range groups {
		receipt.TotalAmount = receipt.TotalAmount.Add(group.Total)
		receipt.TotalVAT = receipt.TotalVAT.Add(group.VAT)
		receipt.TotalCityTax = receipt.TotalCityTax.Add(group.CityTax)
	}
	// a single-group receipt keeps its regime; a mixed one has none
	if len(groups) == 1 {
		receipt.Regime = groups[0].Regime
	}

	resp, err := s.gateway.SaveReceipt(ctx, req)
	if err != nil {
		return nil, err
	}

	receipt.ReceiptID = resp.ReceiptID
	receipt.BranchNo = branch.BranchNo
	receipt.PosNo = branch.PosNo
	receipt.DistrictCode = branch.DistrictCode
	receipt.Type = receiptType
	receipt.CustomerTIN = customerTIN
	receipt.Lottery = resp.Lottery
	receipt.QRData = resp.QRData
	receipt.RawResponse = resp.Raw
	if !resp.IssuedAt.IsZero() {
		receipt.IssuedAt = resp.IssuedAt
	}
	// lottery numbers are only granted to consumers
	if receiptType == tax.ReceiptB2B {
		receipt.Lottery = ""
	}

	if s.receipts != nil {
		if err := s.receipts.Create(ctx, receipt); err != nil {
			s.logger.Error("failed to store issued receipt",
				zap.String("order_ref", input.OrderRef),
				zap.String("receipt_id", receipt.ReceiptID),
				zap.Error(err))
		}
	}

	issued := &IssuedReceipt{Receipt: receipt}
	if s.renderQR && receipt.QRData != "" {
		png, err := qr.PNG(receipt.QRData, 0)
		if err != nil {
			s.logger.Warn("failed to render receipt QR",
				zap.String("receipt_id", receipt.ReceiptID),
				zap.Error(err))
		} else {
			issued.QRPNG = png
		}
	}

	s.logger.Info("receipt issued",
		zap.String("order_ref", input.OrderRef),
		zap.String("receipt_id", receipt.ReceiptID),
		zap.Int("groups", len(groups)),
		zap.String("total", receipt.TotalAmount.StringFixed(2)))
	return issued, nil
}

// notifyCustomer emails the first issued receipt. Failures are logged
// and never fail the issuance.
func (s *ReceiptService) notifyCustomer(input *IssueReceiptsInput, result *IssueReceiptsResult) {
	if s.email == nil || input.CustomerEmail == "" || len(result.Receipts) == 0 {
		return
	}
	first := result.Receipts[0]
	mail := &notify.ReceiptEmail{
		To:        input.CustomerEmail,
		OrderRef:  input.OrderRef,
		ReceiptID: first.Receipt.ReceiptID,
		Lottery:   first.Receipt.Lottery,
		Amount:    first.Receipt.TotalAmount.StringFixed(2),
		QRPNG:     first.QRPNG,
	}
	if err := s.email.SendReceipt(mail); err != nil {
		s.logger.Warn("failed to send receipt email",
			zap.String("order_ref", input.OrderRef),
			zap.Error(err))
	}
}

// InvalidateReceipt returns an issued receipt to the authority and marks
// the stored copy invalidated.
func (s *ReceiptService) InvalidateReceipt(ctx context.Context, receiptID string) error {
	if s.receipts == nil {
		return ErrPersistenceOff
	}
	receipt, err := s.receipts.GetByReceiptID(ctx, receiptID)
	if err != nil {
		return err
	}
	if receipt.Status == fiscal.ReceiptStatusInvalidated {
		return fiscal.ErrReceiptInvalidated
	}

	if err := s.gateway.InvalidateReceipt(ctx, receipt.ReceiptID, receipt.IssuedAt); err != nil {
		return fmt.Errorf("failed to invalidate receipt: %w", err)
	}
	if err := receipt.Invalidate(); err != nil {
		return err
	}
	return s.receipts.Update(ctx, receipt)
}

// ListReceipts returns the stored receipts for an order
func (s *ReceiptService) ListReceipts(ctx context.Context, orderRef string) ([]*fiscal.Receipt, error) {
	if s.receipts == nil {
		return nil, ErrPersistenceOff
	}
	return s.receipts.ListByOrderRef(ctx, orderRef)
}

// SendData flushes the daemon's locally buffered receipts upstream
func (s *ReceiptService) SendData(ctx context.Context) error {
	return s.gateway.SendData(ctx)
}

// BankAccounts lists the settlement accounts registered with the authority
func (s *ReceiptService) BankAccounts(ctx context.Context) ([]fiscal.BankAccount, error) {
	return s.gateway.BankAccounts(ctx)
}

// MerchantInfo exposes the cached operator information
func (s *ReceiptService) MerchantInfo(ctx context.Context) (*fiscal.MerchantInfo, error) {
	return s.merchantInfo(ctx)
}

// TaxpayerInfo looks up a taxpayer, serving repeat lookups from cache
func (s *ReceiptService) TaxpayerInfo(ctx context.Context, tin string) (*fiscal.TaxpayerInfo, error) {
	key := "tpi:taxpayer:" + tin
	if s.refCache != nil {
		var cached fiscal.TaxpayerInfo
		if hit, err := s.refCache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}
	info, err := s.registry.TaxpayerInfo(ctx, tin)
	if err != nil {
		return nil, err
	}
	if s.refCache != nil && info.Found {
		if err := s.refCache.Set(ctx, key, info, referenceTTL); err != nil {
			s.logger.Warn("failed to cache taxpayer info", zap.Error(err))
		}
	}
	return info, nil
}

// ProductTaxCodes searches the classification registry, cached per query
func (s *ReceiptService) ProductTaxCodes(ctx context.Context, query string) ([]fiscal.ProductTaxCode, error) {
	key := "tpi:codes:" + query
	if s.refCache != nil {
		var cached []fiscal.ProductTaxCode
		if hit, err := s.refCache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}
	codes, err := s.registry.ProductTaxCodes(ctx, query)
	if err != nil {
		return nil, err
	}
	if s.refCache != nil && len(codes) > 0 {
		if err := s.refCache.Set(ctx, key, codes, referenceTTL); err != nil {
			s.logger.Warn("failed to cache product tax codes", zap.Error(err))
		}
	}
	return codes, nil
}

// StockQR resolves a stock QR code to its product record
func (s *ReceiptService) StockQR(ctx context.Context, code string) (*fiscal.ProductTaxCode, error) {
	return s.registry.StockQR(ctx, code)
}

// RegisterOperatorMerchants registers merchants under the service operator
func (s *ReceiptService) RegisterOperatorMerchants(ctx context.Context, merchants []fiscal.OperatorMerchant) error {
	return s.registry.RegisterOperatorMerchants(ctx, merchants)
}

// tinByRegistration resolves a registration number to a TIN with caching
func (s *ReceiptService) tinByRegistration(ctx context.Context, regNo string) (string, error) {
	key := "tpi:tin:" + regNo
	if s.refCache != nil {
		var cached string
		if hit, err := s.refCache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}
	tin, err := s.registry.TinByRegistration(ctx, regNo)
	if err != nil {
		return "", err
	}
	if s.refCache != nil && tin != "" {
		if err := s.refCache.Set(ctx, key, tin, referenceTTL); err != nil {
			s.logger.Warn("failed to cache TIN lookup", zap.Error(err))
		}
	}
	return tin, nil
}
