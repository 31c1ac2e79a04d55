package fiscal

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mnpay/backend/internal/domain/fiscal"
	"github.com/mnpay/backend/internal/domain/tax"
	"github.com/mnpay/backend/internal/infrastructure/cache"
)

type MockReceiptGateway struct {
	mock.Mock
}

func (m *MockReceiptGateway) Info(ctx context.Context) (*fiscal.MerchantInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.MerchantInfo), args.Error(1)
}

func (m *MockReceiptGateway) SaveReceipt(ctx context.Context, req *fiscal.SaveReceiptRequest) (*fiscal.SaveReceiptResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.SaveReceiptResponse), args.Error(1)
}

func (m *MockReceiptGateway) InvalidateReceipt(ctx context.Context, receiptID string, issuedAt time.Time) error {
	args := m.Called(ctx, receiptID, issuedAt)
	return args.Error(0)
}

func (m *MockReceiptGateway) SendData(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockReceiptGateway) BankAccounts(ctx context.Context) ([]fiscal.BankAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fiscal.BankAccount), args.Error(1)
}

type MockTaxpayerRegistry struct {
	mock.Mock
}

func (m *MockTaxpayerRegistry) TaxpayerInfo(ctx context.Context, tin string) (*fiscal.TaxpayerInfo, error) {
	args := m.Called(ctx, tin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.TaxpayerInfo), args.Error(1)
}

func (m *MockTaxpayerRegistry) TinByRegistration(ctx context.Context, regNo string) (string, error) {
	args := m.Called(ctx, regNo)
	return args.String(0), args.Error(1)
}

func (m *MockTaxpayerRegistry) BranchInfo(ctx context.Context) ([]fiscal.BranchInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fiscal.BranchInfo), args.Error(1)
}

func (m *MockTaxpayerRegistry) ProductTaxCodes(ctx context.Context, query string) ([]fiscal.ProductTaxCode, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fiscal.ProductTaxCode), args.Error(1)
}

func (m *MockTaxpayerRegistry) StockQR(ctx context.Context, code string) (*fiscal.ProductTaxCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.ProductTaxCode), args.Error(1)
}

func (m *MockTaxpayerRegistry) RegisterOperatorMerchants(ctx context.Context, merchants []fiscal.OperatorMerchant) error {
	args := m.Called(ctx, merchants)
	return args.Error(0)
}

type MockReceiptRepository struct {
	mock.Mock
}

func (m *MockReceiptRepository) Create(ctx context.Context, receipt *fiscal.Receipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *MockReceiptRepository) GetByID(ctx context.Context, id uuid.UUID) (*fiscal.Receipt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.Receipt), args.Error(1)
}

func (m *MockReceiptRepository) GetByReceiptID(ctx context.Context, receiptID string) (*fiscal.Receipt, error) {
	args := m.Called(ctx, receiptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.Receipt), args.Error(1)
}

func (m *MockReceiptRepository) ListByOrderRef(ctx context.Context, orderRef string) ([]*fiscal.Receipt, error) {
	args := m.Called(ctx, orderRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*fiscal.Receipt), args.Error(1)
}

func (m *MockReceiptRepository) Update(ctx context.Context, receipt *fiscal.Receipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func merchantWithBranch() *fiscal.MerchantInfo {
	return &fiscal.MerchantInfo{
		TIN:          "37900846788",
		Name:         "Test Operator LLC",
		VATPayer:     true,
		CityTaxPayer: true,
		Branches: []fiscal.BranchInfo{
			{BranchNo: "001", PosNo: "10012345", DistrictCode: "3420"},
		},
	}
}

func mixedItems() []tax.LineItem {
	return []tax.LineItem{
		{Name: "Beer", Code: "0111001", Regime: tax.RegimeVATAble, CityTax: true, Qty: d("2"), Total: d("5000")},
		{Name: "Stamp", Code: "0222002", Regime: tax.RegimeNotVAT, Qty: d("1"), Total: d("1000")},
	}
}

func TestIssueReceiptsUntaxedGroupGoesFirst(t *testing.T) {
	gateway := new(MockReceiptGateway)
	receipts := new(MockReceiptRepository)

	gateway.On("Info", mock.Anything).Return(merchantWithBranch(), nil)

	var order []tax.Regime
	gateway.On("SaveReceipt", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		req := args.Get(1).(*fiscal.SaveReceiptRequest)
		order = append(order, req.Groups[0].Regime)
	}).Return(&fiscal.SaveReceiptResponse{
		ReceiptID: "00000000001234567890",
		Lottery:   "AB12345678",
		QRData:    "qr-payload",
	}, nil)
	receipts.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := NewReceiptService(ReceiptServiceConfig{Gateway: gateway, Receipts: receipts})

	result, err := svc.IssueReceipts(context.Background(), &IssueReceiptsInput{
		OrderRef: "SINV-2025-00017",
		Items:    mixedItems(),
	})
	require.NoError(t, err)
	require.Len(t, result.Receipts, 2)
	assert.Equal(t, []tax.Regime{tax.RegimeNotVAT, tax.RegimeVATAble}, order)
	assert.Equal(t, tax.ReceiptB2C, result.Type)
	receipts.AssertNumberOfCalls(t, "Create", 2)
}

func TestIssueReceiptsTaxedGroupsShareOneReceipt(t *testing.T) {
	gateway := new(MockReceiptGateway)

	gateway.On("Info", mock.Anything).Return(merchantWithBranch(), nil)

	var requests []*fiscal.SaveReceiptRequest
	gateway.On("SaveReceipt", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		requests = append(requests, args.Get(1).(*fiscal.SaveReceiptRequest))
	}).Return(&fiscal.SaveReceiptResponse{ReceiptID: "00000000001234567890"}, nil)

	svc := NewReceiptService(ReceiptServiceConfig{Gateway: gateway})

	result, err := svc.IssueReceipts(context.Background(), &IssueReceiptsInput{
		OrderRef: "SINV-2025-00017",
		Items: []tax.LineItem{
			{Name: "Beer", Code: "0111001", Regime: tax.RegimeVATAble, CityTax: true, Qty: d("1"), Total: d("5000")},
			{Name: "Book", Code: "5811001", Regime: tax.RegimeVATFree, Qty: d("1"), Total: d("20000")},
			{Name: "Stamp", Code: "0222002", Regime: tax.RegimeNotVAT, Qty: d("1"), Total: d("1000")},
		},
	})
	require.NoError(t, err)

	// one submission for the untaxed group, one for everything taxed
	gateway.AssertNumberOfCalls(t, "SaveReceipt", 2)
	require.Len(t, requests, 2)
	require.Len(t, requests[0].Groups, 1)
	assert.Equal(t, tax.RegimeNotVAT, requests[0].Groups[0].Regime)
	require.Len(t, requests[1].Groups, 2)
	assert.Equal(t, tax.RegimeVATAble, requests[1].Groups[0].Regime)
	assert.Equal(t, tax.RegimeVATFree, requests[1].Groups[1].Regime)

	require.Len(t, result.Receipts, 2)
	taxed := result.Receipts[1].Receipt
	assert.Equal(t, "25000.00", taxed.TotalAmount.StringFixed(2))
	assert.Empty(t, string(taxed.Regime))
}

func TestIssueReceiptsUntaxedRejectionStopsBatch(t *testing.T) {
	gateway := new(MockReceiptGateway)

	gateway.On("Info", mock.Anything).Return(merchantWithBranch(), nil)
	gateway.On("SaveReceipt", mock.Anything, mock.MatchedBy(func(req *fiscal.SaveReceiptRequest) bool {
		return req.Groups[0].Regime == tax.RegimeNotVAT
	})).Return(nil, assert.AnError)

	svc := NewReceiptService(ReceiptServiceConfig{Gateway: gateway})

	result, err := svc.IssueReceipts(context.Background(), &IssueReceiptsInput{
		OrderRef: "SINV-2025-00017",
		Items:    mixedItems(),
	})
	require.Error(t, err)
	assert.Empty(t, result.Receipts)
	gateway.AssertNumberOfCalls(t, "SaveReceipt", 1)
}

func TestIssueReceiptsB2BResolvesCustomerTIN(t *testing.T) {
	gateway := new(MockReceiptGateway)
	registry := new(MockTaxpayerRegistry)

	gateway.On("Info", mock.Anything).Return(merchantWithBranch(), nil)
	registry.On("TinByRegistration", mock.Anything, "6183352").Return("98104419", nil)

	var req *fiscal.SaveReceiptRequest
	gateway.On("SaveReceipt", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		req = args.Get(1).(*fiscal.SaveReceiptRequest)
	}).Return(&fiscal.SaveReceiptResponse{
		ReceiptID: "00000000001234567890",
		Lottery:   "AB12345678",
	}, nil)

	svc := NewReceiptService(ReceiptServiceConfig{Gateway: gateway, Registry: registry})

	result, err := svc.IssueReceipts(context.Background(), &IssueReceiptsInput{
		OrderRef:      "SINV-2025-00017",
		CustomerRegNo: "6183352",
		Items: []tax.LineItem{
			{Name: "Beer", Code: "0111001", Regime: tax.RegimeVATAble, Qty: d("1"), Total: d("10000")},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, tax.ReceiptB2B, req.Type)
	assert.Equal(t, "98104419", req.CustomerTIN)

	// business receipts never carry a lottery number
	assert.Empty(t, result.Receipts[0].Receipt.Lottery)
}

func TestIssueReceiptsTINLookupFailureDegradesToB2C(t *testing.T) {
	gateway := new(MockReceiptGateway)
	registry := new(MockTaxpayerRegistry)

	gateway.On("Info", mock.Anything).Return(merchantWithBranch(), nil)
	registry.On("TinByRegistration", mock.Anything, "6183352").Return("", assert.AnError)

	var req *fiscal.SaveReceiptRequest
	gateway.On("SaveReceipt", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		req = args.Get(1).(*fiscal.SaveReceiptRequest)
	}).Return(&fiscal.SaveReceiptResponse{ReceiptID: "id-1"}, nil)

	svc := NewReceiptService(ReceiptServiceConfig{Gateway: gateway, Registry: registry})

	_, err := svc.IssueReceipts(context.Background(), &IssueReceiptsInput{
		OrderRef:      "SINV-2025-00017",
		CustomerRegNo: "6183352",
		Items: []tax.LineItem{
			{Name: "Beer", Code: "0111001", Regime: tax.RegimeVATAble, Qty: d("1"), Total: d("10000")},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, tax.ReceiptB2C, req.Type)
	assert.Empty(t, req.CustomerTIN)
}

func TestIssueReceiptsNoBranchAnywhere(t *testing.T) {
	gateway := new(MockReceiptGateway)
	gateway.On("Info", mock.Anything).Return(&fiscal.MerchantInfo{
		TIN:      "37900846788",
		VATPayer: true,
	}, nil)

	svc := NewReceiptService(ReceiptServiceConfig{Gateway: gateway})

	_, err := svc.IssueReceipts(context.Background(), &IssueReceiptsInput{
		OrderRef: "SINV-2025-00017",
		Items: []tax.LineItem{
			{Name: "Beer", Code: "0111001", Regime: tax.RegimeVATAble, Qty: d("1"), Total: d("10000")},
		},
	})
	assert.ErrorIs(t, err, ErrNoBranchConfigured)
}

func TestIssueReceiptsFallbackBranch(t *testing.T) {
	gateway := new(MockReceiptGateway)
	gateway.On("Info", mock.Anything).Return(&fiscal.MerchantInfo{
		TIN:      "37900846788",
		VATPayer: true,
	}, nil)

	var req *fiscal.SaveReceiptRequest
	gateway.On("SaveReceipt", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		req = args.Get(1).(*fiscal.SaveReceiptRequest)
	}).Return(&fiscal.SaveReceiptResponse{ReceiptID: "id-1"}, nil)

	svc := NewReceiptService(ReceiptServiceConfig{
		Gateway:  gateway,
		Defaults: BranchDefaults{BranchNo: "002", PosNo: "10099999", DistrictCode: "2301"},
	})

	_, err := svc.IssueReceipts(context.Background(), &IssueReceiptsInput{
		OrderRef: "SINV-2025-00017",
		Items: []tax.LineItem{
			{Name: "Beer", Code: "0111001", Regime: tax.RegimeVATAble, Qty: d("1"), Total: d("10000")},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "002", req.BranchNo)
	assert.Equal(t, "2301", req.DistrictCode)
}

func TestIssueReceiptsNoEligibleItems(t *testing.T) {
	gateway := new(MockReceiptGateway)
	gateway.On("Info", mock.Anything).Return(merchantWithBranch(), nil)

	svc := NewReceiptService(ReceiptServiceConfig{Gateway: gateway})

	_, err := svc.IssueReceipts(context.Background(), &IssueReceiptsInput{
		OrderRef: "SINV-2025-00017",
		Items: []tax.LineItem{
			{Name: "No code", Regime: tax.RegimeVATAble, Qty: d("1"), Total: d("10000")},
		},
	})
	assert.ErrorIs(t, err, tax.ErrNoItems)
}

func TestMerchantInfoServedFromCache(t *testing.T) {
	gateway := new(MockReceiptGateway)
	gateway.On("Info", mock.Anything).Return(merchantWithBranch(), nil).Once()

	svc := NewReceiptService(ReceiptServiceConfig{
		Gateway:  gateway,
		RefCache: cache.NewInMemoryReferenceCache(),
	})

	ctx := context.Background()
	first, err := svc.MerchantInfo(ctx)
	require.NoError(t, err)
	second, err := svc.MerchantInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.TIN, second.TIN)
	gateway.AssertNumberOfCalls(t, "Info", 1)
}

func TestProductTaxCodesCachedPerQuery(t *testing.T) {
	registry := new(MockTaxpayerRegistry)
	registry.On("ProductTaxCodes", mock.Anything, "beer").Return([]fiscal.ProductTaxCode{
		{Code: "0111001", Name: "Beer", Regime: tax.RegimeVATAble, CityTax: true},
	}, nil).Once()

	svc := NewReceiptService(ReceiptServiceConfig{
		Registry: registry,
		RefCache: cache.NewInMemoryReferenceCache(),
	})

	ctx := context.Background()
	_, err := svc.ProductTaxCodes(ctx, "beer")
	require.NoError(t, err)
	codes, err := svc.ProductTaxCodes(ctx, "beer")
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, "0111001", codes[0].Code)
	registry.AssertNumberOfCalls(t, "ProductTaxCodes", 1)
}

func TestInvalidateReceipt(t *testing.T) {
	gateway := new(MockReceiptGateway)
	receipts := new(MockReceiptRepository)

	receipt := fiscal.NewReceipt("SINV-2025-00017", "37900846788")
	receipt.ReceiptID = "00000000001234567890"

	receipts.On("GetByReceiptID", mock.Anything, "00000000001234567890").Return(receipt, nil)
	gateway.On("InvalidateReceipt", mock.Anything, "00000000001234567890", receipt.IssuedAt).Return(nil)
	receipts.On("Update", mock.Anything, receipt).Return(nil)

	svc := NewReceiptService(ReceiptServiceConfig{Gateway: gateway, Receipts: receipts})

	require.NoError(t, svc.InvalidateReceipt(context.Background(), "00000000001234567890"))
	assert.Equal(t, fiscal.ReceiptStatusInvalidated, receipt.Status)
}

func TestInvalidateReceiptAlreadyInvalidated(t *testing.T) {
	gateway := new(MockReceiptGateway)
	receipts := new(MockReceiptRepository)

	receipt := fiscal.NewReceipt("SINV-2025-00017", "37900846788")
	receipt.ReceiptID = "00000000001234567890"
	require.NoError(t, receipt.Invalidate())

	receipts.On("GetByReceiptID", mock.Anything, "00000000001234567890").Return(receipt, nil)

	svc := NewReceiptService(ReceiptServiceConfig{Gateway: gateway, Receipts: receipts})

	err := svc.InvalidateReceipt(context.Background(), "00000000001234567890")
	assert.ErrorIs(t, err, fiscal.ErrReceiptInvalidated)
	gateway.AssertNotCalled(t, "InvalidateReceipt", mock.Anything, mock.Anything, mock.Anything)
}
