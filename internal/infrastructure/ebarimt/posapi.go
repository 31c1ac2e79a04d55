package ebarimt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mnpay/backend/internal/domain/fiscal"
	"github.com/mnpay/backend/internal/domain/tax"
)

// receiptDateLayout is the timestamp format the daemon speaks
const receiptDateLayout = "2006-01-02 15:04:05"

// PosAPIError is a non-2xx reply from the receipt daemon
type PosAPIError struct {
	StatusCode int
	Body       string
}

func (e *PosAPIError) Error() string {
	return fmt.Sprintf("ebarimt: posapi returned status %d: %s", e.StatusCode, e.Body)
}

// PosAPIClient talks to the local receipt daemon. It implements
// fiscal.ReceiptGateway.
type PosAPIClient struct {
	config        *PosAPIConfig
	httpClient    *http.Client
	receiptClient *http.Client
	logger        *zap.Logger
}

// NewPosAPIClient creates a client for the local receipt daemon
func NewPosAPIClient(cfg *PosAPIConfig, logger *zap.Logger) (*PosAPIClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PosAPIClient{
		config:        cfg,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		receiptClient: &http.Client{Timeout: cfg.ReceiptTimeout},
		logger:        logger.Named("posapi"),
	}, nil
}

func (c *PosAPIClient) url(path string) string {
	return strings.TrimSuffix(c.config.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// doRequest performs one call against the daemon and decodes the reply
func (c *PosAPIClient) doRequest(ctx context.Context, client *http.Client, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ebarimt: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reqBody)
	if err != nil {
		return fmt.Errorf("ebarimt: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("X-API-KEY", c.config.APIKey)
	}
	if c.config.BasicAuthUser != "" {
		req.SetBasicAuth(c.config.BasicAuthUser, c.config.BasicAuthPass)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("ebarimt: posapi request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ebarimt: failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &PosAPIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("ebarimt: failed to decode response: %w", err)
		}
	}
	return nil
}

// Info fetches the operator information from the daemon
func (c *PosAPIClient) Info(ctx context.Context) (*fiscal.MerchantInfo, error) {
	var result infoResult
	if err := c.doRequest(ctx, c.httpClient, http.MethodGet, "rest/info", nil, &result); err != nil {
		return nil, err
	}

	info := &fiscal.MerchantInfo{
		TIN:  result.OperatorTIN,
		Name: result.OperatorName,
	}
	if len(result.Merchants) > 0 {
		m := result.Merchants[0]
		info.TIN = m.TIN
		info.Name = m.Name
		info.VATPayer = m.VatPayer
		info.CityTaxPayer = m.CityTax
	}
	for _, b := range result.BranchInfos {
		info.Branches = append(info.Branches, fiscal.BranchInfo{
			BranchNo:     b.BranchNo,
			PosNo:        b.PosNo,
			DistrictCode: b.DistrictCode,
			Name:         b.Name,
		})
	}
	return info, nil
}

// SaveReceipt registers one receipt with the daemon. Each group in the
// request becomes one sub-receipt under a single bill id.
func (c *PosAPIClient) SaveReceipt(ctx context.Context, req *fiscal.SaveReceiptRequest) (*fiscal.SaveReceiptResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload := buildSaveReceiptPayload(req)

	var result saveReceiptResult
	if err := c.doRequest(ctx, c.receiptClient, http.MethodPost, "rest/receipt", payload, &result); err != nil {
		c.logger.Warn("receipt submission failed",
			zap.String("order_ref", req.OrderRef),
			zap.Int("groups", len(req.Groups)),
			zap.Error(err))
		return nil, err
	}

	issuedAt := time.Now()
	if result.Date != "" {
		if parsed, err := time.ParseInLocation(receiptDateLayout, result.Date, time.Local); err == nil {
			issuedAt = parsed
		}
	}

	c.logger.Info("receipt issued",
		zap.String("receipt_id", result.ID),
		zap.String("order_ref", req.OrderRef),
		zap.Int("groups", len(req.Groups)))

	return &fiscal.SaveReceiptResponse{
		ReceiptID:    result.ID,
		Lottery:      result.Lottery,
		QRData:       result.QRData,
		TotalAmount:  result.TotalAmount,
		TotalVAT:     result.TotalVAT,
		TotalCityTax: result.TotalCityTax,
		IssuedAt:     issuedAt,
		Raw:          mustJSON(result),
	}, nil
}

// InvalidateReceipt returns an issued receipt to the authority
func (c *PosAPIClient) InvalidateReceipt(ctx context.Context, receiptID string, issuedAt time.Time) error {
	payload := deleteReceiptPayload{
		ID:   receiptID,
		Date: issuedAt.Format(receiptDateLayout),
	}
	if err := c.doRequest(ctx, c.receiptClient, http.MethodDelete, "rest/receipt", payload, nil); err != nil {
		return err
	}
	c.logger.Info("receipt invalidated", zap.String("receipt_id", receiptID))
	return nil
}

// SendData asks the daemon to flush buffered receipts to the authority
func (c *PosAPIClient) SendData(ctx context.Context) error {
	return c.doRequest(ctx, c.httpClient, http.MethodGet, "rest/sendData", nil, nil)
}

// BankAccounts lists the registered settlement accounts
func (c *PosAPIClient) BankAccounts(ctx context.Context) ([]fiscal.BankAccount, error) {
	var result bankAccountsResult
	if err := c.doRequest(ctx, c.httpClient, http.MethodGet, "rest/bankAccounts", nil, &result); err != nil {
		return nil, err
	}
	accounts := make([]fiscal.BankAccount, 0, len(result.Accounts))
	for _, a := range result.Accounts {
		accounts = append(accounts, fiscal.BankAccount{
			AccountNo: a.AccountNo,
			BankCode:  a.BankCode,
			IsDefault: a.IsDefault,
		})
	}
	return accounts, nil
}

// buildSaveReceiptPayload maps a domain request onto the daemon's wire
// form. Envelope totals are summed across all groups.
func buildSaveReceiptPayload(req *fiscal.SaveReceiptRequest) saveReceiptPayload {
	receiptType := req.Type
	if receiptType == "" {
		receiptType = tax.ReceiptB2C
	}

	payload := saveReceiptPayload{
		DistrictCode: req.DistrictCode,
		MerchantTin:  req.MerchantTIN,
		PosNo:        req.PosNo,
		BranchNo:     req.BranchNo,
		CustomerTin:  req.CustomerTIN,
		ConsumerNo:   req.ConsumerNo,
		Type:         string(receiptType),
		Receipts:     make([]receiptPayload, 0, len(req.Groups)),
	}

	for _, group := range req.Groups {
		items := make([]receiptItemPayload, 0, len(group.Items))
		for _, it := range group.Items {
			measureUnit := it.MeasureUnit
			if measureUnit == "" {
				measureUnit = "unit"
			}
			items = append(items, receiptItemPayload{
				Name:               it.Name,
				BarCode:            it.Barcode,
				BarCodeType:        string(it.BarcodeType),
				ClassificationCode: it.Code,
				TaxProductCode:     it.TaxProductCode,
				MeasureUnit:        measureUnit,
				Qty:                it.Qty,
				UnitPrice:          it.UnitPrice,
				TotalAmount:        it.Total,
				TotalVAT:           it.VAT,
				TotalCityTax:       it.CityTax,
			})
		}

		payload.TotalAmount = payload.TotalAmount.Add(group.Total)
		payload.TotalVAT = payload.TotalVAT.Add(group.VAT)
		payload.TotalCityTax = payload.TotalCityTax.Add(group.CityTax)
		payload.Receipts = append(payload.Receipts, receiptPayload{
			TaxType:      string(group.Regime),
			TotalAmount:  group.Total,
			TotalVAT:     group.VAT,
			TotalCityTax: group.CityTax,
			Items:        items,
		})
	}

	return payload
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// Ensure PosAPIClient implements the gateway port
var _ fiscal.ReceiptGateway = (*PosAPIClient)(nil)
