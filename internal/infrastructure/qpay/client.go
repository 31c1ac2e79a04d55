package qpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mnpay/backend/internal/domain/payment"
	"github.com/mnpay/backend/internal/infrastructure/cache"
)

// paymentDateLayout is the timestamp format of payment rows
const paymentDateLayout = "2006-01-02 15:04:05"

// APIError is a non-2xx reply from the merchant API
type APIError struct {
	StatusCode int
	Code       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("qpay: api returned status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the merchant API. It holds access and refresh tokens in
// the shared token cache and implements payment.InvoiceGateway.
type Client struct {
	config     *Config
	httpClient *http.Client
	tokens     cache.TokenCache
	tokenKey   string
	mu         sync.Mutex
	logger     *zap.Logger
}

// NewClient creates a merchant API client
func NewClient(cfg *Config, tokens cache.TokenCache, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = cache.NewInMemoryTokenCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		tokenKey:   cache.Fingerprint(cfg.BaseURL, cfg.Username, cfg.InvoiceCode),
		logger:     logger.Named("qpay"),
	}, nil
}

// InvalidateToken drops the cached token pair
func (c *Client) InvalidateToken() {
	c.tokens.Delete(c.tokenKey)
}

// accessToken returns a usable bearer token. Three paths, cheapest first:
// the cached access token, a refresh-token exchange, then full
// re-authentication with the merchant credentials.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	now := time.Now()
	if t, ok := c.tokens.Get(c.tokenKey); ok && t.Usable(c.config.TokenBuffer, now) {
		return t.AccessToken, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now = time.Now()
	cached, ok := c.tokens.Get(c.tokenKey)
	if ok && cached.Usable(c.config.TokenBuffer, now) {
		return cached.AccessToken, nil
	}

	if ok && cached.Refreshable(now) {
		if token, err := c.refresh(ctx, cached.RefreshToken); err == nil {
			c.tokens.Put(c.tokenKey, token)
			return token.AccessToken, nil
		}
		// refresh failed, fall through to full authentication
		c.logger.Debug("token refresh failed, re-authenticating")
	}

	token, err := c.authenticate(ctx)
	if err != nil {
		return "", err
	}
	c.tokens.Put(c.tokenKey, token)
	return token.AccessToken, nil
}

// authenticate exchanges the merchant credentials for a token pair
func (c *Client) authenticate(ctx context.Context) (*cache.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("auth/token"), nil)
	if err != nil {
		return nil, fmt.Errorf("qpay: failed to build auth request: %w", err)
	}
	req.SetBasicAuth(c.config.Username, c.config.Password)
	return c.requestToken(req)
}

// refresh exchanges a refresh token for a fresh token pair
func (c *Client) refresh(ctx context.Context, refreshToken string) (*cache.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("auth/refresh"), nil)
	if err != nil {
		return nil, fmt.Errorf("qpay: failed to build refresh request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+refreshToken)
	return c.requestToken(req)
}

func (c *Client) requestToken(req *http.Request) (*cache.Token, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qpay: authentication request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("qpay: failed to read auth response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var result tokenResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("qpay: failed to decode auth response: %w", err)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("qpay: auth response carried no access token")
	}

	now := time.Now()
	return &cache.Token{
		AccessToken:      result.AccessToken,
		RefreshToken:     result.RefreshToken,
		ExpiresAt:        tokenExpiry(result.ExpiresIn, now),
		RefreshExpiresAt: tokenExpiry(result.RefreshExpiresIn, now),
	}, nil
}

// tokenExpiry interprets the API's expiry field, which is an absolute
// epoch timestamp on production but a relative lifetime on some sandboxes.
func tokenExpiry(v int64, now time.Time) time.Time {
	if v == 0 {
		return now
	}
	if v > 1_000_000_000 {
		return time.Unix(v, 0)
	}
	return now.Add(time.Duration(v) * time.Second)
}

func (c *Client) url(path string) string {
	return strings.TrimSuffix(c.config.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// doRequest performs one authenticated call with transient-failure
// retries. A 401 drops the cached token and retries once with a fresh one.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) ([]byte, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("qpay: failed to encode request: %w", err)
		}
		payload = data
	}

	var lastErr error
	reauthed := false
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		token, err := c.accessToken(ctx)
		if err != nil {
			return nil, err
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.url(path), reqBody)
		if err != nil {
			return nil, fmt.Errorf("qpay: failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("qpay: request failed: %w", err)
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("qpay: failed to read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if result != nil {
				if err := json.Unmarshal(data, result); err != nil {
					return nil, fmt.Errorf("qpay: failed to decode response: %w", err)
				}
			}
			return data, nil
		case resp.StatusCode == http.StatusUnauthorized && !reauthed:
			// token revoked upstream; one fresh authentication attempt
			c.InvalidateToken()
			reauthed = true
			attempt--
			continue
		case resp.StatusCode >= 500:
			lastErr = apiError(resp.StatusCode, data)
			continue
		default:
			return nil, apiError(resp.StatusCode, data)
		}
	}
	return nil, lastErr
}

func apiError(status int, data []byte) error {
	var e errorResult
	_ = json.Unmarshal(data, &e)
	return &APIError{StatusCode: status, Code: e.Error, Body: string(data)}
}

// CreateInvoice registers a new QR invoice with the merchant API
func (c *Client) CreateInvoice(ctx context.Context, req *payment.CreateInvoiceRequest) (*payment.CreateInvoiceResponse, error) {
	if req.InvoiceCode == "" {
		req.InvoiceCode = c.config.InvoiceCode
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := createInvoicePayload{
		InvoiceCode:         req.InvoiceCode,
		SenderInvoiceNo:     req.SenderInvoiceNo,
		InvoiceReceiverCode: req.ReceiverCode,
		InvoiceDescription:  req.Description,
		Amount:              req.Amount.InexactFloat64(),
		CallbackURL:         c.config.ResolveCallbackURL(req.CallbackURL),
	}
	if req.ReceiverData != nil {
		body.InvoiceReceiverData = &receiverDataPayload{
			Name:  req.ReceiverData.Name,
			Email: req.ReceiverData.Email,
			Phone: req.ReceiverData.Phone,
		}
	}

	var result createInvoiceResult
	raw, err := c.doRequest(ctx, http.MethodPost, "invoice", body, &result)
	if err != nil {
		return nil, err
	}

	c.logger.Info("invoice created",
		zap.String("invoice_id", result.InvoiceID),
		zap.String("sender_invoice_no", req.SenderInvoiceNo))

	urls := make([]payment.DeeplinkURL, 0, len(result.URLs))
	for _, u := range result.URLs {
		urls = append(urls, payment.DeeplinkURL{
			Name:        u.Name,
			Description: u.Description,
			Link:        u.Link,
			Logo:        u.Logo,
		})
	}
	return &payment.CreateInvoiceResponse{
		InvoiceID: result.InvoiceID,
		QRText:    result.QRText,
		QRImage:   result.QRImage,
		ShortURL:  result.ShortURL,
		URLs:      urls,
		Raw:       string(raw),
	}, nil
}

// GetInvoice fetches the gateway's view of an invoice
func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (*payment.InvoiceDetails, error) {
	if invoiceID == "" {
		return nil, payment.ErrMissingInvoiceID
	}
	var result invoiceResult
	raw, err := c.doRequest(ctx, http.MethodGet, "invoice/"+invoiceID, nil, &result)
	if err != nil {
		return nil, err
	}
	return &payment.InvoiceDetails{
		InvoiceID:   result.InvoiceID,
		Status:      payment.GatewayStatus(result.InvoiceStatus),
		Amount:      decimal.NewFromFloat(result.TotalAmount),
		Description: result.InvoiceDescription,
		Raw:         string(raw),
	}, nil
}

// CancelInvoice voids an unpaid invoice
func (c *Client) CancelInvoice(ctx context.Context, invoiceID string) error {
	if invoiceID == "" {
		return payment.ErrMissingInvoiceID
	}
	_, err := c.doRequest(ctx, http.MethodDelete, "invoice/"+invoiceID, nil, nil)
	return err
}

// CheckPayment lists payments recorded against an invoice. The page limit
// is capped at the API maximum.
func (c *Client) CheckPayment(ctx context.Context, invoiceID string, page, limit int) (*payment.CheckResult, error) {
	if invoiceID == "" {
		return nil, payment.ErrMissingInvoiceID
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	body := paymentCheckPayload{
		ObjectType: "INVOICE",
		ObjectID:   invoiceID,
		Offset:     offsetPayload{PageNumber: page, PageLimit: limit},
	}

	var result paymentCheckResult
	raw, err := c.doRequest(ctx, http.MethodPost, "payment/check", body, &result)
	if err != nil {
		return nil, err
	}

	rows := make([]payment.PaymentRecord, 0, len(result.Rows))
	for _, r := range result.Rows {
		rows = append(rows, mapPaymentRow(r))
	}
	return &payment.CheckResult{Count: result.Count, Rows: rows, Raw: string(raw)}, nil
}

// GetPayment fetches one payment by its gateway id
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*payment.PaymentRecord, error) {
	var result paymentRowResult
	raw, err := c.doRequest(ctx, http.MethodGet, "payment/get/"+paymentID, nil, &result)
	if err != nil {
		return nil, err
	}
	record := mapPaymentRow(result)
	record.Raw = string(raw)
	return &record, nil
}

// CancelPayment voids a payment before settlement
func (c *Client) CancelPayment(ctx context.Context, paymentID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "payment/cancel/"+paymentID, nil, nil)
	return err
}

// RefundPayment refunds a settled payment
func (c *Client) RefundPayment(ctx context.Context, paymentID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "payment/refund/"+paymentID, nil, nil)
	return err
}

func mapPaymentRow(r paymentRowResult) payment.PaymentRecord {
	amount := decimal.NewFromFloat(r.Amount)
	if r.PaymentAmount != "" {
		if parsed, err := decimal.NewFromString(r.PaymentAmount); err == nil {
			amount = parsed
		}
	}
	record := payment.PaymentRecord{
		PaymentID: r.PaymentID,
		Status:    payment.GatewayStatus(r.PaymentStatus),
		Amount:    amount,
		Currency:  r.PaymentCurrency,
		Wallet:    r.PaymentWallet,
	}
	if r.PaymentDate != "" {
		if t, err := time.ParseInLocation(paymentDateLayout, r.PaymentDate, time.Local); err == nil {
			record.PaidAt = &t
		}
	}
	return record
}

// Ensure Client implements the gateway port
var _ payment.InvoiceGateway = (*Client)(nil)
