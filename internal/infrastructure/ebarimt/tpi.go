package ebarimt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mnpay/backend/internal/domain/fiscal"
	"github.com/mnpay/backend/internal/domain/tax"
	"github.com/mnpay/backend/internal/infrastructure/cache"
)

// TPIError is a non-2xx reply from the authority's remote services
type TPIError struct {
	StatusCode int
	Body       string
}

func (e *TPIError) Error() string {
	return fmt.Sprintf("ebarimt: tpi returned status %d: %s", e.StatusCode, e.Body)
}

// TPIClient talks to the authority's remote information services. It
// holds a password-grant bearer token in the shared token cache and
// implements fiscal.TaxpayerRegistry.
type TPIClient struct {
	config     *TPIConfig
	httpClient *http.Client
	tokens     cache.TokenCache
	tokenKey   string
	mu         sync.Mutex
	logger     *zap.Logger
}

// NewTPIClient creates a client for the authority's remote services
func NewTPIClient(cfg *TPIConfig, tokens cache.TokenCache, logger *zap.Logger) (*TPIClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = cache.NewInMemoryTokenCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TPIClient{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		tokenKey:   cache.Fingerprint(cfg.AuthURL, cfg.Username, cfg.ClientID),
		logger:     logger.Named("tpi"),
	}, nil
}

// InvalidateToken drops the cached token, forcing re-authentication
func (c *TPIClient) InvalidateToken() {
	c.tokens.Delete(c.tokenKey)
}

// accessToken returns a usable bearer token, authenticating when the
// cached one is missing or inside the leeway window. The mutex serializes
// authentication; the cache is re-checked after acquiring it so only one
// caller pays for the round trip.
func (c *TPIClient) accessToken(ctx context.Context) (string, error) {
	now := time.Now()
	if t, ok := c.tokens.Get(c.tokenKey); ok && t.Usable(c.config.TokenLeeway, now) {
		return t.AccessToken, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now = time.Now()
	if t, ok := c.tokens.Get(c.tokenKey); ok && t.Usable(c.config.TokenLeeway, now) {
		return t.AccessToken, nil
	}

	token, err := c.authenticate(ctx)
	if err != nil {
		return "", err
	}
	c.tokens.Put(c.tokenKey, token)
	return token.AccessToken, nil
}

// authenticate performs the password grant against the identity server
func (c *TPIClient) authenticate(ctx context.Context) (*cache.Token, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.config.Username)
	form.Set("password", c.config.Password)
	form.Set("client_id", c.config.ClientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("ebarimt: failed to build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ebarimt: authentication request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ebarimt: failed to read auth response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TPIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var result tokenResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("ebarimt: failed to decode auth response: %w", err)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("ebarimt: auth response carried no access token")
	}

	now := time.Now()
	c.logger.Debug("authenticated against identity server",
		zap.Int64("expires_in", result.ExpiresIn))
	return &cache.Token{
		AccessToken:      result.AccessToken,
		RefreshToken:     result.RefreshToken,
		ExpiresAt:        now.Add(time.Duration(result.ExpiresIn) * time.Second),
		RefreshExpiresAt: now.Add(time.Duration(result.RefreshExpiresIn) * time.Second),
	}, nil
}

// doRequest performs one authenticated call against the remote services
func (c *TPIClient) doRequest(ctx context.Context, method, path string, body, result any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ebarimt: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	endpoint := strings.TrimSuffix(c.config.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("ebarimt: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ebarimt: tpi request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ebarimt: failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// token revoked upstream; drop it so the next call re-authenticates
		c.InvalidateToken()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TPIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("ebarimt: failed to decode response: %w", err)
		}
	}
	return nil
}

// TaxpayerInfo looks up a taxpayer by TIN
func (c *TPIClient) TaxpayerInfo(ctx context.Context, tin string) (*fiscal.TaxpayerInfo, error) {
	var result taxpayerInfoResult
	path := "api/info/check/getInfo?tin=" + url.QueryEscape(tin)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &fiscal.TaxpayerInfo{
		TIN:       result.Data.TIN,
		Name:      result.Data.Name,
		VATPayer:  result.Data.VatPayer,
		CityPayer: result.Data.CityPayer,
		Found:     result.Data.Found,
	}, nil
}

// TinByRegistration resolves a state registration number to a TIN
func (c *TPIClient) TinByRegistration(ctx context.Context, regNo string) (string, error) {
	var result tinInfoResult
	path := "api/info/check/getTinInfo?regNo=" + url.QueryEscape(regNo)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return "", err
	}
	return result.Data, nil
}

// BranchInfo lists the branches registered for the operator
func (c *TPIClient) BranchInfo(ctx context.Context) ([]fiscal.BranchInfo, error) {
	var result branchInfoResult
	if err := c.doRequest(ctx, http.MethodGet, "getBranchInfo", nil, &result); err != nil {
		return nil, err
	}
	branches := make([]fiscal.BranchInfo, 0, len(result.Data))
	for _, b := range result.Data {
		branches = append(branches, fiscal.BranchInfo{
			BranchNo:     b.BranchNo,
			PosNo:        b.PosNo,
			DistrictCode: b.DistrictCode,
			Name:         b.Name,
		})
	}
	return branches, nil
}

// ProductTaxCodes searches the product classification registry
func (c *TPIClient) ProductTaxCodes(ctx context.Context, query string) ([]fiscal.ProductTaxCode, error) {
	var result productTaxCodeResult
	path := "api/receipt/receipt/getProductTaxCode"
	if query != "" {
		path += "?search=" + url.QueryEscape(query)
	}
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	codes := make([]fiscal.ProductTaxCode, 0, len(result.Data))
	for _, p := range result.Data {
		codes = append(codes, fiscal.ProductTaxCode{
			Code:    p.Code,
			Name:    p.Name,
			Regime:  tax.Regime(p.VatType),
			CityTax: p.CityTax,
		})
	}
	return codes, nil
}

// StockQR resolves a stock QR code to its product record
func (c *TPIClient) StockQR(ctx context.Context, code string) (*fiscal.ProductTaxCode, error) {
	var result stockQRResult
	path := "api/inventory/stock/getStockQr?stockQr=" + url.QueryEscape(code)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &fiscal.ProductTaxCode{
		Code:    result.Data.Code,
		Name:    result.Data.Name,
		Regime:  tax.Regime(result.Data.VatType),
		CityTax: result.Data.CityTax,
	}, nil
}

// RegisterOperatorMerchants registers merchants under the operator
func (c *TPIClient) RegisterOperatorMerchants(ctx context.Context, merchants []fiscal.OperatorMerchant) error {
	payload := saveOprMerchantsPayload{Merchants: make([]oprMerchantPayload, 0, len(merchants))}
	for _, m := range merchants {
		payload.Merchants = append(payload.Merchants, oprMerchantPayload{
			TIN:   m.TIN,
			RegNo: m.RegNo,
			Name:  m.Name,
		})
	}
	return c.doRequest(ctx, http.MethodPost, "api/tpi/receipt/saveOprMerchants", payload, nil)
}

// Ensure TPIClient implements the registry port
var _ fiscal.TaxpayerRegistry = (*TPIClient)(nil)
