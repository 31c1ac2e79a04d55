package qpay

import (
	"errors"
	"strings"
	"time"
)

// Defaults for the merchant API
const (
	DefaultBaseURL      = "https://merchant.qpay.mn/v2/"
	DefaultCallbackPath = "/api/v1/qpay/callback"
	DefaultTokenBuffer  = 5 * time.Minute
	DefaultTimeout      = 15 * time.Second
	MaxPageLimit        = 100
)

// Errors for configuration validation
var (
	ErrMissingUsername    = errors.New("qpay: missing username")
	ErrMissingPassword    = errors.New("qpay: missing password")
	ErrMissingInvoiceCode = errors.New("qpay: missing invoice code")
)

// Config configures the merchant API client
type Config struct {
	BaseURL  string
	Username string
	Password string
	// InvoiceCode is the merchant's invoice template code
	InvoiceCode string
	// CallbackURL receives payment notifications; when empty it is
	// derived from PublicBaseURL and the default callback path
	CallbackURL   string
	PublicBaseURL string
	// TokenBuffer is how long before expiry a token stops being used
	TokenBuffer time.Duration
	Timeout     time.Duration
	// MaxRetries retries transient failures (network errors, 5xx)
	MaxRetries int
	RetryDelay time.Duration
}

// Validate checks credentials and fills defaults
func (c *Config) Validate() error {
	if c.Username == "" {
		return ErrMissingUsername
	}
	if c.Password == "" {
		return ErrMissingPassword
	}
	if c.InvoiceCode == "" {
		return ErrMissingInvoiceCode
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.TokenBuffer == 0 {
		c.TokenBuffer = DefaultTokenBuffer
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = time.Second
	}
	return nil
}

// ResolveCallbackURL picks the callback URL for an invoice: the explicit
// request value wins, then the configured one, then the default path on
// the public base URL.
func (c *Config) ResolveCallbackURL(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if c.CallbackURL != "" {
		return c.CallbackURL
	}
	if c.PublicBaseURL != "" {
		return strings.TrimSuffix(c.PublicBaseURL, "/") + DefaultCallbackPath
	}
	return ""
}
