package ebarimt

import (
	"errors"
	"time"
)

// Default endpoints of the staging environment. Production deployments
// override all of these.
const (
	DefaultPosAPIBaseURL = "http://localhost:7080/web/"
	DefaultTPIBaseURL    = "https://st-api.ebarimt.mn/"
	DefaultTPIAuthURL    = "https://st.auth.itc.gov.mn/auth/realms/Staging/protocol/openid-connect/token"
	DefaultTPIClientID   = "vatps"

	DefaultTimeout        = 15 * time.Second
	DefaultReceiptTimeout = 30 * time.Second
	DefaultTokenLeeway    = 30 * time.Second
)

// Errors for configuration validation
var (
	ErrMissingTPIUsername = errors.New("ebarimt: missing TPI username")
	ErrMissingTPIPassword = errors.New("ebarimt: missing TPI password")
)

// PosAPIConfig configures the client for the local receipt daemon
type PosAPIConfig struct {
	// BaseURL is the daemon's endpoint, trailing slash included
	BaseURL string
	// APIKey is sent as X-API-KEY on every request
	APIKey string
	// BasicAuthUser and BasicAuthPass are optional daemon credentials
	BasicAuthUser string
	BasicAuthPass string
	// Timeout applies to lookups; ReceiptTimeout to receipt issuance
	Timeout        time.Duration
	ReceiptTimeout time.Duration
}

// Validate fills defaults; the daemon itself needs no credentials
func (c *PosAPIConfig) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultPosAPIBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ReceiptTimeout == 0 {
		c.ReceiptTimeout = DefaultReceiptTimeout
	}
	return nil
}

// TPIConfig configures the client for the authority's remote services
type TPIConfig struct {
	BaseURL  string
	AuthURL  string
	Username string
	Password string
	ClientID string
	// TokenLeeway is subtracted from the token lifetime so a cached
	// token is never used right at its expiry
	TokenLeeway time.Duration
	Timeout     time.Duration
}

// Validate checks credentials and fills defaults
func (c *TPIConfig) Validate() error {
	if c.Username == "" {
		return ErrMissingTPIUsername
	}
	if c.Password == "" {
		return ErrMissingTPIPassword
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultTPIBaseURL
	}
	if c.AuthURL == "" {
		c.AuthURL = DefaultTPIAuthURL
	}
	if c.ClientID == "" {
		c.ClientID = DefaultTPIClientID
	}
	if c.TokenLeeway == 0 {
		c.TokenLeeway = DefaultTokenLeeway
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}
