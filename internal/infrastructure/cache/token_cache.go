package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// Token is a cached bearer token with its expiry bookkeeping. Refresh
// fields are zero for grant types without refresh support.
type Token struct {
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
}

// Usable reports whether the access token is still good to send, keeping
// the given leeway so a token never expires mid-flight.
func (t *Token) Usable(leeway time.Duration, now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return t.ExpiresAt.Add(-leeway).After(now)
}

// Refreshable reports whether the refresh token can still be exchanged
func (t *Token) Refreshable(now time.Time) bool {
	if t == nil || t.RefreshToken == "" {
		return false
	}
	return t.RefreshExpiresAt.After(now)
}

// TokenCache stores bearer tokens per credential fingerprint. Adapters
// key entries with Fingerprint so a credential change never serves a
// stale token.
type TokenCache interface {
	Get(key string) (*Token, bool)
	Put(key string, token *Token)
	Delete(key string)
}

// Fingerprint derives a stable cache key from the credential material
func Fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// InMemoryTokenCache is a concurrency-safe in-process token cache.
// Suitable for single-instance deployments; tokens are cheap to re-issue
// so there is no cross-instance sharing.
type InMemoryTokenCache struct {
	mu     sync.RWMutex
	tokens map[string]*Token
}

// NewInMemoryTokenCache creates an empty token cache
func NewInMemoryTokenCache() *InMemoryTokenCache {
	return &InMemoryTokenCache{tokens: make(map[string]*Token)}
}

// Get returns the cached token for a key
func (c *InMemoryTokenCache) Get(key string) (*Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tokens[key]
	return t, ok
}

// Put stores a token under a key, replacing any previous entry
func (c *InMemoryTokenCache) Put(key string, token *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = token
}

// Delete removes a cached token, forcing re-authentication on next use
func (c *InMemoryTokenCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, key)
}

// Ensure InMemoryTokenCache implements TokenCache
var _ TokenCache = (*InMemoryTokenCache)(nil)
