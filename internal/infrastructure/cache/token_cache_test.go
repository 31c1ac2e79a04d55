package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenUsable(t *testing.T) {
	now := time.Now()
	leeway := 30 * time.Second

	tests := []struct {
		name   string
		token  *Token
		usable bool
	}{
		{"nil token", nil, false},
		{"empty access token", &Token{ExpiresAt: now.Add(time.Hour)}, false},
		{"well within expiry", &Token{AccessToken: "a", ExpiresAt: now.Add(time.Hour)}, true},
		{"inside leeway window", &Token{AccessToken: "a", ExpiresAt: now.Add(10 * time.Second)}, false},
		{"already expired", &Token{AccessToken: "a", ExpiresAt: now.Add(-time.Minute)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.usable, tt.token.Usable(leeway, now))
		})
	}
}

func TestTokenRefreshable(t *testing.T) {
	now := time.Now()

	assert.False(t, (*Token)(nil).Refreshable(now))
	assert.False(t, (&Token{}).Refreshable(now))
	assert.False(t, (&Token{RefreshToken: "r", RefreshExpiresAt: now.Add(-time.Second)}).Refreshable(now))
	assert.True(t, (&Token{RefreshToken: "r", RefreshExpiresAt: now.Add(time.Hour)}).Refreshable(now))
}

func TestInMemoryTokenCache(t *testing.T) {
	c := NewInMemoryTokenCache()
	key := Fingerprint("https://auth.example.mn", "user", "client")

	_, ok := c.Get(key)
	require.False(t, ok)

	token := &Token{AccessToken: "a", ExpiresAt: time.Now().Add(time.Hour)}
	c.Put(key, token)

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "a", got.AccessToken)

	c.Delete(key)
	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestFingerprintDistinguishesCredentials(t *testing.T) {
	a := Fingerprint("https://auth.example.mn", "user1", "client")
	b := Fingerprint("https://auth.example.mn", "user2", "client")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Fingerprint("https://auth.example.mn", "user1", "client"))
}
