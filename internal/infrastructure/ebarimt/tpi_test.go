package ebarimt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnpay/backend/internal/infrastructure/cache"
)

// tpiServers starts paired auth and API servers and returns a configured
// client plus the auth call counter.
func tpiServers(t *testing.T, expiresIn int64, api http.HandlerFunc) (*TPIClient, *atomic.Int64) {
	t.Helper()

	var authCalls atomic.Int64
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCalls.Add(1)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "password", r.PostForm.Get("grant_type"))
		require.Equal(t, "vatps", r.PostForm.Get("client_id"))
		json.NewEncoder(w).Encode(tokenResult{
			AccessToken:      "token-1",
			ExpiresIn:        expiresIn,
			RefreshToken:     "refresh-1",
			RefreshExpiresIn: 3600,
		})
	}))
	t.Cleanup(auth.Close)

	apiServer := httptest.NewServer(api)
	t.Cleanup(apiServer.Close)

	client, err := NewTPIClient(&TPIConfig{
		BaseURL:  apiServer.URL + "/",
		AuthURL:  auth.URL,
		Username: "operator",
		Password: "secret",
	}, cache.NewInMemoryTokenCache(), nil)
	require.NoError(t, err)
	return client, &authCalls
}

func TestTaxpayerInfoUsesCachedToken(t *testing.T) {
	client, authCalls := tpiServers(t, 3600, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data": {"tin": "37900846788", "name": "Test LLC", "vatPayer": true, "found": true}, "status": 200}`))
	})

	ctx := context.Background()
	info, err := client.TaxpayerInfo(ctx, "37900846788")
	require.NoError(t, err)
	assert.Equal(t, "Test LLC", info.Name)
	assert.True(t, info.Found)

	_, err = client.TaxpayerInfo(ctx, "37900846788")
	require.NoError(t, err)

	assert.Equal(t, int64(1), authCalls.Load())
}

func TestTokenInsideLeewayTriggersReauth(t *testing.T) {
	// 10s lifetime is inside the default 30s leeway, so every call
	// re-authenticates
	client, authCalls := tpiServers(t, 10, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": "37900846788", "status": 200}`))
	})

	ctx := context.Background()
	_, err := client.TinByRegistration(ctx, "6183352")
	require.NoError(t, err)
	_, err = client.TinByRegistration(ctx, "6183352")
	require.NoError(t, err)

	assert.Equal(t, int64(2), authCalls.Load())
}

func TestUnauthorizedInvalidatesToken(t *testing.T) {
	var apiCalls atomic.Int64
	client, authCalls := tpiServers(t, 3600, func(w http.ResponseWriter, r *http.Request) {
		if apiCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data": "37900846788", "status": 200}`))
	})

	ctx := context.Background()
	_, err := client.TinByRegistration(ctx, "6183352")
	var tpiErr *TPIError
	require.ErrorAs(t, err, &tpiErr)
	assert.Equal(t, http.StatusUnauthorized, tpiErr.StatusCode)

	// the cached token was dropped, so the retry authenticates again
	tin, err := client.TinByRegistration(ctx, "6183352")
	require.NoError(t, err)
	assert.Equal(t, "37900846788", tin)
	assert.Equal(t, int64(2), authCalls.Load())
}

func TestTPIConfigValidation(t *testing.T) {
	_, err := NewTPIClient(&TPIConfig{Password: "x"}, nil, nil)
	assert.ErrorIs(t, err, ErrMissingTPIUsername)

	_, err = NewTPIClient(&TPIConfig{Username: "x"}, nil, nil)
	assert.ErrorIs(t, err, ErrMissingTPIPassword)

	cfg := &TPIConfig{Username: "x", Password: "y"}
	_, err = NewTPIClient(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTPIBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultTPIClientID, cfg.ClientID)
	assert.Equal(t, 30*time.Second, cfg.TokenLeeway)
}

func TestProductTaxCodes(t *testing.T) {
	client, _ := tpiServers(t, 3600, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/receipt/receipt/getProductTaxCode", r.URL.Path)
		require.Equal(t, "beer", r.URL.Query().Get("search"))
		w.Write([]byte(`{"data": [{"code": "1103001", "name": "Beer", "vatType": "VAT_ABLE", "cityTax": true}], "status": 200}`))
	})

	codes, err := client.ProductTaxCodes(context.Background(), "beer")
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, "1103001", codes[0].Code)
	assert.True(t, codes[0].CityTax)
}
