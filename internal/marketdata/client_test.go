package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
	"github.com/fjkiani/lotto-machine-sub000/pkg/config"
	"github.com/fjkiani/lotto-machine-sub000/pkg/httputil"
	"github.com/fjkiani/lotto-machine-sub000/pkg/logger"
)

func testHTTPClient() *httputil.Client {
	cfg := &config.Config{Env: "development", LogLevel: "error", LogFormat: "json"}
	return httputil.New(logger.New(cfg)).DisableRetry()
}

func TestClient_GetContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/context/NVDA", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"trend_5d": 6.2,
			"nearest_level": {"price": 180.0, "size": 4200000, "kind": "support"},
			"mega_cap": true,
			"relative_volume": 1.8,
			"regime": "calm"
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testHTTPClient(), nil, zerolog.Nop())

	mc, err := c.GetContext(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Equal(t, "NVDA", mc.Symbol)
	assert.InDelta(t, 6.2, mc.Trend5D, 1e-9)
	require.NotNil(t, mc.NearestLevel)
	assert.Equal(t, "support", mc.NearestLevel.Kind)
	assert.True(t, mc.MegaCap)
}

func TestClient_GetPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/price/AAPL", r.URL.Path)
		assert.Equal(t, "2026-08-20", r.URL.Query().Get("at"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol": "AAPL", "price": 231.5, "as_of": "2026-08-20"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testHTTPClient(), nil, zerolog.Nop())

	at := time.Date(2026, 8, 20, 16, 0, 0, 0, time.UTC)
	price, err := c.GetPrice(context.Background(), "AAPL", at)
	require.NoError(t, err)
	assert.InDelta(t, 231.5, price, 1e-9)
}

func TestClient_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testHTTPClient(), nil, zerolog.Nop())

	_, err := c.GetContext(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrTransientFetch))
}

func TestClient_NotFoundIsNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testHTTPClient(), nil, zerolog.Nop())

	_, err := c.GetContext(context.Background(), "UNKNOWN")
	require.Error(t, err)
	assert.False(t, errors.Is(err, contracts.ErrTransientFetch))
}

func TestNullProvider(t *testing.T) {
	var p NullProvider

	mc, err := p.GetContext(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", mc.Symbol)
	assert.Zero(t, mc.Trend5D)

	_, err = p.GetPrice(context.Background(), "AAPL", time.Now())
	assert.Error(t, err)
}
