package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
	"github.com/fjkiani/lotto-machine-sub000/pkg/httputil"
	"github.com/fjkiani/lotto-machine-sub000/pkg/redis"
)

// Client talks to the market-data service for trend/level context and
// historical prices. It implements both contracts.MarketContextProvider
// and contracts.PriceLookup. Historical prices are immutable, so they
// cache daily.
// ⭐ SSOT: 시장 데이터 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	cache      *redis.Cache
	limiter    *redis.RateLimiter
	budget     redis.RateLimitConfig
	baseURL    string
	log        zerolog.Logger
}

// NewClient creates a market-data client. cache may be nil.
func NewClient(baseURL string, httpClient *httputil.Client, cache *redis.Cache, log zerolog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		cache:      cache,
		baseURL:    baseURL,
		log:        log.With().Str("component", "marketdata").Logger(),
	}
}

// WithBudget enables a shared request budget against the provider.
// The window is enforced in Redis so every process counts against the
// same budget.
func (c *Client) WithBudget(limiter *redis.RateLimiter, budget redis.RateLimitConfig) *Client {
	c.limiter = limiter
	c.budget = budget
	return c
}

// GetContext implements contracts.MarketContextProvider.
// GET {base}/v1/context/{symbol}
func (c *Client) GetContext(ctx context.Context, symbol string) (contracts.MarketContext, error) {
	var mc contracts.MarketContext
	if err := c.getJSON(ctx, fmt.Sprintf("%s/v1/context/%s", c.baseURL, url.PathEscape(symbol)), &mc); err != nil {
		return contracts.MarketContext{}, err
	}
	mc.Symbol = symbol
	return mc, nil
}

type priceResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	AsOf   string  `json:"as_of"`
}

// GetPrice implements contracts.PriceLookup.
// GET {base}/v1/price/{symbol}?at=2026-08-20
func (c *Client) GetPrice(ctx context.Context, symbol string, at time.Time) (float64, error) {
	date := at.Format("2006-01-02")
	key := redis.PriceKey(symbol, date)

	if c.cache != nil {
		var cached float64
		if hit, err := c.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	var resp priceResponse
	u := fmt.Sprintf("%s/v1/price/%s?at=%s", c.baseURL, url.PathEscape(symbol), date)
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return 0, err
	}
	if resp.Price <= 0 {
		return 0, fmt.Errorf("no price for %s at %s", symbol, date)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, resp.Price, redis.TTLDaily); err != nil {
			c.log.Debug().Err(err).Str("symbol", symbol).Msg("price cache set failed")
		}
	}

	return resp.Price, nil
}

// getJSON fetches and decodes one endpoint. Network and 5xx failures
// are transient; a body that does not decode is not.
func (c *Client) getJSON(ctx context.Context, fullURL string, dest interface{}) error {
	if c.limiter != nil {
		allowed, remaining, err := c.limiter.Allow(ctx, c.budget)
		if err != nil {
			c.log.Debug().Err(err).Msg("budget check failed, proceeding")
		} else if !allowed {
			// Budget exhaustion heals on its own; let the caller retry later.
			return contracts.TransientFetch(fmt.Errorf("provider budget exhausted (%d remaining)", remaining))
		}
	}

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return contracts.TransientFetch(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		if resp.StatusCode >= 500 {
			return contracts.TransientFetch(fmt.Errorf("status %d from %s", resp.StatusCode, fullURL))
		}
		return fmt.Errorf("status %d from %s", resp.StatusCode, fullURL)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s: %w", fullURL, err)
	}
	return nil
}

// NullProvider scores every signal against an empty context. Used when
// no market-data endpoint is configured; signals pass through with
// score 0 and their original action.
type NullProvider struct{}

// GetContext implements contracts.MarketContextProvider.
func (NullProvider) GetContext(_ context.Context, symbol string) (contracts.MarketContext, error) {
	return contracts.MarketContext{Symbol: symbol}, nil
}

// GetPrice implements contracts.PriceLookup; it never has prices.
func (NullProvider) GetPrice(_ context.Context, symbol string, _ time.Time) (float64, error) {
	return 0, fmt.Errorf("no market data source configured for %s", symbol)
}
