// Package yahoo implements the MarketData provider over the public
// chart/options REST endpoints.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"OptionWatch/internal/domain/models"
	drepo "OptionWatch/internal/domain/repository"
	svccache "OptionWatch/internal/service/cache"
	"OptionWatch/internal/service/ratelimit"
	pkghttp "OptionWatch/pkg/http"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client implements repository.MarketData against the chart and options
// endpoints, with a byte cache in front of every call.
type Client struct {
	baseURL string
	http    *pkghttp.Client
	cache   svccache.BytesCache
	limiter *ratelimit.Limiter

	rate     float64
	burst    float64
	priceTTL time.Duration
	barsTTL  time.Duration
	chainTTL time.Duration
}

type Option func(*Client)

// WithBaseURL overrides the endpoint host, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithRate sets the request budget against the upstream feed.
func WithRate(perSec float64, burst int) Option {
	return func(c *Client) {
		if perSec > 0 {
			c.rate = perSec
		}
		if burst > 0 {
			c.burst = float64(burst)
		}
	}
}

// WithTTLs sets the cache lifetimes per endpoint.
func WithTTLs(price, bars, chain time.Duration) Option {
	return func(c *Client) {
		if price > 0 {
			c.priceTTL = price
		}
		if bars > 0 {
			c.barsTTL = bars
		}
		if chain > 0 {
			c.chainTTL = chain
		}
	}
}

// New creates a MarketData provider.
func New(httpc *pkghttp.Client, bc svccache.BytesCache, rl *ratelimit.Limiter, opts ...Option) drepo.MarketData {
	c := &Client{
		baseURL:  defaultBaseURL,
		http:     httpc,
		cache:    bc,
		limiter:  rl,
		rate:     5,
		burst:    10,
		priceTTL: 5 * time.Second,
		barsTTL:  30 * time.Second,
		chainTTL: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetPrice returns the current underlying price.
func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	var resp chartResponse
	key := "yahoo:price:" + symbol
	url := fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, symbol)
	params := map[string][]string{"range": {"1d"}, "interval": {"1m"}}
	if err := c.fetch(ctx, key, c.priceTTL, url, params, &resp); err != nil {
		return 0, fmt.Errorf("get price %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return 0, fmt.Errorf("get price %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return 0, fmt.Errorf("get price %s: empty result", symbol)
	}
	p := resp.Chart.Result[0].Meta.RegularMarketPrice
	if p <= 0 {
		return 0, fmt.Errorf("get price %s: no market price", symbol)
	}
	return p, nil
}

// GetBars returns the OHLC history for the given interval and range. Bars
// with null fields (halted minutes) are skipped.
func (c *Client) GetBars(ctx context.Context, symbol string, interval drepo.Interval, rng string) ([]models.Bar, error) {
	var resp chartResponse
	key := fmt.Sprintf("yahoo:bars:%s:%s:%s", symbol, interval, rng)
	url := fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, symbol)
	params := map[string][]string{
		"range":    {rng},
		"interval": {string(interval)},
	}
	if err := c.fetch(ctx, key, c.barsTTL, url, params, &resp); err != nil {
		return nil, fmt.Errorf("get bars %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("get bars %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("get bars %s: empty result", symbol)
	}

	res := resp.Chart.Result[0]
	q := res.Indicators.Quote[0]
	bars := make([]models.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(q.Open) || i >= len(q.High) || i >= len(q.Low) || i >= len(q.Close) {
			break
		}
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil {
			continue
		}
		b := models.Bar{
			Time:  time.Unix(ts, 0),
			Open:  *q.Open[i],
			High:  *q.High[i],
			Low:   *q.Low[i],
			Close: *q.Close[i],
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			b.Volume = *q.Volume[i]
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// GetOptionChain returns the nearest-expiration call chain.
func (c *Client) GetOptionChain(ctx context.Context, symbol string) (*models.OptionChain, error) {
	var resp optionsResponse
	key := "yahoo:chain:" + symbol
	url := fmt.Sprintf("%s/v7/finance/options/%s", c.baseURL, symbol)
	if err := c.fetch(ctx, key, c.chainTTL, url, nil, &resp); err != nil {
		return nil, fmt.Errorf("get chain %s: %w", symbol, err)
	}
	if resp.OptionChain.Error != nil {
		return nil, fmt.Errorf("get chain %s: %s", symbol, resp.OptionChain.Error.Description)
	}
	if len(resp.OptionChain.Result) == 0 || len(resp.OptionChain.Result[0].Options) == 0 {
		return nil, fmt.Errorf("get chain %s: no expirations", symbol)
	}

	res := resp.OptionChain.Result[0]
	opt := res.Options[0]
	chain := &models.OptionChain{
		Symbol:     symbol,
		Expiration: time.Unix(opt.ExpirationDate, 0),
		Calls:      make([]models.OptionContract, 0, len(opt.Calls)),
	}
	for _, raw := range opt.Calls {
		chain.Calls = append(chain.Calls, models.OptionContract{
			ContractID: raw.ContractSymbol,
			Strike:     raw.Strike,
			Bid:        raw.Bid,
			Ask:        raw.Ask,
			LastPrice:  raw.LastPrice,
			Volume:     raw.Volume,
		})
	}
	return chain, nil
}

// fetch serves from the byte cache when fresh, otherwise spends a rate-limit
// token and hits the endpoint. The raw payload is cached, not the decoded
// struct, so all callers of the same key share one upstream request.
func (c *Client) fetch(ctx context.Context, key string, ttl time.Duration, url string, params map[string][]string, dest interface{}) error {
	if b, ok, err := c.cache.GetBytes(key); err == nil && ok {
		if err := json.Unmarshal(b, dest); err == nil {
			return nil
		}
	}

	if c.limiter != nil && !c.limiter.Allow("yahoo", c.burst, c.rate) {
		return fmt.Errorf("rate limited")
	}

	var body []byte
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         url,
		QueryParams: params,
		Headers:     map[string]string{"User-Agent": "optionwatch/1.0"},
	}, &body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	_ = c.cache.SetBytes(key, body, ttl)
	return nil
}
