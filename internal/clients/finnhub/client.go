// Package finnhub provides a client for the Finnhub stock market API.
// It serves as the fallback market data provider.
package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL           = "https://finnhub.io/api/v1"
	defaultRequestsPerMinute = 60
)

// ErrAPIKeyNotSet is returned for every call when no API key is configured
var ErrAPIKeyNotSet = errors.New("finnhub API key not set")

// Quote is the real-time quote returned by /quote
type Quote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	PercentChange float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// Candle is one daily OHLCV bar
type Candle struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// SearchResult is one symbol lookup match
type SearchResult struct {
	Description   string `json:"description"`
	DisplaySymbol string `json:"displaySymbol"`
	Symbol        string `json:"symbol"`
	Type          string `json:"type"`
}

// Client is a Finnhub HTTP client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithRequestsPerMinute sets request pacing. Zero disables pacing.
func WithRequestsPerMinute(n int) Option {
	return func(c *Client) {
		if n <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}
}

// NewClient creates a new Finnhub client
func NewClient(apiKey string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/defaultRequestsPerMinute), defaultRequestsPerMinute),
		log:     log.With().Str("client", "finnhub").Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the provider name used in error messages
func (c *Client) Name() string {
	return "finnhub"
}

// GetQuote fetches the latest quote for a symbol
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	var quote Quote
	if err := c.get(ctx, "/quote", url.Values{"symbol": {symbol}}, &quote); err != nil {
		return nil, err
	}

	// Unknown symbols come back as an all-zero quote
	if quote.Current == 0 && quote.Timestamp == 0 {
		return nil, fmt.Errorf("symbol not found: %s", symbol)
	}
	if quote.Current < 0 {
		return nil, fmt.Errorf("invalid price %v for %s", quote.Current, symbol)
	}

	return &quote, nil
}

// GetDailyCandles fetches daily bars between from and to, oldest first
func (c *Client) GetDailyCandles(ctx context.Context, symbol string, from, to time.Time) ([]Candle, error) {
	var raw struct {
		Close  []float64 `json:"c"`
		High   []float64 `json:"h"`
		Low    []float64 `json:"l"`
		Open   []float64 `json:"o"`
		Time   []int64   `json:"t"`
		Volume []float64 `json:"v"`
		Status string    `json:"s"`
	}

	params := url.Values{
		"symbol":     {symbol},
		"resolution": {"D"},
		"from":       {strconv.FormatInt(from.Unix(), 10)},
		"to":         {strconv.FormatInt(to.Unix(), 10)},
	}
	if err := c.get(ctx, "/stock/candle", params, &raw); err != nil {
		return nil, err
	}

	switch raw.Status {
	case "no_data":
		return []Candle{}, nil
	case "ok":
	default:
		return nil, fmt.Errorf("malformed candle response: status %q", raw.Status)
	}

	n := len(raw.Time)
	if len(raw.Close) != n || len(raw.Open) != n || len(raw.High) != n || len(raw.Low) != n {
		return nil, fmt.Errorf("malformed candle response: column lengths differ")
	}

	candles := make([]Candle, 0, n)
	for i := 0; i < n; i++ {
		var volume int64
		if i < len(raw.Volume) {
			volume = int64(raw.Volume[i])
		}
		ts := time.Unix(raw.Time[i], 0).UTC()
		candles = append(candles, Candle{
			Date:   time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
			Open:   raw.Open[i],
			High:   raw.High[i],
			Low:    raw.Low[i],
			Close:  raw.Close[i],
			Volume: volume,
		})
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Date.Before(candles[j].Date)
	})

	return candles, nil
}

// Search looks up symbols matching query
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var raw struct {
		Count  int            `json:"count"`
		Result []SearchResult `json:"result"`
	}
	if err := c.get(ctx, "/search", url.Values{"q": {query}}, &raw); err != nil {
		return nil, err
	}

	if raw.Result == nil {
		return []SearchResult{}, nil
	}
	return raw.Result, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return ErrAPIKeyNotSet
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("request pacing: %w", err)
	}

	params.Set("token", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.log.Debug().Str("path", path).Str("symbol", params.Get("symbol")).Msg("Requesting Finnhub")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return nil
}
