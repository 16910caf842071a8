// Package alphavantage provides a client for the Alpha Vantage market data API.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL           = "https://www.alphavantage.co/query"
	defaultDailyLimit        = 25
	defaultRequestsPerMinute = 5
)

// ClientInterface defines the Alpha Vantage operations used by the market data layer
type ClientInterface interface {
	GetGlobalQuote(ctx context.Context, symbol string) (*GlobalQuote, error)
	GetDailyPrices(ctx context.Context, symbol string, full bool) ([]DailyPrice, error)
	SearchSymbols(ctx context.Context, keywords string) ([]SymbolMatch, error)
	GetRemainingRequests() int
}

// Client is an Alpha Vantage HTTP client with daily quota accounting and
// per-minute request pacing.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger

	mu           sync.Mutex
	dailyLimit   int
	requestCount int
	resetAt      time.Time
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithDailyLimit sets the number of requests allowed per UTC day
func WithDailyLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.dailyLimit = n
		}
	}
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

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, log zerolog.Logger, opts ...Option) *Client {
	if apiKey == "" {
		apiKey = "demo"
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/defaultRequestsPerMinute), defaultRequestsPerMinute),
		dailyLimit: defaultDailyLimit,
		resetAt:    nextMidnightUTC(),
		log:        log.With().Str("client", "alphavantage").Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the provider name used in error messages
func (c *Client) Name() string {
	return "alphavantage"
}

// GetGlobalQuote fetches the latest quote for a symbol
func (c *Client) GetGlobalQuote(ctx context.Context, symbol string) (*GlobalQuote, error) {
	body, err := c.doRequest(ctx, "GLOBAL_QUOTE", map[string]string{"symbol": symbol})
	if err != nil {
		return nil, err
	}

	quote, err := parseGlobalQuote(body)
	if err != nil {
		return nil, err
	}
	if quote.Symbol == "" {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}
	if quote.Price <= 0 {
		return nil, fmt.Errorf("invalid price %v for %s", quote.Price, symbol)
	}

	return quote, nil
}

// GetDailyPrices fetches the daily OHLCV series for a symbol, newest first.
// full requests the complete history instead of the latest 100 points.
func (c *Client) GetDailyPrices(ctx context.Context, symbol string, full bool) ([]DailyPrice, error) {
	outputSize := "compact"
	if full {
		outputSize = "full"
	}

	body, err := c.doRequest(ctx, "TIME_SERIES_DAILY", map[string]string{
		"symbol":     symbol,
		"outputsize": outputSize,
	})
	if err != nil {
		return nil, err
	}

	return parseDailyTimeSeries(body)
}

// SearchSymbols searches for symbols matching keywords
func (c *Client) SearchSymbols(ctx context.Context, keywords string) ([]SymbolMatch, error) {
	body, err := c.doRequest(ctx, "SYMBOL_SEARCH", map[string]string{"keywords": keywords})
	if err != nil {
		return nil, err
	}

	return parseSymbolSearch(body)
}

// GetRemainingRequests returns how many requests are left for today
func (c *Client) GetRemainingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetIfNeeded()
	return c.dailyLimit - c.requestCount
}

// ResetDailyCounter resets the daily request counter
func (c *Client) ResetDailyCounter() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requestCount = 0
	c.resetAt = nextMidnightUTC()
}

func (c *Client) resetIfNeeded() {
	if time.Now().UTC().After(c.resetAt) {
		c.requestCount = 0
		c.resetAt = nextMidnightUTC()
	}
}

// checkRateLimit reserves one request from the daily quota
func (c *Client) checkRateLimit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetIfNeeded()
	if c.requestCount >= c.dailyLimit {
		return ErrRateLimitExceeded{ResetAt: c.resetAt}
	}
	c.requestCount++
	return nil
}

func (c *Client) doRequest(ctx context.Context, function string, params map[string]string) ([]byte, error) {
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("request pacing: %w", err)
	}

	query := url.Values{}
	query.Set("function", function)
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.log.Debug().
		Str("function", function).
		Str("key", buildRequestKey(function, params)).
		Msg("Requesting Alpha Vantage")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", function, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := c.checkAPIError(body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkAPIError detects error payloads that Alpha Vantage returns with status 200
func (c *Client) checkAPIError(body []byte) error {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "Thank you") {
		return ErrRateLimitExceeded{}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		// Non-object payloads are left to the specific parser
		return nil
	}

	if _, ok := fields["Note"]; ok {
		return ErrRateLimitExceeded{}
	}
	if raw, ok := fields["Information"]; ok {
		var msg string
		_ = json.Unmarshal(raw, &msg)
		if strings.Contains(strings.ToLower(msg), "api key") && strings.Contains(strings.ToLower(msg), "invalid") {
			return ErrInvalidAPIKey{}
		}
		return ErrRateLimitExceeded{}
	}
	if raw, ok := fields["Error Message"]; ok {
		var msg string
		_ = json.Unmarshal(raw, &msg)
		return fmt.Errorf("alpha vantage error: %s", msg)
	}

	return nil
}

// buildRequestKey builds a stable key for logging; the API key is never included
func buildRequestKey(function string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "apikey" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(function)
	for _, k := range keys {
		b.WriteString(":")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	return b.String()
}

func nextMidnightUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}

func parseFloat64(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	switch s {
	case "", "None", "null", "-", ".":
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt64(s string) int64 {
	s = strings.TrimSpace(s)
	switch s {
	case "", "None", "null", "-":
		return 0
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	return int64(parseFloat64(s))
}

func parseDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", strings.TrimSpace(s))
	return t
}
