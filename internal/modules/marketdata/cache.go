package marketdata

import (
	"context"
	"sync"
	"time"
)

// DefaultPriceTTL is how long a cached latest price stays fresh
const DefaultPriceTTL = 15 * time.Minute

// PriceCache stores latest prices keyed by ticker.
// Get reports false for absent or expired entries.
type PriceCache interface {
	Get(ctx context.Context, ticker string) (PriceQuote, bool)
	Set(ctx context.Context, quote PriceQuote)
}

// MemoryCache is an in-process PriceCache with a fixed TTL.
// The mutex protects the maps only; callers doing check-then-set may still
// fetch the same ticker twice under concurrency.
type MemoryCache struct {
	mu      sync.Mutex
	quotes  map[string]PriceQuote
	expires map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates an empty cache. A non-positive ttl uses DefaultPriceTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultPriceTTL
	}
	return &MemoryCache{
		quotes:  make(map[string]PriceQuote),
		expires: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock replaces the time source, for tests
func (c *MemoryCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the cached quote if it has not expired
func (c *MemoryCache) Get(_ context.Context, ticker string) (PriceQuote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	exp, ok := c.expires[ticker]
	if !ok || !c.now().Before(exp) {
		return PriceQuote{}, false
	}
	return c.quotes[ticker], true
}

// Set stores quote and restarts its expiry
func (c *MemoryCache) Set(_ context.Context, quote PriceQuote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.quotes[quote.Ticker] = quote
	c.expires[quote.Ticker] = c.now().Add(c.ttl)
}

// Len returns the number of entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.quotes)
}
