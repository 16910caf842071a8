package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentFetches bounds provider calls issued by GetLatestPrices
const maxConcurrentFetches = 4

var errNoSecondary = errors.New("no secondary provider configured")

// Fetcher resolves prices through the cache, then the primary provider,
// then the secondary provider.
//
// The cache lookup and the cache update are not atomic: two concurrent
// misses for the same ticker both reach the providers and the last write wins.
type Fetcher struct {
	primary   Provider
	secondary Provider
	cache     PriceCache
	now       func() time.Time
	log       zerolog.Logger
}

// NewFetcher creates a fetcher. secondary may be nil.
func NewFetcher(primary, secondary Provider, cache PriceCache, log zerolog.Logger) *Fetcher {
	if cache == nil {
		cache = NewMemoryCache(DefaultPriceTTL)
	}
	return &Fetcher{
		primary:   primary,
		secondary: secondary,
		cache:     cache,
		now:       time.Now,
		log:       log.With().Str("service", "market_data").Logger(),
	}
}

// GetLatestPrice returns the latest price for ticker. When both providers
// fail the error is a *domain.ProviderError and the cache is left untouched.
func (f *Fetcher) GetLatestPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	ticker = normalizeTicker(ticker)
	if ticker == "" {
		return decimal.Zero, domain.NewValidation("ticker is required")
	}

	if quote, ok := f.cache.Get(ctx, ticker); ok {
		return quote.Price, nil
	}

	price, primaryErr := f.primary.LatestPrice(ctx, ticker)
	if primaryErr == nil {
		f.store(ctx, ticker, price, f.primary.Name())
		return price, nil
	}

	f.log.Warn().
		Err(primaryErr).
		Str("ticker", ticker).
		Str("provider", f.primary.Name()).
		Msg("Primary price lookup failed, trying secondary")

	if f.secondary == nil {
		return decimal.Zero, &domain.ProviderError{Ticker: ticker, Primary: primaryErr, Secondary: errNoSecondary}
	}

	price, secondaryErr := f.secondary.LatestPrice(ctx, ticker)
	if secondaryErr != nil {
		return decimal.Zero, &domain.ProviderError{Ticker: ticker, Primary: primaryErr, Secondary: secondaryErr}
	}

	f.store(ctx, ticker, price, f.secondary.Name())
	return price, nil
}

func (f *Fetcher) store(ctx context.Context, ticker string, price decimal.Decimal, provider string) {
	f.cache.Set(ctx, PriceQuote{
		Ticker:    ticker,
		Price:     price,
		FetchedAt: f.now().UTC(),
		Provider:  provider,
	})
}

// GetLatestPrices fetches every ticker concurrently. Prices holds the
// successes and errs the per-ticker failures; one failure never cancels
// the other lookups.
func (f *Fetcher) GetLatestPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, map[string]error) {
	var (
		mu     sync.Mutex
		prices = make(map[string]decimal.Decimal, len(tickers))
		errs   = make(map[string]error)
	)

	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentFetches)

	seen := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		ticker := normalizeTicker(t)
		if _, dup := seen[ticker]; dup {
			continue
		}
		seen[ticker] = struct{}{}

		g.Go(func() error {
			price, err := f.GetLatestPrice(ctx, ticker)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[ticker] = err
				return nil
			}
			prices[ticker] = price
			return nil
		})
	}
	_ = g.Wait()

	return prices, errs
}

// GetHistoricalSeries returns daily bars for ticker within the inclusive
// calendar-day window [start, end], ascending by date. Results are never cached.
func (f *Fetcher) GetHistoricalSeries(ctx context.Context, ticker string, start, end time.Time) (*PriceSeries, error) {
	ticker = normalizeTicker(ticker)
	if ticker == "" {
		return nil, domain.NewValidation("ticker is required")
	}
	if end.Before(start) {
		return nil, domain.NewValidation("end date %s is before start date %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	points, primaryErr := f.primary.DailySeries(ctx, ticker, start, end)
	if primaryErr == nil {
		return &PriceSeries{Ticker: ticker, Points: filterWindow(points, start, end)}, nil
	}
	primaryErr = fmt.Errorf("%s historical series for %s: %w", f.primary.Name(), ticker, primaryErr)

	f.log.Warn().
		Err(primaryErr).
		Str("ticker", ticker).
		Msg("Primary historical lookup failed, trying secondary")

	if f.secondary == nil {
		return nil, &domain.ProviderError{Ticker: ticker, Primary: primaryErr, Secondary: errNoSecondary}
	}

	points, secondaryErr := f.secondary.DailySeries(ctx, ticker, start, end)
	if secondaryErr != nil {
		secondaryErr = fmt.Errorf("%s historical series for %s: %w", f.secondary.Name(), ticker, secondaryErr)
		return nil, &domain.ProviderError{Ticker: ticker, Primary: primaryErr, Secondary: secondaryErr}
	}

	return &PriceSeries{Ticker: ticker, Points: filterWindow(points, start, end)}, nil
}

// SearchSymbols looks up symbols matching query. A successful primary
// response is returned as is, even when empty.
func (f *Fetcher) SearchSymbols(ctx context.Context, query string) ([]SymbolMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidation("query is required")
	}

	matches, primaryErr := f.primary.SearchSymbols(ctx, query)
	if primaryErr == nil {
		return nonNil(matches), nil
	}

	f.log.Warn().Err(primaryErr).Str("query", query).Msg("Primary symbol search failed, trying secondary")

	if f.secondary == nil {
		return nil, &domain.ProviderError{Ticker: query, Primary: primaryErr, Secondary: errNoSecondary}
	}

	matches, secondaryErr := f.secondary.SearchSymbols(ctx, query)
	if secondaryErr != nil {
		return nil, &domain.ProviderError{Ticker: query, Primary: primaryErr, Secondary: secondaryErr}
	}
	return nonNil(matches), nil
}

// filterWindow keeps points whose UTC calendar day lies within [start, end]
// and sorts them ascending.
func filterWindow(points []PricePoint, start, end time.Time) []PricePoint {
	from := truncateDay(start)
	to := truncateDay(end)

	out := make([]PricePoint, 0, len(points))
	for _, p := range points {
		d := truncateDay(p.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

func nonNil(m []SymbolMatch) []SymbolMatch {
	if m == nil {
		return []SymbolMatch{}
	}
	return m
}
