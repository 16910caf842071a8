package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/portfolio-analytics/internal/clients/alphavantage"
	"github.com/aristath/portfolio-analytics/internal/clients/finnhub"
	"github.com/shopspring/decimal"
)

// Provider is a source of market data
type Provider interface {
	Name() string
	LatestPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
	// DailySeries returns daily bars covering at least [start, end]; callers filter
	DailySeries(ctx context.Context, ticker string, start, end time.Time) ([]PricePoint, error)
	SearchSymbols(ctx context.Context, query string) ([]SymbolMatch, error)
}

// AlphaVantageProvider adapts the Alpha Vantage client to Provider
type AlphaVantageProvider struct {
	client alphavantage.ClientInterface
}

// NewAlphaVantageProvider creates a provider backed by client
func NewAlphaVantageProvider(client alphavantage.ClientInterface) *AlphaVantageProvider {
	return &AlphaVantageProvider{client: client}
}

// Name returns the provider name
func (p *AlphaVantageProvider) Name() string { return "alphavantage" }

// LatestPrice returns the GLOBAL_QUOTE price
func (p *AlphaVantageProvider) LatestPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	quote, err := p.client.GetGlobalQuote(ctx, ticker)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(quote.Price), nil
}

// DailySeries returns the full daily history. The window is applied by the caller.
func (p *AlphaVantageProvider) DailySeries(ctx context.Context, ticker string, _, _ time.Time) ([]PricePoint, error) {
	prices, err := p.client.GetDailyPrices(ctx, ticker, true)
	if err != nil {
		return nil, err
	}

	points := make([]PricePoint, 0, len(prices))
	for _, dp := range prices {
		if dp.Date.IsZero() {
			return nil, fmt.Errorf("malformed daily bar for %s", ticker)
		}
		points = append(points, PricePoint{
			Date:   dp.Date,
			Open:   dp.Open,
			High:   dp.High,
			Low:    dp.Low,
			Close:  dp.Close,
			Volume: dp.Volume,
		})
	}
	return points, nil
}

// SearchSymbols runs SYMBOL_SEARCH
func (p *AlphaVantageProvider) SearchSymbols(ctx context.Context, query string) ([]SymbolMatch, error) {
	matches, err := p.client.SearchSymbols(ctx, query)
	if err != nil {
		return nil, err
	}

	out := make([]SymbolMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, SymbolMatch{
			Symbol:   m.Symbol,
			Name:     m.Name,
			Type:     m.Type,
			Region:   m.Region,
			Currency: m.Currency,
		})
	}
	return out, nil
}

// FinnhubProvider adapts the Finnhub client to Provider
type FinnhubProvider struct {
	client *finnhub.Client
}

// NewFinnhubProvider creates a provider backed by client
func NewFinnhubProvider(client *finnhub.Client) *FinnhubProvider {
	return &FinnhubProvider{client: client}
}

// Name returns the provider name
func (p *FinnhubProvider) Name() string { return "finnhub" }

// LatestPrice returns the current quote price
func (p *FinnhubProvider) LatestPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	quote, err := p.client.GetQuote(ctx, ticker)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(quote.Current), nil
}

// DailySeries returns daily candles between start and end
func (p *FinnhubProvider) DailySeries(ctx context.Context, ticker string, start, end time.Time) ([]PricePoint, error) {
	candles, err := p.client.GetDailyCandles(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}

	points := make([]PricePoint, 0, len(candles))
	for _, c := range candles {
		points = append(points, PricePoint{
			Date:   c.Date,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
	}
	return points, nil
}

// SearchSymbols runs a Finnhub symbol lookup. Finnhub reports no region or
// currency for matches.
func (p *FinnhubProvider) SearchSymbols(ctx context.Context, query string) ([]SymbolMatch, error) {
	results, err := p.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	out := make([]SymbolMatch, 0, len(results))
	for _, r := range results {
		out = append(out, SymbolMatch{
			Symbol: r.Symbol,
			Name:   r.Description,
			Type:   r.Type,
		})
	}
	return out, nil
}
