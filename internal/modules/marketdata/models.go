// Package marketdata provides price lookups backed by a primary and a
// secondary market data provider with a TTL price cache.
package marketdata

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is a cached latest price
type PriceQuote struct {
	Ticker    string          `json:"ticker"`
	Price     decimal.Decimal `json:"price"`
	FetchedAt time.Time       `json:"fetched_at"`
	Provider  string          `json:"provider"`
}

// PricePoint is one daily OHLCV bar
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is a daily price history, ascending by date
type PriceSeries struct {
	Ticker string       `json:"ticker"`
	Points []PricePoint `json:"points"`
}

// Closes returns the close prices in series order
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// SymbolMatch is one symbol search result
type SymbolMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Region   string `json:"region"`
	Currency string `json:"currency"`
}
