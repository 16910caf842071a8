package alphavantage

import (
	"fmt"
	"time"
)

// GlobalQuote is the latest quote for a symbol
type GlobalQuote struct {
	Symbol           string    `json:"symbol"`
	Open             float64   `json:"open"`
	High             float64   `json:"high"`
	Low              float64   `json:"low"`
	Price            float64   `json:"price"`
	Volume           int64     `json:"volume"`
	LatestTradingDay time.Time `json:"latest_trading_day"`
	PreviousClose    float64   `json:"previous_close"`
	Change           float64   `json:"change"`
	ChangePercent    float64   `json:"change_percent"`
}

// DailyPrice is one OHLCV bar of the daily time series
type DailyPrice struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// SymbolMatch is one symbol search result
type SymbolMatch struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Region     string  `json:"region"`
	Currency   string  `json:"currency"`
	MatchScore float64 `json:"match_score"`
}

// ErrRateLimitExceeded is returned when the daily quota is used up or the
// API reports throttling.
type ErrRateLimitExceeded struct {
	ResetAt time.Time
}

func (e ErrRateLimitExceeded) Error() string {
	if e.ResetAt.IsZero() {
		return "alpha vantage rate limit exceeded"
	}
	return fmt.Sprintf("alpha vantage rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// ErrInvalidAPIKey is returned when the API rejects the key
type ErrInvalidAPIKey struct{}

func (e ErrInvalidAPIKey) Error() string {
	return "alpha vantage API key is invalid"
}

// ErrSymbolNotFound is returned when a quote comes back empty
type ErrSymbolNotFound struct {
	Symbol string
}

func (e ErrSymbolNotFound) Error() string {
	return fmt.Sprintf("symbol not found: %s", e.Symbol)
}
