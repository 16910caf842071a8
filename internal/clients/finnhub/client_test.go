package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("token-123", zerolog.Nop(), WithBaseURL(server.URL), WithRequestsPerMinute(0))
}

func TestMissingAPIKey(t *testing.T) {
	client := NewClient("", zerolog.Nop())

	_, err := client.GetQuote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
	assert.Equal(t, "finnhub API key not set", err.Error())
	assert.Equal(t, "finnhub", client.Name())
}

func TestGetQuote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "token-123", r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`{"c": 261.74, "d": 1.2, "dp": 0.46, "h": 263.31, "l": 260.68, "o": 261.07, "pc": 260.54, "t": 1700000000}`))
	})

	quote, err := client.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 261.74, quote.Current)
	assert.Equal(t, 260.54, quote.PreviousClose)
}

func TestGetQuoteUnknownSymbol(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"c": 0, "d": null, "dp": null, "h": 0, "l": 0, "o": 0, "pc": 0, "t": 0}`))
	})

	_, err := client.GetQuote(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOPE")
}

func TestGetQuoteHTTPErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := client.GetQuote(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	client = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})
	_, err = client.GetQuote(context.Background(), "AAPL")
	assert.Error(t, err)
}

func TestGetDailyCandles(t *testing.T) {
	day1 := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock/candle", r.URL.Path)
		assert.Equal(t, "D", r.URL.Query().Get("resolution"))
		_, _ = w.Write([]byte(`{"s": "ok",
			"t": [1709596800, 1709510400],
			"o": [11, 10], "h": [12, 11], "l": [10, 9], "c": [11.5, 10.5], "v": [2000, 1000]}`))
	})

	candles, err := client.GetDailyCandles(context.Background(), "AAPL", day1, day2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, day1, candles[0].Date)
	assert.Equal(t, 10.5, candles[0].Close)
	assert.Equal(t, int64(1000), candles[0].Volume)
	assert.Equal(t, day2, candles[1].Date)
}

func TestGetDailyCandlesStatuses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"s": "no_data"}`))
	})
	candles, err := client.GetDailyCandles(context.Background(), "AAPL", time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, candles)

	client = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"s": "ok", "t": [1, 2], "c": [1]}`))
	})
	_, err = client.GetDailyCandles(context.Background(), "AAPL", time.Now(), time.Now())
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "apple", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"count": 1, "result": [{"description": "APPLE INC", "displaySymbol": "AAPL", "symbol": "AAPL", "type": "Common Stock"}]}`))
	})

	results, err := client.Search(context.Background(), "apple")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "APPLE INC", results[0].Description)

	client = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count": 0}`))
	})
	results, err = client.Search(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}
