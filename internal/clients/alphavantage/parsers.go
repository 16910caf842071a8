package alphavantage

import (
	"encoding/json"
	"fmt"
	"sort"
)

func parseGlobalQuote(body []byte) (*GlobalQuote, error) {
	var raw struct {
		Quote map[string]string `json:"Global Quote"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode global quote: %w", err)
	}
	if raw.Quote == nil {
		return nil, fmt.Errorf("malformed global quote: missing \"Global Quote\"")
	}

	q := raw.Quote
	return &GlobalQuote{
		Symbol:           q["01. symbol"],
		Open:             parseFloat64(q["02. open"]),
		High:             parseFloat64(q["03. high"]),
		Low:              parseFloat64(q["04. low"]),
		Price:            parseFloat64(q["05. price"]),
		Volume:           parseInt64(q["06. volume"]),
		LatestTradingDay: parseDate(q["07. latest trading day"]),
		PreviousClose:    parseFloat64(q["08. previous close"]),
		Change:           parseFloat64(q["09. change"]),
		ChangePercent:    parseFloat64(q["10. change percent"]),
	}, nil
}

// parseDailyTimeSeries returns bars sorted newest first
func parseDailyTimeSeries(body []byte) ([]DailyPrice, error) {
	var raw struct {
		Series map[string]map[string]string `json:"Time Series (Daily)"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode daily time series: %w", err)
	}
	if raw.Series == nil {
		return nil, fmt.Errorf("malformed daily time series: missing \"Time Series (Daily)\"")
	}

	prices := make([]DailyPrice, 0, len(raw.Series))
	for date, bar := range raw.Series {
		d := parseDate(date)
		if d.IsZero() {
			return nil, fmt.Errorf("malformed daily time series: bad date %q", date)
		}
		prices = append(prices, DailyPrice{
			Date:   d,
			Open:   parseFloat64(bar["1. open"]),
			High:   parseFloat64(bar["2. high"]),
			Low:    parseFloat64(bar["3. low"]),
			Close:  parseFloat64(bar["4. close"]),
			Volume: parseInt64(bar["5. volume"]),
		})
	}

	sort.Slice(prices, func(i, j int) bool {
		return prices[i].Date.After(prices[j].Date)
	})

	return prices, nil
}

func parseSymbolSearch(body []byte) ([]SymbolMatch, error) {
	var raw struct {
		BestMatches []map[string]string `json:"bestMatches"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode symbol search: %w", err)
	}

	matches := make([]SymbolMatch, 0, len(raw.BestMatches))
	for _, m := range raw.BestMatches {
		matches = append(matches, SymbolMatch{
			Symbol:     m["1. symbol"],
			Name:       m["2. name"],
			Type:       m["3. type"],
			Region:     m["4. region"],
			Currency:   m["8. currency"],
			MatchScore: parseFloat64(m["9. matchScore"]),
		})
	}

	return matches, nil
}
