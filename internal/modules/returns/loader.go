package returns

import (
	"context"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/marketdata"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentLoads = 4

// HistorySource provides daily price histories
type HistorySource interface {
	GetHistoricalSeries(ctx context.Context, ticker string, start, end time.Time) (*marketdata.PriceSeries, error)
}

// Loader fetches price histories for a set of tickers and turns them into
// an aligned return table.
type Loader struct {
	source HistorySource
	log    zerolog.Logger
}

// NewLoader creates a new loader
func NewLoader(source HistorySource, log zerolog.Logger) *Loader {
	return &Loader{
		source: source,
		log:    log.With().Str("component", "returns_loader").Logger(),
	}
}

// Load fetches every ticker concurrently. Tickers whose history cannot be
// fetched, is empty, or cannot be converted are logged and left out of the
// table. When no ticker survives the result is a *domain.InsufficientDataError.
func (l *Loader) Load(ctx context.Context, tickers []string, start, end time.Time) (*Table, error) {
	results := make([]*Series, len(tickers))

	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentLoads)

	// Each goroutine writes only its own slot
	for i, ticker := range tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			s, err := l.loadOne(ctx, ticker, start, end)
			if err != nil {
				l.log.Warn().Err(err).Str("ticker", ticker).Msg("Excluding ticker from analysis")
				return nil
			}
			results[i] = s
			return nil
		})
	}
	_ = g.Wait()

	usable := make([]Series, 0, len(results))
	for _, s := range results {
		if s != nil {
			usable = append(usable, *s)
		}
	}
	if len(usable) == 0 {
		return nil, domain.NewInsufficientData("could not retrieve historical data for any assets")
	}

	return Align(usable...)
}

func (l *Loader) loadOne(ctx context.Context, ticker string, start, end time.Time) (*Series, error) {
	series, err := l.source.GetHistoricalSeries(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	if len(series.Points) == 0 {
		return nil, domain.NewInsufficientData("no price history for %s", ticker)
	}

	s, err := ToReturns(series)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
