package snapshots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/portfolio-analytics/internal/database"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repository persists snapshots. Snapshots are never updated once written.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new snapshot repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// Create inserts s and its assets in one transaction and fills in the
// generated ids. Nothing is written if ctx is cancelled before commit.
func (r *Repository) Create(ctx context.Context, s *PortfolioSnapshot) error {
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO portfolio_snapshots
			(portfolio_id, total_value, date, daily_change_percent, monthly_change_percent, yearly_change_percent)
			VALUES (?, ?, ?, ?, ?, ?)`,
			s.PortfolioID, s.TotalValue.String(), s.Date.Unix(),
			nullFloat(s.DailyChangePercent), nullFloat(s.MonthlyChangePercent), nullFloat(s.YearlyChangePercent),
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read snapshot id: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO asset_snapshots
			(snapshot_id, allocation_id, asset_name, ticker, price, quantity, value, allocation_percentage)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare asset snapshot insert: %w", err)
		}
		defer stmt.Close()

		for i := range s.Assets {
			a := &s.Assets[i]
			res, err := stmt.ExecContext(ctx,
				id, nullInt(a.AllocationID), a.AssetName, nullString(a.Ticker),
				a.Price.String(), a.Quantity.String(), a.Value.String(), a.AllocationPercentage,
			)
			if err != nil {
				return fmt.Errorf("failed to insert asset snapshot %s: %w", a.AssetName, err)
			}
			if a.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to read asset snapshot id: %w", err)
			}
			a.SnapshotID = id
		}

		s.ID = id
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug().Int64("portfolio_id", s.PortfolioID).Int64("snapshot_id", s.ID).Int("assets", len(s.Assets)).Msg("Snapshot stored")
	return nil
}

// Latest returns the most recent snapshot of a portfolio, or nil when there is none
func (r *Repository) Latest(ctx context.Context, portfolioID int64) (*PortfolioSnapshot, error) {
	return r.queryOne(ctx, `SELECT id, portfolio_id, total_value, date,
		daily_change_percent, monthly_change_percent, yearly_change_percent
		FROM portfolio_snapshots WHERE portfolio_id = ?
		ORDER BY date DESC, id DESC LIMIT 1`, portfolioID)
}

// LatestAtOrBefore returns the most recent snapshot dated at or before t,
// or nil when there is none. Assets are not loaded.
func (r *Repository) LatestAtOrBefore(ctx context.Context, portfolioID int64, t time.Time) (*PortfolioSnapshot, error) {
	return r.queryOne(ctx, `SELECT id, portfolio_id, total_value, date,
		daily_change_percent, monthly_change_percent, yearly_change_percent
		FROM portfolio_snapshots WHERE portfolio_id = ? AND date <= ?
		ORDER BY date DESC, id DESC LIMIT 1`, portfolioID, t.Unix())
}

func (r *Repository) queryOne(ctx context.Context, query string, args ...any) (*PortfolioSnapshot, error) {
	s, err := scanSnapshot(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &s, nil
}

// Range returns the snapshots dated within [start, end], ascending, with
// their assets loaded
func (r *Repository) Range(ctx context.Context, portfolioID int64, start, end time.Time) ([]PortfolioSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, portfolio_id, total_value, date,
		daily_change_percent, monthly_change_percent, yearly_change_percent
		FROM portfolio_snapshots WHERE portfolio_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, id ASC`, portfolioID, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]PortfolioSnapshot, 0)
	index := make(map[int64]int)
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		index[s.ID] = len(snapshots)
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	if len(snapshots) == 0 {
		return snapshots, nil
	}

	assets, err := r.db.QueryContext(ctx, `SELECT a.id, a.snapshot_id, a.allocation_id, a.asset_name,
		a.ticker, a.price, a.quantity, a.value, a.allocation_percentage
		FROM asset_snapshots a
		JOIN portfolio_snapshots s ON s.id = a.snapshot_id
		WHERE s.portfolio_id = ? AND s.date >= ? AND s.date <= ?
		ORDER BY a.snapshot_id, a.id`, portfolioID, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query asset snapshots: %w", err)
	}
	defer assets.Close()

	for assets.Next() {
		a, err := scanAsset(assets)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset snapshot: %w", err)
		}
		if i, ok := index[a.SnapshotID]; ok {
			snapshots[i].Assets = append(snapshots[i].Assets, a)
		}
	}
	if err := assets.Err(); err != nil {
		return nil, fmt.Errorf("error iterating asset snapshots: %w", err)
	}

	return snapshots, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(s rowScanner) (PortfolioSnapshot, error) {
	var (
		snap                   PortfolioSnapshot
		total                  string
		date                   int64
		daily, monthly, yearly sql.NullFloat64
	)
	if err := s.Scan(&snap.ID, &snap.PortfolioID, &total, &date, &daily, &monthly, &yearly); err != nil {
		return snap, err
	}

	v, err := decimal.NewFromString(total)
	if err != nil {
		return snap, fmt.Errorf("snapshot %d has invalid total_value %q: %w", snap.ID, total, err)
	}
	snap.TotalValue = v
	snap.Date = time.Unix(date, 0).UTC()
	snap.DailyChangePercent = floatPtr(daily)
	snap.MonthlyChangePercent = floatPtr(monthly)
	snap.YearlyChangePercent = floatPtr(yearly)
	snap.Assets = []AssetSnapshot{}
	return snap, nil
}

func scanAsset(s rowScanner) (AssetSnapshot, error) {
	var (
		a                      AssetSnapshot
		allocationID           sql.NullInt64
		ticker                 sql.NullString
		price, quantity, value string
	)
	if err := s.Scan(&a.ID, &a.SnapshotID, &allocationID, &a.AssetName, &ticker,
		&price, &quantity, &value, &a.AllocationPercentage); err != nil {
		return a, err
	}

	var err error
	if a.Price, err = decimal.NewFromString(price); err != nil {
		return a, fmt.Errorf("asset snapshot %d has invalid price: %w", a.ID, err)
	}
	if a.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return a, fmt.Errorf("asset snapshot %d has invalid quantity: %w", a.ID, err)
	}
	if a.Value, err = decimal.NewFromString(value); err != nil {
		return a, fmt.Errorf("asset snapshot %d has invalid value: %w", a.ID, err)
	}
	if allocationID.Valid {
		id := allocationID.Int64
		a.AllocationID = &id
	}
	if ticker.Valid {
		t := ticker.String
		a.Ticker = &t
	}
	return a, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

func nullInt(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
