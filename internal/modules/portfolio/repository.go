package portfolio

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/portfolio-analytics/internal/database"
	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles portfolio and allocation database operations
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// Create validates req and inserts the portfolio with its allocations in
// one transaction.
func (r *Repository) Create(ctx context.Context, req CreateRequest) (*domain.Portfolio, error) {
	profile, err := req.Validate()
	if err != nil {
		return nil, err
	}

	now := r.now().UTC().Truncate(time.Second)
	var id int64

	err = database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO portfolios (name, risk_profile, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			req.Name, string(profile), now.Unix(), now.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert portfolio: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read portfolio id: %w", err)
		}
		return insertAllocations(ctx, tx, id, req.Allocations)
	})
	if err != nil {
		return nil, err
	}

	r.log.Info().Int64("portfolio_id", id).Str("name", req.Name).Int("allocations", len(req.Allocations)).Msg("Portfolio created")

	return r.GetWithAllocations(ctx, id)
}

// Update replaces the name, risk profile and allocations of a portfolio.
// Existing asset snapshots keep their values; their allocation link is cleared.
func (r *Repository) Update(ctx context.Context, id int64, req CreateRequest) (*domain.Portfolio, error) {
	profile, err := req.Validate()
	if err != nil {
		return nil, err
	}

	now := r.now().UTC().Truncate(time.Second)

	err = database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE portfolios SET name = ?, risk_profile = ?, updated_at = ? WHERE id = ?`,
			req.Name, string(profile), now.Unix(), id,
		)
		if err != nil {
			return fmt.Errorf("failed to update portfolio: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.NewNotFound("portfolio", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM allocations WHERE portfolio_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear allocations: %w", err)
		}
		return insertAllocations(ctx, tx, id, req.Allocations)
	})
	if err != nil {
		return nil, err
	}

	r.log.Info().Int64("portfolio_id", id).Msg("Portfolio updated")

	return r.GetWithAllocations(ctx, id)
}

func insertAllocations(ctx context.Context, tx *sql.Tx, portfolioID int64, allocations []AllocationInput) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO allocations
		(portfolio_id, asset_class, asset_name, allocation_percentage, ticker, sector, region, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare allocation insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range allocations {
		meta, err := encodeMetadata(a.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			portfolioID, a.AssetClass, a.AssetName, a.AllocationPercentage,
			nullString(a.Ticker), nullString(a.Sector), nullString(a.Region), meta,
		); err != nil {
			return fmt.Errorf("failed to insert allocation %s: %w", a.AssetName, err)
		}
	}
	return nil
}

// GetByID returns the portfolio without allocations, or a NotFoundError
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Portfolio, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, risk_profile, created_at, updated_at FROM portfolios WHERE id = ?`, id)

	p, err := scanPortfolio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("portfolio", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio %d: %w", id, err)
	}
	return &p, nil
}

// GetWithAllocations returns the portfolio with its allocations populated
func (r *Repository) GetWithAllocations(ctx context.Context, id int64) (*domain.Portfolio, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Allocations, err = r.GetAllocations(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

// GetAllocations returns the allocations of a portfolio ordered by id
func (r *Repository) GetAllocations(ctx context.Context, portfolioID int64) ([]domain.Allocation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, portfolio_id, asset_class, asset_name,
		allocation_percentage, ticker, sector, region, metadata
		FROM allocations WHERE portfolio_id = ? ORDER BY id`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	allocations := make([]domain.Allocation, 0)
	for rows.Next() {
		var (
			a                      domain.Allocation
			ticker, sector, region sql.NullString
			metadata               sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.PortfolioID, &a.AssetClass, &a.AssetName,
			&a.AllocationPercentage, &ticker, &sector, &region, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		a.Ticker = stringPtr(ticker)
		a.Sector = stringPtr(sector)
		a.Region = stringPtr(region)
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &a.Metadata); err != nil {
				r.log.Warn().Err(err).Int64("allocation_id", a.ID).Msg("Ignoring unreadable allocation metadata")
			}
		}
		allocations = append(allocations, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocations: %w", err)
	}

	return allocations, nil
}

// List returns all portfolios ordered by id, without allocations
func (r *Repository) List(ctx context.Context) ([]domain.Portfolio, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, risk_profile, created_at, updated_at FROM portfolios ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	portfolios := make([]domain.Portfolio, 0)
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}

	return portfolios, nil
}

// Delete removes a portfolio. Allocations and snapshots cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM portfolios WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.NewNotFound("portfolio", id)
	}

	r.log.Info().Int64("portfolio_id", id).Msg("Portfolio deleted")
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPortfolio(s rowScanner) (domain.Portfolio, error) {
	var (
		p                domain.Portfolio
		profile          string
		created, updated int64
	)
	if err := s.Scan(&p.ID, &p.Name, &profile, &created, &updated); err != nil {
		return p, err
	}
	p.RiskProfile = domain.RiskProfile(profile)
	p.CreatedAt = time.Unix(created, 0).UTC()
	p.UpdatedAt = time.Unix(updated, 0).UTC()
	return p, nil
}

func encodeMetadata(m map[string]any) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, domain.NewValidation("allocation metadata is not serializable: %v", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
