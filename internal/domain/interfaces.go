package domain

import "context"

// PortfolioReader provides read access to stored portfolios.
// The analytics services never write portfolios, so they depend on this
// narrow view instead of the full repository.
type PortfolioReader interface {
	// GetByID returns the portfolio or a NotFoundError
	GetByID(ctx context.Context, id int64) (*Portfolio, error)

	// GetAllocations returns the portfolio allocations ordered by id
	GetAllocations(ctx context.Context, portfolioID int64) ([]Allocation, error)

	// List returns all portfolios without allocations
	List(ctx context.Context) ([]Portfolio, error)
}
