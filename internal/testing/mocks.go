package testing

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/marketdata"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockPortfolioReader is an in-memory implementation of domain.PortfolioReader
type MockPortfolioReader struct {
	mu         sync.RWMutex
	portfolios map[int64]domain.Portfolio
	order      []int64
	err        error
}

// NewMockPortfolioReader creates a new mock portfolio reader
func NewMockPortfolioReader() *MockPortfolioReader {
	return &MockPortfolioReader{
		portfolios: make(map[int64]domain.Portfolio),
	}
}

// Add stores a portfolio together with its allocations
func (m *MockPortfolioReader) Add(p domain.Portfolio) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.portfolios[p.ID]; !exists {
		m.order = append(m.order, p.ID)
	}
	m.portfolios[p.ID] = p
}

// SetError sets the error to return from every method
func (m *MockPortfolioReader) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// GetByID returns the portfolio without allocations
func (m *MockPortfolioReader) GetByID(_ context.Context, id int64) (*domain.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.portfolios[id]
	if !ok {
		return nil, domain.NewNotFound("portfolio", id)
	}
	p.Allocations = nil
	return &p, nil
}

// GetAllocations returns the stored allocations
func (m *MockPortfolioReader) GetAllocations(_ context.Context, portfolioID int64) ([]domain.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.portfolios[portfolioID]
	if !ok {
		return []domain.Allocation{}, nil
	}
	return append([]domain.Allocation(nil), p.Allocations...), nil
}

// List returns portfolios in insertion order
func (m *MockPortfolioReader) List(_ context.Context) ([]domain.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	result := make([]domain.Portfolio, 0, len(m.order))
	for _, id := range m.order {
		p := m.portfolios[id]
		p.Allocations = nil
		result = append(result, p)
	}
	return result, nil
}

// MockProvider is a testify mock implementing marketdata.Provider
type MockProvider struct {
	mock.Mock
	name string
}

// NewMockProvider creates a mock provider reporting name
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) LatestPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	args := m.Called(ctx, ticker)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockProvider) DailySeries(ctx context.Context, ticker string, start, end time.Time) ([]marketdata.PricePoint, error) {
	args := m.Called(ctx, ticker, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]marketdata.PricePoint), args.Error(1)
}

func (m *MockProvider) SearchSymbols(ctx context.Context, query string) ([]marketdata.SymbolMatch, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]marketdata.SymbolMatch), args.Error(1)
}
