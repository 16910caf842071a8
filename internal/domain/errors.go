package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is against the typed errors below.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrInsufficientData = errors.New("insufficient data")
	ErrProvider         = errors.New("market data providers failed")
	ErrDivisionHazard   = errors.New("division by zero")
)

// NotFoundError reports an absent entity (portfolio, snapshot).
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFound creates a NotFoundError
func NewNotFound(entity string, id any) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError reports structurally invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidation creates a ValidationError with a formatted message
func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// WeightsError is the validation failure raised when portfolio weights
// cannot be normalized.
type WeightsError struct {
	Sum float64
}

func (e *WeightsError) Error() string {
	return fmt.Sprintf("portfolio weights sum to %g, cannot normalize", e.Sum)
}

func (e *WeightsError) Is(target error) bool { return target == ErrValidation }

// InsufficientDataError reports that the usable market data set is empty
// after per-ticker exclusions.
type InsufficientDataError struct {
	Message string
}

func (e *InsufficientDataError) Error() string { return e.Message }

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// NewInsufficientData creates an InsufficientDataError with a formatted message
func NewInsufficientData(format string, args ...any) *InsufficientDataError {
	return &InsufficientDataError{Message: fmt.Sprintf(format, args...)}
}

// ProviderError reports that both market data providers failed for a symbol.
// It carries both underlying failures.
type ProviderError struct {
	Ticker    string
	Primary   error
	Secondary error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("failed to fetch price for %s: %v, %v", e.Ticker, e.Primary, e.Secondary)
}

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// Unwrap exposes both provider failures to errors.Is / errors.As.
func (e *ProviderError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Primary != nil {
		errs = append(errs, e.Primary)
	}
	if e.Secondary != nil {
		errs = append(errs, e.Secondary)
	}
	return errs
}

// DivisionHazard reports a computed denominator of exactly zero.
type DivisionHazard struct {
	Quantity string
}

func (e *DivisionHazard) Error() string {
	return fmt.Sprintf("cannot compute %s: zero denominator", e.Quantity)
}

func (e *DivisionHazard) Is(target error) bool { return target == ErrDivisionHazard }
