package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Validation errors
	ErrInvalidInput     = errors.New("invalid input")
	ErrInsufficientData = fmt.Errorf("%w: insufficient data for analysis", ErrInvalidInput)
	ErrUnknownGroup     = errors.New("group label not present in dataset")
	ErrUnknownColumn    = errors.New("column not present in dataset")

	// Numerical errors raised by statistical primitives
	ErrNumericalComputation = errors.New("numerical computation failed")
	ErrZeroVariance         = fmt.Errorf("%w: zero variance", ErrNumericalComputation)
	ErrSampleSize           = fmt.Errorf("%w: sample size outside supported range", ErrNumericalComputation)
)

// Error constructors with context
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, reason)
}

func NewComputationError(primitive string, err error) error {
	if errors.Is(err, ErrNumericalComputation) {
		return fmt.Errorf("%s: %w", primitive, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrNumericalComputation, primitive, err)
}

func NewUnknownGroupError(column, label string) error {
	return fmt.Errorf("%w: %s=%q", ErrUnknownGroup, column, label)
}

func NewUnknownColumnError(column string) error {
	return fmt.Errorf("%w: %q", ErrUnknownColumn, column)
}

// Error checking helpers
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func IsComputationError(err error) bool {
	return errors.Is(err, ErrNumericalComputation)
}

func IsDatasetError(err error) bool {
	return errors.Is(err, ErrUnknownGroup) || errors.Is(err, ErrUnknownColumn)
}
