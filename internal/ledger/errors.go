package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
)

var (
	// ErrValidation covers rejected input: the operation is a no-op.
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not found")
	ErrTabNotFound       = errors.New("tab not found")
	ErrLogNotFound       = errors.New("log entry not found")

	// ErrProtectedEntry is returned when deleting a locked log entry.
	ErrProtectedEntry = errors.New("log entry is protected")
	// ErrNotReversible is returned for entry types with no inverse.
	ErrNotReversible     = errors.New("log entry is not reversible")
	ErrIncompleteLogData = errors.New("log entry data is incomplete")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

type InsufficientStockError struct {
	ProductID string
	Product   string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.Product, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

type IncompleteLogDataError struct {
	LogID   string
	Type    domain.LogType
	Missing []string
}

func (e *IncompleteLogDataError) Error() string {
	return fmt.Sprintf("%s entry %s is missing %s", e.Type, e.LogID, strings.Join(e.Missing, ", "))
}

func (e *IncompleteLogDataError) Unwrap() error {
	return ErrIncompleteLogData
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInsufficientStock)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrTabNotFound) || errors.Is(err, ErrLogNotFound)
}

func IsIrreversible(err error) bool {
	return errors.Is(err, ErrProtectedEntry) || errors.Is(err, ErrNotReversible) || errors.Is(err, ErrIncompleteLogData)
}
