// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the cross-store coordinator. Not-found conditions
// are expected control flow; CompensationError is the one kind that signals
// the stores now disagree and an operator has to reconcile.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrProductNotFound        = errors.New("product not found")
	ErrCategoryNotFound       = errors.New("category not found")
	ErrBrandResolution        = errors.New("brand resolution failed")
	ErrDocumentWrite          = errors.New("document store write failed")
	ErrGraphWrite             = errors.New("graph store write failed")
	ErrConcurrentModification = errors.New("product was modified concurrently")
)

// CompensationError reports that a compensating graph action failed or could
// not be confirmed after the stores diverged. The product node named here may
// be dangling and must never be silently retried.
type CompensationError struct {
	ProductID string
	Op        string // create, update, delete
	Cause     error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation failed during %s of product %s: graph and document stores may disagree: %v",
		e.Op, e.ProductID, e.Cause)
}

func (e *CompensationError) Unwrap() error {
	return e.Cause
}

// IsCompensationError reports whether err carries a CompensationError.
func IsCompensationError(err error) bool {
	var ce *CompensationError
	return errors.As(err, &ce)
}
