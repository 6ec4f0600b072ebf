// Package services implements the storefront's business operations on top
// of the repositories. Services return apperr-classified errors only; raw
// database errors never cross the controller boundary.
package services

import (
	"context"
	"errors"

	"github.com/adityaraj/bazario/pkg/apperr"
	"gorm.io/gorm"
)

// notFound reports whether err is a missing-row error.
func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// storeErr classifies an unexpected repository error. Timeouts and
// cancellations surface as Unavailable so callers know a retry with backoff
// is safe; anything else is an internal fault.
func storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.Wrap(apperr.Unavailable, "storage unavailable", err)
	}
	return apperr.Wrap(apperr.Internal, op, err)
}
