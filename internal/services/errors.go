package services

import (
	"errors"
	"fmt"

	apperrors "github.com/cdc-hr/assessment-engine/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
	ErrInternalError    = errors.New("internal server error")

	// Session / attempt errors. Start-time validation errors (empty
	// name, empty pool) are owned by the session package.
	ErrNoActiveAttempt = errors.New("no attempt is active")
	ErrAttemptNotFound = errors.New("attempt not found")

	// Bank / import errors
	ErrBankNotFound          = errors.New("bank not found")
	ErrUnsupportedFileFormat = errors.New("unsupported file format")
	ErrImportBadShape        = errors.New("import data has the wrong shape")
	ErrInvalidMode           = errors.New("invalid assessment mode")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// validationFailed wraps a validator failure so callers can match
// ErrValidationFailed with errors.Is and extract the per-field errors
// with errors.As.
func validationFailed(err error) error {
	if fieldErrors := apperrors.ToValidationErrors(err); len(fieldErrors) > 0 {
		return fmt.Errorf("%w: %w", ErrValidationFailed, fieldErrors)
	}
	return fmt.Errorf("%w: %s", ErrValidationFailed, err)
}
