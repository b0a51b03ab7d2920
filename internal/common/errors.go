// Package common defines shared constants and sentinel errors used across
// the server layers of docanchor. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors for upload metadata and paging.
	ErrorIncorrectMetadata = errors.New("incorrect metadata")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// ErrFatalInput rejects an upload whose source could not be stored or
	// digested. No document exists after it.
	ErrFatalInput = errors.New("fatal input error")

	// ErrPrecondition rejects a request before any external call is made,
	// e.g. a ledger re-verification of a document that was never anchored.
	ErrPrecondition = errors.New("precondition failed")

	// ErrUnavailable marks a content store or ledger that could not be
	// reached in time. It is retryable and never fatal to a pipeline run.
	ErrUnavailable = errors.New("external system unavailable")

	// ErrIntegrityViolation marks a definitive digest mismatch, either
	// against the stored digest or against the ledger record.
	ErrIntegrityViolation = errors.New("integrity violation")

	// ErrStorageRead is returned when stored bytes cannot be read back.
	ErrStorageRead = errors.New("storage read error")
)
