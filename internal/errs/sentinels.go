// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service/client layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates a concurrent modification was detected.
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller is authenticated but the session kind or ownership does not allow the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates a missing or malformed input field. Never sent to the store.
	ErrValidation = errors.New("validation")

	// ErrInvalidTransition indicates a status change outside the resource's workflow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnsupported indicates the operation is not offered for this resource (e.g. deleting a visitor request).
	ErrUnsupported = errors.New("unsupported operation")

	// ErrMFARequired indicates a second factor must be verified before a session is issued.
	ErrMFARequired = errors.New("mfa required")

	// ErrInvalidCode indicates a wrong, expired or exhausted one-time code.
	ErrInvalidCode = errors.New("invalid code")

	// ErrAdminUnknown is returned by admin login when the username does not exist.
	ErrAdminUnknown = errors.New("Admin username not found")

	// ErrAdminPasswordMismatch is returned by admin login when the username exists but the password is wrong.
	ErrAdminPasswordMismatch = errors.New("Incorrect password")
)
