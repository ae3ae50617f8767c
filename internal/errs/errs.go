// Package errs defines the error classes shared by the engagement services.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no principal is attached to the call.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the principal may not act on the target.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation means the input was rejected before any remote call.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidKind is returned for an unknown notification kind.
	ErrInvalidKind = fmt.Errorf("%w: invalid notification kind", ErrValidation)
	// ErrNameTaken is returned when a username is already in use.
	ErrNameTaken = fmt.Errorf("%w: username already taken", ErrValidation)
	// ErrNotFound means the target record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRemote means the record or blob store failed or timed out.
	ErrRemote = errors.New("remote store failure")
	// ErrIO means the local cache could not be read or written.
	ErrIO = errors.New("local storage failure")
)

// IsAuth reports whether err belongs to the authorization class.
func IsAuth(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrForbidden)
}

// Remote tags a store failure. Not-found errors pass through unchanged.
func Remote(err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrRemote) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRemote, err)
}

// Validation builds a validation error with a reason.
func Validation(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}
