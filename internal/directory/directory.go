// Package directory defines the lookup contract against a security realm and
// the normalized outcome of a lookup.
package directory

import (
	"context"
	"errors"
	"fmt"

	"principalcheck/internal/principal/models"
)

// Directory resolves names against the user and group namespaces of a realm.
//
// A nil error means the principal was found. Otherwise the error is one of
// ErrNotFound, ErrUndecidable or an *AuthError; Classify normalizes it.
type Directory interface {
	LookupGroup(ctx context.Context, name string) (*models.Group, error)
	LookupUser(ctx context.Context, name string) (*models.User, error)
}

var (
	// ErrNotFound means the realm knows the name does not exist in the namespace.
	ErrNotFound = errors.New("principal not found")

	// ErrUndecidable means the realm can neither confirm nor deny the name.
	ErrUndecidable = errors.New("principal may or may not exist")
)

// AuthError is an unexpected failure while talking to the realm.
type AuthError struct {
	Reason string
	Err    error
}

// Error implements the error interface
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("directory authentication failed: %s: %v", e.Reason, e.Err)
	}
	return "directory authentication failed: " + e.Reason
}

// Unwrap supports error unwrapping
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError wraps err as an AuthError with a human-readable reason.
func NewAuthError(reason string, err error) *AuthError {
	return &AuthError{Reason: reason, Err: err}
}

// Result is the closed set of lookup outcomes.
type Result int

const (
	ResultFound Result = iota + 1
	ResultMaybeExists
	ResultNotFound
	ResultAuthError
)

func (r Result) String() string {
	switch r {
	case ResultFound:
		return "found"
	case ResultMaybeExists:
		return "maybe_exists"
	case ResultNotFound:
		return "not_found"
	case ResultAuthError:
		return "auth_error"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Classify maps a lookup error onto Result. Errors outside the taxonomy are
// treated as AuthError so they surface instead of being swallowed.
func Classify(err error) Result {
	switch {
	case err == nil:
		return ResultFound
	case errors.Is(err, ErrUndecidable):
		return ResultMaybeExists
	case errors.Is(err, ErrNotFound):
		return ResultNotFound
	default:
		return ResultAuthError
	}
}

// Reason extracts the failure reason shown to the user for an AuthError result.
func Reason(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		if ae.Err != nil {
			return ae.Reason + ": " + ae.Err.Error()
		}
		return ae.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
