package errors

import "errors"

// Kinds shared by services and transports. Domain errors wrap one of these
// with %w so callers classify with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict marks a unique-key collision or a state that already happened.
	ErrConflict = errors.New("conflict")
	// ErrPrecondition marks a well-formed request the current state cannot accept.
	ErrPrecondition = errors.New("precondition failed")
)

// Permanent reports whether retrying err can never succeed.
func Permanent(err error) bool {
	if err == nil {
		return false
	}
	for _, kind := range []error{ErrNotFound, ErrInvalidArgument, ErrConflict, ErrPrecondition, ErrForbidden} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
