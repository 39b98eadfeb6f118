package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the fixed categories every beaver
// operation can fail with.
type Kind int

const (
	// KindOther is used internally only; an Error should always carry a
	// more specific Kind before it is returned to a caller.
	KindOther Kind = iota
	// KindNotFound means a named key/id/edge does not exist.
	KindNotFound
	// KindAlreadyClosed means the operation was invoked after the owning
	// session was closed.
	KindAlreadyClosed
	// KindTimedOut means a lock acquire, blocking queue get, listen, or
	// live tick exceeded its budget.
	KindTimedOut
	// KindEmpty means a non-blocking queue get found nothing to return.
	KindEmpty
	// KindInvalidArgument means the caller passed malformed input.
	KindInvalidArgument
	// KindConfigMismatch means a resource was reopened with parameters
	// that differ from its stored configuration.
	KindConfigMismatch
	// KindCorrupted means a persistent invariant was violated.
	KindCorrupted
	// KindIOError means the underlying storage failed.
	KindIOError
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAlreadyClosed:
		return "already_closed"
	case KindTimedOut:
		return "timed_out"
	case KindEmpty:
		return "empty"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindConfigMismatch:
		return "config_mismatch"
	case KindCorrupted:
		return "corrupted"
	case KindIOError:
		return "io_error"
	default:
		return "other"
	}
}

// Error is the concrete error type returned by every exported beaver
// operation that fails. Op names the failing operation (e.g.
// "queue.Get", "vector.Search") for log correlation; Err, when set, is the
// wrapped underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("beaver: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("beaver: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a sentinel for the same Kind, so callers can
// write errors.Is(err, beaver.ErrNotFound).
func (e *Error) Is(target error) bool {
	s, ok := target.(*sentinel)
	if !ok {
		return false
	}
	return e.Kind == s.kind
}

type sentinel struct{ kind Kind }

func (s *sentinel) Error() string { return s.kind.String() }

// Sentinel errors usable with errors.Is against any *Error of the matching
// Kind, mirroring the fixed error-kind set in the error handling design.
var (
	ErrNotFound       = &sentinel{KindNotFound}
	ErrAlreadyClosed  = &sentinel{KindAlreadyClosed}
	ErrTimedOut       = &sentinel{KindTimedOut}
	ErrEmpty          = &sentinel{KindEmpty}
	ErrInvalidArg     = &sentinel{KindInvalidArgument}
	ErrConfigMismatch = &sentinel{KindConfigMismatch}
	ErrCorrupted      = &sentinel{KindCorrupted}
	ErrIOError        = &sentinel{KindIOError}
)

// E constructs an *Error. Passing a nil err is valid for Kinds that carry
// no underlying cause (Empty, TimedOut, AlreadyClosed).
func E(op string, kind Kind, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsKind reports whether err (or any error it wraps) is a beaver *Error of
// the given Kind.
func IsKind(err error, kind Kind) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind == kind
	}
	return false
}
