package beaver

import "github.com/beaver-db/beaver/errs"

// Error, Kind, and the sentinel errors live in package errs so that every
// manager subpackage (lock, queue, channel, tslog, vector, collection,
// dict, list, blob) can construct and compare them without
// importing this root package. The aliases below just give callers the
// more natural beaver.ErrNotFound / beaver.Error spelling at the top level.
type (
	Kind  = errs.Kind
	Error = errs.Error
)

const (
	KindOther           = errs.KindOther
	KindNotFound        = errs.KindNotFound
	KindAlreadyClosed   = errs.KindAlreadyClosed
	KindTimedOut        = errs.KindTimedOut
	KindEmpty           = errs.KindEmpty
	KindInvalidArgument = errs.KindInvalidArgument
	KindConfigMismatch  = errs.KindConfigMismatch
	KindCorrupted       = errs.KindCorrupted
	KindIOError         = errs.KindIOError
)

var (
	ErrNotFound       = errs.ErrNotFound
	ErrAlreadyClosed  = errs.ErrAlreadyClosed
	ErrTimedOut       = errs.ErrTimedOut
	ErrEmpty          = errs.ErrEmpty
	ErrInvalidArg     = errs.ErrInvalidArg
	ErrConfigMismatch = errs.ErrConfigMismatch
	ErrCorrupted      = errs.ErrCorrupted
	ErrIOError        = errs.ErrIOError
)

// E and IsKind are re-exported for convenience at the top level.
func E(op string, kind Kind, err error) error { return errs.E(op, kind, err) }

func IsKind(err error, kind Kind) bool { return errs.IsKind(err, kind) }
