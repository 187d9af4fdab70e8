package flowtypes

import "fmt"

// Kind is the closed error taxonomy a Storage implementation is allowed to
// return (spec.md section 7). Callers type-switch or use errors.As against
// *Error, never against the underlying backend's own error types.
type Kind int

const (
	KindNotFound Kind = iota
	KindConflict
	KindStorage
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindStorage:
		return "storage"
	default:
		return "other"
	}
}

// Error is the concrete error type every Storage method returns for
// expected failure modes (the engine wraps these in its own engine.Error). Wrap lower-level errors with %w via New so
// errors.Unwrap keeps working.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for op, wrapping err (which may be nil).
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NotFound builds a KindNotFound error for op.
func NotFound(op string, err error) *Error { return New(KindNotFound, op, err) }

// Conflict builds a KindConflict error for op.
func Conflict(op string, err error) *Error { return New(KindConflict, op, err) }

// Storage builds a KindStorage error for op.
func Storage(op string, err error) *Error { return New(KindStorage, op, err) }

// Other builds a KindOther error for op.
func Other(op string, err error) *Error { return New(KindOther, op, err) }

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if e, ok := err.(*Error); ok {
		fe = e
	} else {
		return false
	}
	return fe.Kind == kind
}
