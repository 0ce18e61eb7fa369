// Package errs defines the failure taxonomy shared by the abstract domains and the
// interpreter. Every recoverable analysis failure is an *Error carrying a Kind, so
// callers can classify failures with errors.Is against the exported sentinels.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an analysis failure.
type Kind int

const (
	// NotImplemented marks a construct outside current coverage: a type, statement,
	// rvalue, operator or constant encoding the analysis does not model.
	NotImplemented Kind = iota + 1
	// Interpreter marks a runtime inconsistency during interpretation, such as reading
	// an unset local or a function failing the eligibility gate.
	Interpreter
	// InvalidArgument marks a malformed caller-supplied argument list.
	InvalidArgument
	// IndexOutOfRange marks a tuple access past the tuple's arity.
	IndexOutOfRange
)

func (k Kind) String() string {
	switch k {
	case NotImplemented:
		return "not_implemented"
	case Interpreter:
		return "interpreter"
	case InvalidArgument:
		return "invalid_argument"
	case IndexOutOfRange:
		return "index_out_of_range"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is.
var (
	ErrNotImplemented  = &Error{Kind: NotImplemented}
	ErrInterpreter     = &Error{Kind: Interpreter}
	ErrInvalidArgument = &Error{Kind: InvalidArgument}
	ErrIndexOutOfRange = &Error{Kind: IndexOutOfRange}
)

// Error is a typed analysis failure with an optional message.
type Error struct {
	Kind    Kind
	Message string
}

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

// Is reports whether target is an *Error of the same kind. Messages are ignored so
// the package sentinels match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0 if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
