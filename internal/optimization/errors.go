package optimization

import (
	"errors"
	"fmt"
)

// Kind classifies an optimization error so callers can react to the
// failure class without matching on message text.
type Kind int

const (
	// KindInternal is the zero value, used when no more specific class applies.
	KindInternal Kind = iota
	// KindConfiguration marks invalid parameters or missing inputs,
	// detected eagerly before any work is done.
	KindConfiguration
	// KindPrecondition marks inputs that are well formed but violate an
	// algorithmic requirement, such as a non-descent search direction.
	KindPrecondition
	// KindEvaluation marks a failure propagated from an Objective.
	// Evaluation failures are fatal and never retried.
	KindEvaluation
	// KindBreakdown marks a search that could not make further progress.
	KindBreakdown
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindPrecondition:
		return "precondition"
	case KindEvaluation:
		return "evaluation"
	case KindBreakdown:
		return "breakdown"
	default:
		return "internal"
	}
}

// Error is an optimization error carrying its failure class and,
// optionally, the operation that produced it and an underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		if msg != "" {
			return fmt.Sprintf("%s: %v", msg, e.Err)
		}
		return e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// NewError creates a new error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewErrorf creates a new error of the given kind with a formatted message.
func NewErrorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an existing error with a kind and message.
// If err is nil, WrapError returns nil.
func WrapError(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// ErrorKind returns the kind of err if it is (or wraps) an *Error,
// and KindInternal otherwise.
func ErrorKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return ErrorKind(err) == KindConfiguration }

// IsPrecondition reports whether err is a precondition error.
func IsPrecondition(err error) bool { return ErrorKind(err) == KindPrecondition }

// IsEvaluation reports whether err is an evaluation error.
func IsEvaluation(err error) bool { return ErrorKind(err) == KindEvaluation }

// IsBreakdown reports whether err is a breakdown error.
func IsBreakdown(err error) bool { return ErrorKind(err) == KindBreakdown }
