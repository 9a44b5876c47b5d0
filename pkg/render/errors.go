package render

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every failure surfaced by the composition pipeline wraps exactly
// one of these so callers can branch with errors.Is.
var (
	// ErrConfiguration reports usage out of order (environment or loader not
	// ready), unknown extension shortnames, or function registration failures.
	ErrConfiguration = errors.New("configuration error")
	// ErrPrecondition reports an unmet render precondition such as a
	// non-writable assets directory.
	ErrPrecondition = errors.New("precondition failed")
	// ErrUnsupportedLoader reports a render attempted against a loader that is
	// not filesystem-backed.
	ErrUnsupportedLoader = errors.New("unsupported loader")
	// ErrRender reports template resolution or evaluation failures raised by
	// the template engine.
	ErrRender = errors.New("render error")
	// ErrValidation reports malformed caller input.
	ErrValidation = errors.New("validation error")
)

// Error carries the failing operation, a human readable message, the error
// kind and the underlying cause (if any).
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func newError(kind error, op string, cause error, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Op: op, Message: msg, Err: cause}
}

// ConfigurationError builds an ErrConfiguration failure for op.
func ConfigurationError(op string, cause error, format string, args ...any) *Error {
	return newError(ErrConfiguration, op, cause, format, args...)
}

// PreconditionError builds an ErrPrecondition failure for op.
func PreconditionError(op string, cause error, format string, args ...any) *Error {
	return newError(ErrPrecondition, op, cause, format, args...)
}

// UnsupportedLoaderError builds an ErrUnsupportedLoader failure for op.
func UnsupportedLoaderError(op string, format string, args ...any) *Error {
	return newError(ErrUnsupportedLoader, op, nil, format, args...)
}

// RenderError wraps an engine failure. The engine message stays reachable
// through errors.Unwrap.
func RenderError(op string, cause error, format string, args ...any) *Error {
	return newError(ErrRender, op, cause, format, args...)
}

// ValidationError builds an ErrValidation failure for op.
func ValidationError(op string, cause error, format string, args ...any) *Error {
	return newError(ErrValidation, op, cause, format, args...)
}

// KindOf returns the error kind wrapped by err, or nil when err does not come
// from this package.
func KindOf(err error) error {
	for _, kind := range []error{ErrConfiguration, ErrPrecondition, ErrUnsupportedLoader, ErrRender, ErrValidation} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
