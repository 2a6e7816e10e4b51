// Package pirerr defines the typed error values the SimplePIR/Tiptoe core
// surfaces to its callers. The core never logs and never panics on
// adversarial input; every failure mode named in the design is a sentinel
// here, checked with errors.Is/errors.As by the outer service layer.
package pirerr

import "fmt"

// Kind identifies one of the error classes the core can report.
type Kind string

const (
	// KindParameterMismatch means the client and server disagree on Params,
	// typically because a refresh occurred mid-session.
	KindParameterMismatch Kind = "parameter_mismatch"
	// KindDimension means a vector/matrix shape mismatch was found in the
	// finite-field matrix layer. This is a programmer error, not an
	// adversarial one, but it is still reported rather than panicking.
	KindDimension Kind = "dimension"
	// KindDecodeFailure means a reconstructed row lacked its expected magic
	// prefix. Callers should treat this as "no result", not retry.
	KindDecodeFailure Kind = "decode_failure"
	// KindTransport means a network or transport-layer failure occurred.
	// The core is stateless, so retrying is always safe.
	KindTransport Kind = "transport"
	// KindInvalidConfig means the requested (n, q, p, sigma) combination is
	// not supported, e.g. the error budget exceeds Delta/2.
	KindInvalidConfig Kind = "invalid_config"
)

// Error is the concrete error type returned by the core. Wrap an
// underlying cause with Wrap, or construct directly with New.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, pirerr.ParameterMismatch) style checks against
// the zero-value sentinels below, matching on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind around an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Sentinels for errors.Is comparisons, e.g. errors.Is(err, pirerr.ParameterMismatch).
var (
	ParameterMismatch = &Error{Kind: KindParameterMismatch}
	Dimension         = &Error{Kind: KindDimension}
	DecodeFailure     = &Error{Kind: KindDecodeFailure}
	Transport         = &Error{Kind: KindTransport}
	InvalidConfig     = &Error{Kind: KindInvalidConfig}
)
