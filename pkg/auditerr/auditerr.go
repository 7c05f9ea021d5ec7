// Package auditerr defines the error taxonomy shared by every layer of the
// audit core. Services and stores return *Error; only the HTTP boundary
// (pkg/api) knows how to turn a Kind into a status code.
package auditerr

import "fmt"

// Kind is one of the error kinds from the audit core's error handling design.
type Kind string

const (
	NotFound            Kind = "not_found"
	StateConflict       Kind = "state_conflict"
	Validation          Kind = "validation"
	Forbidden           Kind = "forbidden"
	Unauthorised        Kind = "unauthorised"
	UpstreamUnavailable Kind = "upstream_unavailable"
	UpstreamError       Kind = "upstream_error"
)

// Error is a typed application error carrying a Kind, a stable Code used for
// programmatic matching (e.g. "session_not_draft"), and a human detail.
type Error struct {
	Kind   Kind
	Code   string
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, code, detail string) *Error {
	return &Error{Kind: kind, Code: code, Detail: detail}
}

func Wrap(kind Kind, code, detail string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Detail: detail, Cause: cause}
}

func NotFoundf(code, format string, args ...any) *Error {
	return New(NotFound, code, fmt.Sprintf(format, args...))
}

func Conflictf(code, format string, args ...any) *Error {
	return New(StateConflict, code, fmt.Sprintf(format, args...))
}

func Validationf(code, format string, args ...any) *Error {
	return New(Validation, code, fmt.Sprintf(format, args...))
}

func Forbiddenf(code, format string, args ...any) *Error {
	return New(Forbidden, code, fmt.Sprintf(format, args...))
}

// As extracts an *Error from err, returning nil, false if err is not one.
func As(err error) (*Error, bool) {
	ae, ok := err.(*Error)
	return ae, ok
}
