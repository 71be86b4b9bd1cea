// Package apperr defines the diagram service's error taxonomy, mirroring the
// teacher's ErrorEventData/ErrorCode* constants in core/error_handling.go but
// specialized to the request lifecycle of spec.md §7.
package apperr

import "fmt"

// Code is one of the closed set of error codes surfaced to clients.
type Code string

const (
	CodeValidation             Code = "ValidationError"
	CodeUnsupportedDiagramKind Code = "UnsupportedDiagramKind"
	CodeGenerator              Code = "GeneratorError"
	CodeAllStrategiesExhausted Code = "AllStrategiesExhausted"
	CodeRender                 Code = "RenderError"
	CodeUpload                 Code = "UploadError"
	CodeTimeout                Code = "Timeout"
	CodeCancelled               Code = "Cancelled"
	CodeInternal               Code = "InternalError"

	// Template Library errors (spec.md §4.5). apperr.As passes them through
	// unchanged, so they reach the caller with their own Code (not
	// GeneratorError) and are not retriable; callers can compare against
	// these directly.
	CodeTemplateNotFound  Code = "TemplateNotFound"
	CodeMalformedTemplate Code = "MalformedTemplate"
	CodeInvalidSlotCount  Code = "InvalidSlotCount"
)

// retriable marks the codes that the orchestrator may recover from locally by
// advancing to the router's next strategy (spec.md §7, "GeneratorError
// (retriable)").
var retriable = map[Code]bool{
	CodeGenerator: true,
	CodeUpload:    true,
}

// Error is the service's structured error type. It always carries a Code so
// transport and orchestrator code can branch on taxonomy rather than string
// matching, and an optional Details string surfaced in the error envelope.
type Error struct {
	Code    Code
	Message string
	Details string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Retriable reports whether the orchestrator should consult the router's
// fallback chain instead of treating this as terminal.
func (e *Error) Retriable() bool {
	return retriable[e.Code]
}

// New constructs an Error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs an Error that carries an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// As extracts an *Error from a generic error, synthesizing an InternalError
// wrapper when err isn't already one of ours — this is the path a recovered
// panic or an unexpected stdlib error takes on its way into an error
// envelope (spec.md §7, InternalError).
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return Wrap(CodeInternal, "unexpected error", err)
}
