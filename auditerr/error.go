// Package auditerr defines the engine's error taxonomy.
package auditerr

import "fmt"

// Code enumerates the error taxonomy kinds from the engine's error design.
// These are kinds, not dynamic types: every engine-raised error carries one.
type Code string

const (
	CodeNavigation        Code = "navigation_error"
	CodeHTTPError         Code = "http_error"
	CodeRedirectSkip      Code = "redirect_skip"
	CodeBrowserCrash      Code = "browser_crash"
	CodeAnalyzerFailure   Code = "analyzer_failure"
	CodeResourceExhausted Code = "resource_exhausted"
	CodeCancellation      Code = "cancellation_error"
	CodeFatalEngine       Code = "fatal_engine_error"
)

// retriable maps each code to whether the Work Queue may re-enqueue a task
// that failed with it. RedirectSkip never reaches here as an error: it is a
// first-class result, not a failure.
var retriable = map[Code]bool{
	CodeNavigation:        true,
	CodeHTTPError:         false,
	CodeBrowserCrash:      true,
	CodeAnalyzerFailure:   false, // contained at the orchestrator, never reaches the queue
	CodeResourceExhausted: true,
	CodeCancellation:      false,
	CodeFatalEngine:       false,
}

// Error is the engine's single error shape. Code classifies the failure;
// Err, when present, wraps the underlying cause for errors.Is/As.
type Error struct {
	Code       Code
	Message    string
	Err        error
	httpStatus int // only meaningful for CodeHTTPError
}

func New(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retriable reports whether the Work Queue may retry a task that failed
// with this error, per the taxonomy in the error design. HTTP errors in
// the 408/429 range are the one exception: those are treated as transient
// and retriable even though other 4xx codes are terminal.
func (e *Error) Retriable() bool {
	if e.Code == CodeHTTPError && (e.httpStatus == 408 || e.httpStatus == 429) {
		return true
	}
	return retriable[e.Code]
}

// HTTPStatus returns the navigation response status for CodeHTTPError
// errors; zero for every other code.
func (e *Error) HTTPStatus() int {
	return e.httpStatus
}

// NewHTTPError builds a CodeHTTPError carrying the response status.
func NewHTTPError(status int, message string) *Error {
	return &Error{Code: CodeHTTPError, Message: message, httpStatus: status}
}
