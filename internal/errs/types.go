// Package errs defines the error shape returned to API clients.
//
// Every failed request renders as one HTTPError, optionally carrying
// per-field issues, so clients can handle failures uniformly.
package errs

import "strings"

// FieldError is one rejected input field.
//
//	{ "field": "price", "error": "must not be negative" }
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ActionType is what a client is asked to do after an error.
type ActionType string

const (
	ActionTypeRedirect ActionType = "redirect"
	ActionTypeRetry    ActionType = "retry"
)

// Action is an optional follow-up hint attached to an HTTPError.
type Action struct {
	Type    ActionType `json:"type"`
	Message string     `json:"message"`
	Value   string     `json:"value"`
}

// HTTPError is the JSON error body and the error value handlers return.
//
//   - Code: machine-friendly code ("PRODUCT_NOT_FOUND", "BAD_REQUEST").
//   - Override: the Message is meant for the client verbatim.
//   - Errors: field-level issues for validation failures.
type HTTPError struct {
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Status   int          `json:"status"`
	Override bool         `json:"override"`
	Errors   []FieldError `json:"errors"`
	Action   *Action      `json:"action"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Is matches any *HTTPError, regardless of code or status.
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}

// WithMessage returns a copy of e carrying message.
func (e *HTTPError) WithMessage(message string) *HTTPError {
	clone := *e
	clone.Message = message
	return &clone
}

// MakeUpperCaseWithUnderscores turns "Bad Request" into "BAD_REQUEST".
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
