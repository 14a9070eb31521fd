package core

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a failure that carries the HTTP status and machine-readable
// code it should be reported with.
type APIError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError builds an APIError without an underlying cause.
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{Code: code, Message: message, Status: status}
}

// WrapAPIError builds an APIError around err.
func WrapAPIError(status int, code, message string, err error) *APIError {
	return &APIError{Code: code, Message: message, Status: status, Err: err}
}

// AsAPIError reports whether err carries an APIError anywhere in its chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Problem converts the error to its RFC 7807 representation.
func (e *APIError) Problem() *Problem {
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return &Problem{
		Status: status,
		Title:  http.StatusText(status),
		Detail: e.Message,
		Extras: map[string]any{"code": e.Code},
	}
}
