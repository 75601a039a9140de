package http

import (
	"errors"
	"fmt"
)

// StatusError is an error that knows which response status it maps to.
//
// Decode and the handlers return a *StatusError when the failure is the
// client's fault (400), a missing resource (404), an unsupported method (501)
// or a storage failure they have already classified (500). The connection
// driver converts it into a response with StatusOf.
type StatusError struct {
	// Status is the response status sent to the client.
	Status Status

	// Err is the underlying cause. May be nil.
	Err error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%d %s", int(e.Status), e.Status.Reason())
	}
	return fmt.Sprintf("%d %s: %v", int(e.Status), e.Status.Reason(), e.Err)
}

// Unwrap returns the underlying cause for errors.Is / errors.As.
func (e *StatusError) Unwrap() error {
	return e.Err
}

// NewStatusError builds a *StatusError with a formatted cause.
func NewStatusError(status Status, format string, args ...any) *StatusError {
	return &StatusError{
		Status: status,
		Err:    fmt.Errorf(format, args...),
	}
}

// WrapStatus attaches a status to an existing error.
func WrapStatus(status Status, err error) *StatusError {
	return &StatusError{Status: status, Err: err}
}

// StatusOf returns the status carried by err, or StatusInternalServerError
// when err is not (and does not wrap) a *StatusError.
func StatusOf(err error) Status {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return StatusInternalServerError
}
