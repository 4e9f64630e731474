package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(code, format string, args ...any) *Error {
	return New(http.StatusBadRequest, code, fmt.Errorf(format, args...))
}

func NotFound(code, format string, args ...any) *Error {
	return New(http.StatusNotFound, code, fmt.Errorf(format, args...))
}

// As extracts an *Error from err. Anything else maps to a 500.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae
	}
	return New(http.StatusInternalServerError, "internal_error", err)
}
