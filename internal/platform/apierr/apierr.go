package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks input rejected before any dispatch happens.
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	// ErrConflict marks a state transition that is not allowed from the current state.
	ErrConflict = errors.New("conflict")
	// ErrTransientInfra marks queue, channel, or side-store unavailability.
	ErrTransientInfra = errors.New("transient infrastructure error")
	// ErrMaterialization marks a solution that could not be written back.
	ErrMaterialization = errors.New("materialization error")
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

// Wrap annotates err with one of the sentinel kinds so callers can match with errors.Is.
func Wrap(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// FromError maps a service error onto an HTTP status and code.
func FromError(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, ErrValidation):
		return New(http.StatusBadRequest, "validation_error", err)
	case errors.Is(err, ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrConflict):
		return New(http.StatusConflict, "conflict", err)
	case errors.Is(err, ErrTransientInfra):
		return New(http.StatusServiceUnavailable, "infrastructure_unavailable", err)
	case errors.Is(err, ErrMaterialization):
		return New(http.StatusUnprocessableEntity, "materialization_failed", err)
	default:
		return New(http.StatusInternalServerError, "internal_error", err)
	}
}
