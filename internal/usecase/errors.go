package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorBusy         ErrorCode = "BUSY"
	ErrorAuth         ErrorCode = "AUTH_ERROR"
	ErrorRateLimited  ErrorCode = "RATE_LIMITED"
	ErrorNetwork      ErrorCode = "NETWORK_ERROR"
	ErrorMalformed    ErrorCode = "MALFORMED_RESPONSE"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// CodeOf returns the ErrorCode carried by err, or ErrorInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	var ucErr *Error
	if errors.As(err, &ucErr) {
		return ucErr.Code
	}
	return ErrorInternal
}

// StatusCode maps an error returned by the chat service to an HTTP status.
func StatusCode(err error) int {
	switch CodeOf(err) {
	case ErrorInvalidInput:
		return http.StatusBadRequest
	case ErrorBusy:
		return http.StatusConflict
	case ErrorRateLimited:
		return http.StatusTooManyRequests
	case ErrorAuth, ErrorNetwork, ErrorMalformed, ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
