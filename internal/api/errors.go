package api

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a non-2xx response from the service.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("response error %d", e.Code)
	}
	return fmt.Sprintf("response error %d: %s", e.Code, e.Message)
}

// DecodeError is a response payload that could not be parsed. Unlike a
// transport failure it is worth recording: the same payload fails again on
// the next sync.
type DecodeError struct {
	Entity string
	ID     int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s %d: %v", e.Entity, e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsTransport reports whether a request never produced a usable server
// response: no connectivity, timeouts and the like. Transport failures
// resolve themselves and are retried silently on the next sync; status and
// decode failures are not transport errors.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	var decodeErr *DecodeError
	return !errors.As(err, &statusErr) && !errors.As(err, &decodeErr)
}

// IsUnauthorized reports whether the error is a 401, meaning the API token
// was revoked or never valid. The caller must stop syncing until the user
// supplies a new token.
func IsUnauthorized(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusUnauthorized
}

// IsUnprocessable reports whether the error is a 422: the service understood
// the request and rejected it permanently, so retrying the same payload can
// never succeed.
func IsUnprocessable(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusUnprocessableEntity
}

// isRetryableError determines if an error should trigger a retry.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	// Anything without a status is a transport failure.
	return true
}
