package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport matches every TransportError: network failures, timeouts, 5xx and 429
	ErrTransport = errors.New("transport error")

	// ErrUnauthorized indicates rejected credentials or token (401/403)
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBadRequest indicates a request the server refused to process (400/422)
	ErrBadRequest = errors.New("bad request")

	// ErrAlreadyExists indicates a 409 response (e.g. username taken)
	ErrAlreadyExists = errors.New("already exists")
)

// TransportError - сбой, после которого запрос имеет смысл повторить
type TransportError struct {
	Err        error
	Op         string
	StatusCode int
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTransport) true for any TransportError
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// HTTPError - окончательный отказ сервера (4xx)
type HTTPError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Is maps status codes onto the package sentinels
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	case ErrAlreadyExists:
		return e.StatusCode == http.StatusConflict
	}
	return false
}

// IsRetryable reports whether err is worth retrying with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransport)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}
