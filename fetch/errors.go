package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the target rate-limited the request (HTTP 429).
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// ErrServer indicates a 5xx response from the target.
type ErrServer struct {
	Status int
	Err    error
}

func (e ErrServer) Error() string {
	return fmt.Errorf("server_error %d: %w", e.Status, e.Err).Error()
}

func (e ErrServer) Unwrap() error {
	return e.Err
}

// ErrClient indicates a non-retryable 4xx response.
type ErrClient struct {
	Status int
	Err    error
}

func (e ErrClient) Error() string {
	return fmt.Errorf("client_error %d: %w", e.Status, e.Err).Error()
}

func (e ErrClient) Unwrap() error {
	return e.Err
}

// FetchError is the typed failure a Fetch returns after its retry budget
// is spent (or immediately, for non-retryable failures). It carries the
// last observed status and underlying error so callers can report page
// failures without re-deriving context.
type FetchError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d after %d attempt(s): %v", e.URL, e.StatusCode, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v after %d attempt(s)", e.URL, e.Err, e.Attempts)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// retryable reports whether a classified error is worth another attempt.
func retryable(err error) bool {
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return true
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return true
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return true
	}
	var server ErrServer
	return errors.As(err, &server)
}

// classifyStatus maps a non-2xx response to a typed error.
func classifyStatus(status int) error {
	base := fmt.Errorf("http status %d", status)
	switch {
	case status == http.StatusTooManyRequests:
		return ErrRateLimited{Err: base}
	case status >= 500:
		return ErrServer{Status: status, Err: base}
	case status >= 400:
		return ErrClient{Status: status, Err: base}
	default:
		return nil
	}
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var server ErrServer
	if errors.As(err, &server) {
		return "server_error"
	}
	var client ErrClient
	if errors.As(err, &client) {
		return "client_error"
	}
	return "other"
}
