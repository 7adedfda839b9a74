// Package resilience provides retry with backoff and an error taxonomy that
// separates transient faults (retryable) from absent or malformed data
// (cache-and-skip).
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// ErrNotFound marks a resource-absent outcome (404, empty archive, no 10-K in
// range). It is never retried; callers cache it as a negative result.
var ErrNotFound = errors.New("resource not found")

// TransientError wraps an error that is safe to retry (429, 5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether the error chain contains a TransientError or
// matches common transient network patterns.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"unexpected eof",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
