package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// ErrorKind classifies a provider failure. The resilience executor keys
// its retry/fallback decisions off this taxonomy, never off raw errors.
type ErrorKind string

const (
	// Terminal: skip the provider immediately, no retry.
	ErrMissingCredentials    ErrorKind = "missing_credentials"
	ErrUnsupportedCapability ErrorKind = "unsupported_capability"
	ErrClientError           ErrorKind = "client_error"

	// Transient: retryable with bounded backoff.
	ErrRateLimited ErrorKind = "rate_limited"
	ErrServerError ErrorKind = "server_error"
	ErrNetwork     ErrorKind = "network_error"
	ErrTimeout     ErrorKind = "timeout"
)

// Error is a classified provider failure.
type Error struct {
	Provider string
	Kind     ErrorKind
	Status   int
	// RetryAfter is the server-provided wait for rate-limited responses,
	// zero when the server did not send one.
	RetryAfter time.Duration
	Message    string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

// Transient reports whether the failure is worth retrying against the
// same provider.
func (e *Error) Transient() bool {
	switch e.Kind {
	case ErrRateLimited, ErrServerError, ErrNetwork, ErrTimeout:
		return true
	}
	return false
}

// AsError unwraps err into a classified provider error.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// unsupported builds the terminal error for an operation the backend
// cannot perform.
func unsupported(provider, op string) *Error {
	return &Error{
		Provider: provider,
		Kind:     ErrUnsupportedCapability,
		Message:  op + " is not supported by this backend",
	}
}

// missingCredentials is returned before any network I/O when no API key
// is configured.
func missingCredentials(provider string) *Error {
	return &Error{
		Provider: provider,
		Kind:     ErrMissingCredentials,
		Message:  "no API key configured",
	}
}

// classifyStatus maps a non-2xx HTTP response to the taxonomy.
func classifyStatus(provider string, status int, body string, header http.Header) *Error {
	e := &Error{Provider: provider, Status: status, Message: truncate(body, 512)}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = ErrMissingCredentials
	case status == http.StatusTooManyRequests:
		e.Kind = ErrRateLimited
		e.RetryAfter = parseRetryAfter(header.Get("Retry-After"))
	case status >= 500:
		e.Kind = ErrServerError
	default:
		e.Kind = ErrClientError
	}
	return e
}

// classifyTransport maps a transport-level failure to the taxonomy.
func classifyTransport(provider string, err error) *Error {
	e := &Error{Provider: provider, Message: err.Error()}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		e.Kind = ErrTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		e.Kind = ErrTimeout
	default:
		e.Kind = ErrNetwork
	}
	return e
}

// parseRetryAfter handles the delay-seconds form of the header. The
// HTTP-date form is rare from model APIs and falls back to zero, which
// the executor replaces with its configured default wait.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
