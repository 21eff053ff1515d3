package provider

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   ErrorKind
	}{
		{http.StatusUnauthorized, ErrMissingCredentials},
		{http.StatusForbidden, ErrMissingCredentials},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusInternalServerError, ErrServerError},
		{http.StatusBadGateway, ErrServerError},
		{http.StatusServiceUnavailable, ErrServerError},
		{http.StatusBadRequest, ErrClientError},
		{http.StatusNotFound, ErrClientError},
	}

	for _, tt := range tests {
		e := classifyStatus("openai", tt.status, "body", http.Header{})
		if e.Kind != tt.kind {
			t.Errorf("status %d: kind = %s, want %s", tt.status, e.Kind, tt.kind)
		}
		if e.Status != tt.status {
			t.Errorf("status %d not carried", tt.status)
		}
	}
}

func TestClassifyStatusRetryAfter(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "12")

	e := classifyStatus("openai", http.StatusTooManyRequests, "", h)
	if e.RetryAfter != 12*time.Second {
		t.Errorf("RetryAfter = %v, want 12s", e.RetryAfter)
	}

	e = classifyStatus("openai", http.StatusTooManyRequests, "", http.Header{})
	if e.RetryAfter != 0 {
		t.Errorf("RetryAfter = %v, want 0 without header", e.RetryAfter)
	}
}

func TestClassifyTransport(t *testing.T) {
	e := classifyTransport("ollama", context.DeadlineExceeded)
	if e.Kind != ErrTimeout {
		t.Errorf("deadline: kind = %s, want %s", e.Kind, ErrTimeout)
	}

	e = classifyTransport("ollama", errConnRefused{})
	if e.Kind != ErrNetwork {
		t.Errorf("refused: kind = %s, want %s", e.Kind, ErrNetwork)
	}
}

type errConnRefused struct{}

func (errConnRefused) Error() string { return "connection refused" }

func TestTransient(t *testing.T) {
	transient := []ErrorKind{ErrRateLimited, ErrServerError, ErrNetwork, ErrTimeout}
	terminal := []ErrorKind{ErrMissingCredentials, ErrUnsupportedCapability, ErrClientError}

	for _, kind := range transient {
		if !(&Error{Kind: kind}).Transient() {
			t.Errorf("%s should be transient", kind)
		}
	}
	for _, kind := range terminal {
		if (&Error{Kind: kind}).Transient() {
			t.Errorf("%s should be terminal", kind)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("30"); got != 30*time.Second {
		t.Errorf("got %v", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Errorf("got %v", got)
	}
	if got := parseRetryAfter("Wed, 21 Oct 2026 07:28:00 GMT"); got != 0 {
		t.Errorf("http-date form should fall back to zero, got %v", got)
	}
}
