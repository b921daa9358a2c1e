package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Transport errors

// ErrTransport wraps a network-level failure (DNS, dial, timeout).
// Transport failures are retryable.
type ErrTransport struct {
	Endpoint string
	Err      error
}

func (e *ErrTransport) Error() string {
	return fmt.Sprintf("transport failure for %s: %v", e.Endpoint, e.Err)
}

func (e *ErrTransport) Unwrap() error {
	return e.Err
}

// HTTP errors

// ErrHTTPStatus reports a non-2xx provider response. The raw body is kept
// for diagnostics.
type ErrHTTPStatus struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *ErrHTTPStatus) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Endpoint, e.Code)
}

// Retryable reports whether the status is safe to retry.
// Only 429 and the transient 5xx family qualify.
func (e *ErrHTTPStatus) Retryable() bool {
	switch e.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Auth errors

// ErrAuth reports a missing or expired credential. Terminal; the caller
// must re-authorize.
type ErrAuth struct {
	Provider string
	Reason   string
}

func (e *ErrAuth) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: no usable credential: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("%s: no usable credential", e.Provider)
}

// ErrInvalidState reports an OAuth state nonce mismatch. Terminal and
// security-relevant: it is audited, and the token endpoint is never called.
type ErrInvalidState struct {
	Provider string
}

func (e *ErrInvalidState) Error() string {
	return fmt.Sprintf("%s: oauth state mismatch", e.Provider)
}

// ErrTokenExchange reports a failed authorization-code exchange.
type ErrTokenExchange struct {
	Provider string
	Body     string
	Err      error
}

func (e *ErrTokenExchange) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: token exchange failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: token exchange failed: %s", e.Provider, e.Body)
}

func (e *ErrTokenExchange) Unwrap() error {
	return e.Err
}

// Mapping errors

// ErrRefresh reports a failed identifier-mapping refresh. Non-fatal: the
// previous snapshot stays authoritative.
type ErrRefresh struct {
	Err error
}

func (e *ErrRefresh) Error() string {
	return fmt.Sprintf("mapping refresh failed: %v", e.Err)
}

func (e *ErrRefresh) Unwrap() error {
	return e.Err
}

// ErrNotFound reports a ticker absent from the identifier mapping.
type ErrNotFound struct {
	Ticker string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("ticker not found: %s", e.Ticker)
}

// IsRetryable reports whether err may be retried by the request executor.
func IsRetryable(err error) bool {
	var transport *ErrTransport
	if errors.As(err, &transport) {
		return true
	}
	var status *ErrHTTPStatus
	if errors.As(err, &status) {
		return status.Retryable()
	}
	return false
}
