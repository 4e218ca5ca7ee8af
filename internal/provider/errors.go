package provider

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Sentinel errors for common provider failures.
var (
	ErrContextLengthExceeded = errors.New("context length exceeded")
	ErrRateLimit             = errors.New("rate limit exceeded")
	ErrAuthentication        = errors.New("authentication failed")
	ErrNetwork               = errors.New("network error")
	ErrServiceUnavailable    = errors.New("service unavailable")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrMissingAPIKey         = errors.New("missing API key")
)

// ErrorCode represents a provider error code.
type ErrorCode string

const (
	ErrorCodeContextLength  ErrorCode = "context_length_exceeded"
	ErrorCodeRateLimit      ErrorCode = "rate_limit"
	ErrorCodeAuth           ErrorCode = "authentication_failed"
	ErrorCodePermission     ErrorCode = "permission_denied"
	ErrorCodeNetwork        ErrorCode = "network_error"
	ErrorCodeTimeout        ErrorCode = "timeout"
	ErrorCodeUnavailable    ErrorCode = "service_unavailable"
	ErrorCodeInvalidRequest ErrorCode = "invalid_request"
	ErrorCodeNotFound       ErrorCode = "not_found"
)

// ProviderError wraps errors with additional context.
type ProviderError struct {
	Code       ErrorCode
	Status     int
	Message    string
	Underlying error
	Retryable  bool
	RetryAfter *time.Duration
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// Is maps codes onto the package sentinels.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrRateLimit:
		return e.Code == ErrorCodeRateLimit
	case ErrAuthentication:
		return e.Code == ErrorCodeAuth || e.Code == ErrorCodePermission
	case ErrNetwork:
		return e.Code == ErrorCodeNetwork || e.Code == ErrorCodeTimeout
	case ErrServiceUnavailable:
		return e.Code == ErrorCodeUnavailable
	case ErrInvalidRequest:
		return e.Code == ErrorCodeInvalidRequest
	case ErrContextLengthExceeded:
		return e.Code == ErrorCodeContextLength
	}
	return false
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}
	return false
}

// GetRetryAfter returns the retry-after duration if present.
func GetRetryAfter(err error) *time.Duration {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.RetryAfter
	}
	return nil
}

// FromHTTPStatus maps a non-2xx response to a ProviderError. message is the
// (already redacted) error text from the body; header supplies Retry-After.
func FromHTTPStatus(status int, message string, header http.Header) *ProviderError {
	if message == "" {
		message = http.StatusText(status)
	}
	e := &ProviderError{Status: status, Message: message}
	switch {
	case status == http.StatusUnauthorized:
		e.Code = ErrorCodeAuth
	case status == http.StatusForbidden:
		e.Code = ErrorCodePermission
	case status == http.StatusTooManyRequests:
		e.Code = ErrorCodeRateLimit
		e.Retryable = true
		e.RetryAfter = parseRetryAfter(header)
	case status == http.StatusNotFound:
		e.Code = ErrorCodeNotFound
	case status == http.StatusRequestEntityTooLarge:
		e.Code = ErrorCodeContextLength
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		e.Code = ErrorCodeTimeout
		e.Retryable = true
	case status >= 500:
		e.Code = ErrorCodeUnavailable
		e.Retryable = true
		e.RetryAfter = parseRetryAfter(header)
	default:
		e.Code = ErrorCodeInvalidRequest
	}
	return e
}

// FromTransport wraps a failure to reach the provider at all.
func FromTransport(err error) *ProviderError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ProviderError{Code: ErrorCodeTimeout, Message: "request timed out", Underlying: err, Retryable: true}
	}
	return &ProviderError{Code: ErrorCodeNetwork, Message: "connection failed", Underlying: err, Retryable: true}
}

func parseRetryAfter(h http.Header) *time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		d := time.Duration(secs) * time.Second
		return &d
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return &d
	}
	return nil
}
