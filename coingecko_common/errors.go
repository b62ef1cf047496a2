package coingecko_common

import (
	"errors"
	"fmt"
)

// Kind classifies an upstream failure
type Kind string

const (
	KindAPILocked Kind = "api_locked"
	KindRateLimit Kind = "rate_limit"
	KindHTTP      Kind = "http_error"
	KindNetwork   Kind = "network_error"
	KindTimeout   Kind = "timeout"
	KindParse     Kind = "parse_error"
)

// Sentinels for errors.Is. Any *APIError of the same kind matches.
var (
	ErrAPILocked = &APIError{Kind: KindAPILocked}
	ErrRateLimit = &APIError{Kind: KindRateLimit}
	ErrHTTP      = &APIError{Kind: KindHTTP}
	ErrNetwork   = &APIError{Kind: KindNetwork}
	ErrTimeout   = &APIError{Kind: KindTimeout}
	ErrParse     = &APIError{Kind: KindParse}
)

// APIError is returned by every upstream operation that fails
type APIError struct {
	Kind Kind
	// Status is the HTTP status for KindHTTP and KindRateLimit
	Status int
	// Body is the response body for KindHTTP and KindRateLimit
	Body    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches any *APIError with the same Kind
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of err, or "" when err is not an *APIError
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// Retryable reports whether the caller may try again later.
// Parse errors and 4xx responses other than 429 will not improve by retrying.
func Retryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case KindAPILocked, KindRateLimit, KindNetwork, KindTimeout:
		return true
	case KindHTTP:
		return apiErr.Status >= 500
	default:
		return false
	}
}

func newParseError(message string, err error) *APIError {
	return &APIError{Kind: KindParse, Message: message, Err: err}
}

// NewParseError reports a payload that does not have the expected shape
func NewParseError(message string, err error) error {
	return newParseError(message, err)
}
