package solana

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when an RPC method answers with a null result.
var ErrNotFound = errors.New("not found")

// TransportError is a connection or HTTP-level failure.
type TransportError struct {
	Method     string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http status %d: %v", e.Method, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: http request: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RPCError is a well-formed JSON-RPC 2.0 error envelope.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// RateLimitError is an HTTP 429 answer. RetryAfterDelay is zero when the
// server did not send a usable retry-after header.
type RateLimitError struct {
	Method          string
	RetryAfterDelay time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfterDelay > 0 {
		return fmt.Sprintf("%s: rate limited (429), retry after %v", e.Method, e.RetryAfterDelay)
	}
	return fmt.Sprintf("%s: rate limited (429)", e.Method)
}

// RetryAfter reports the server-requested delay.
func (e *RateLimitError) RetryAfter() time.Duration { return e.RetryAfterDelay }

// ParseError means the response does not match the expected schema.
type ParseError struct {
	Method string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Method, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
