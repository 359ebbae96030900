// Package errs defines the error taxonomy shared by the chain execution
// layer. Every error carries a kind and a recoverable flag so the retry
// executor and the HTTP surface can decide how to react without string
// matching on our own errors.
package errs

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies an error for propagation decisions
type Kind string

// Error kinds
const (
	KindChainUnsupported  Kind = "chain_unsupported"
	KindConnectionFailed  Kind = "chain_connection_failed"
	KindRPC               Kind = "chain_rpc_error"
	KindCircuitOpen       Kind = "circuit_open"
	KindRateLimitExceeded Kind = "rate_limit_exceeded"
	KindRetryExhausted    Kind = "retry_exhausted"
	KindValidation        Kind = "validation_error"
)

// Error is the structured error type for this layer
type Error struct {
	Kind        Kind
	Recoverable bool

	// ChainID identifies the chain the operation targeted, when known
	ChainID string

	// Attempts is the number of tries performed before giving up
	Attempts int

	Message string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.ChainID != "" {
		fmt.Fprintf(&b, " (chain: %s)", e.ChainID)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ChainUnsupported indicates the requested chain id is not registered
func ChainUnsupported(chainID string) *Error {
	return &Error{
		Kind:    KindChainUnsupported,
		ChainID: chainID,
		Message: fmt.Sprintf("unsupported chain %q", chainID),
	}
}

// ConnectionFailed wraps a transport-level failure reaching an endpoint
func ConnectionFailed(chainID, endpoint string, cause error) *Error {
	return &Error{
		Kind:        KindConnectionFailed,
		Recoverable: true,
		ChainID:     chainID,
		Message:     fmt.Sprintf("connection to %s failed", endpoint),
		Cause:       cause,
	}
}

// RPC wraps an error returned by the remote RPC node itself
func RPC(chainID string, cause error) *Error {
	return &Error{
		Kind:        KindRPC,
		Recoverable: true,
		ChainID:     chainID,
		Message:     "rpc call failed",
		Cause:       cause,
	}
}

// CircuitOpen indicates a circuit breaker rejected the call without
// invoking it. Recoverable: the breaker may admit a trial call once its
// recovery timeout elapses.
func CircuitOpen(name string) *Error {
	return &Error{
		Kind:        KindCircuitOpen,
		Recoverable: true,
		Message:     fmt.Sprintf("circuit breaker %q is open", name),
	}
}

// RateLimitExceeded indicates a request was rejected by the fixed-window
// rate limiter. Never retried by this layer.
func RateLimitExceeded(key string, resetTime time.Time) *Error {
	return &Error{
		Kind:        KindRateLimitExceeded,
		Recoverable: true,
		Message:     fmt.Sprintf("rate limit exceeded for %q, window resets at %s", key, resetTime.Format(time.RFC3339)),
	}
}

// RetryExhausted is the terminal error after all retry attempts failed
func RetryExhausted(chainID string, attempts int, cause error) *Error {
	return &Error{
		Kind:     KindRetryExhausted,
		ChainID:  chainID,
		Attempts: attempts,
		Message:  fmt.Sprintf("operation failed after %d attempts", attempts),
		Cause:    cause,
	}
}

// Validation indicates bad input. Never retried.
func Validation(msg string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: msg,
	}
}

// IsKind reports whether err (or anything it wraps) is an *Error of the
// given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsRecoverable reports whether the error is marked recoverable. Errors
// outside our taxonomy fall back to transient network pattern matching.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}
	return IsTransient(err)
}

// transientPatterns are fragments that identify transient network
// failures in errors raised outside this package's taxonomy.
var transientPatterns = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"temporarily unavailable",
	"too many requests",
	"EOF",
	"503",
}

// IsTransient reports whether the error message matches a known
// transient-network pattern.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
