package errs

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageComposition(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := ConnectionFailed("ethereum", "https://rpc.example", cause)

	msg := err.Error()
	assert.Contains(t, msg, "https://rpc.example", "Message should name the endpoint")
	assert.Contains(t, msg, "chain: ethereum", "Message should name the chain")
	assert.Contains(t, msg, "connection refused", "Message should carry the cause")
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("execution reverted")
	err := RetryExhausted("polygon", 4, RPC("polygon", cause))

	assert.ErrorIs(t, err, cause, "errors.Is should see through both wrappers")
	assert.True(t, IsKind(err, KindRetryExhausted), "Outer kind wins for IsKind")
	assert.Equal(t, 4, err.Attempts)
}

func TestIsKindThroughWrapping(t *testing.T) {
	inner := Validation("missing method")
	wrapped := fmt.Errorf("handling request: %w", inner)

	assert.True(t, IsKind(wrapped, KindValidation), "IsKind should unwrap plain fmt wrapping")
	assert.False(t, IsKind(wrapped, KindRPC), "Kind must match exactly")
	assert.False(t, IsKind(nil, KindValidation))
}

func TestRecoverableFlags(t *testing.T) {
	assert.True(t, IsRecoverable(ConnectionFailed("c", "e", nil)))
	assert.True(t, IsRecoverable(RPC("c", nil)))
	assert.True(t, IsRecoverable(CircuitOpen("c")))
	assert.True(t, IsRecoverable(RateLimitExceeded("k", time.Now())))
	assert.False(t, IsRecoverable(ChainUnsupported("c")), "Unknown chains never recover by retrying")
	assert.False(t, IsRecoverable(Validation("v")), "Bad input never recovers by retrying")
	assert.False(t, IsRecoverable(RetryExhausted("c", 3, nil)), "Exhaustion is terminal")
}

func TestIsTransientPatterns(t *testing.T) {
	transient := []string{
		"i/o timeout",
		"request timed out",
		"context deadline exceeded",
		"read: connection reset by peer",
		"dial: connection refused",
		"resource temporarily unavailable",
		"429 too many requests",
		"unexpected EOF",
		"503 service unavailable",
	}
	for _, msg := range transient {
		assert.True(t, IsTransient(errors.New(msg)), "expected transient: %s", msg)
	}

	assert.False(t, IsTransient(errors.New("invalid opcode")), "Node-side faults are not transient")
	assert.False(t, IsTransient(nil), "nil is not transient")
}

func TestIsRecoverableFallsBackToPatterns(t *testing.T) {
	assert.True(t, IsRecoverable(errors.New("tls handshake timeout")),
		"Errors outside the taxonomy fall back to pattern matching")
	assert.False(t, IsRecoverable(errors.New("method not found")))
}
