// Package circuitbreaker provides a defensive mechanism that stops
// hammering a failing dependency until it has likely recovered.
package circuitbreaker

import (
	"context"
	"sync"
	"time"

	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/errs"
	"github.com/sirupsen/logrus"
)

// State represents the current state of the circuit breaker
type State int

// Circuit breaker states
const (
	StateClosed   State = iota // Normal operation, calls pass through
	StateOpen                  // Tripped, calls rejected immediately
	StateHalfOpen              // Testing recovery with a single trial call
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Default configuration values
const (
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 30 * time.Second
	DefaultTimeoutWindow    = 60 * time.Second
)

// Breaker guards one logical dependency, typically one chain. A bounded
// sliding window of failure timestamps drives the closed-to-open
// transition; entries older than the timeout window are purged lazily
// on each failure.
type Breaker struct {
	name string

	failureThreshold int
	recoveryTimeout  time.Duration
	timeoutWindow    time.Duration

	mu              sync.Mutex
	state           State
	failures        []time.Time
	lastFailure     time.Time
	halfOpenPending bool

	onStateChange func(name string, from, to State)
	logg          logrus.FieldLogger
}

// New creates a breaker with default thresholds
func New(name string) *Breaker {
	return &Breaker{
		name:             name,
		failureThreshold: DefaultFailureThreshold,
		recoveryTimeout:  DefaultRecoveryTimeout,
		timeoutWindow:    DefaultTimeoutWindow,
		state:            StateClosed,
		logg:             logrus.StandardLogger(),
	}
}

// WithFailureThreshold sets the number of failures within the timeout
// window that trips the circuit
func (b *Breaker) WithFailureThreshold(n int) *Breaker {
	if n > 0 {
		b.failureThreshold = n
	}
	return b
}

// WithRecoveryTimeout sets how long the circuit stays open before a
// half-open trial call is admitted
func (b *Breaker) WithRecoveryTimeout(d time.Duration) *Breaker {
	if d > 0 {
		b.recoveryTimeout = d
	}
	return b
}

// WithTimeoutWindow sets the sliding window within which failures are
// counted against the threshold
func (b *Breaker) WithTimeoutWindow(d time.Duration) *Breaker {
	if d > 0 {
		b.timeoutWindow = d
	}
	return b
}

// WithStateChangeCallback sets a hook invoked on every state transition
func (b *Breaker) WithStateChangeCallback(fn func(name string, from, to State)) *Breaker {
	b.onStateChange = fn
	return b
}

// WithLogger sets the logger used for state transitions
func (b *Breaker) WithLogger(logg logrus.FieldLogger) *Breaker {
	if logg != nil {
		b.logg = logg
	}
	return b
}

// Execute wraps a single operation. While the circuit is open the
// operation is rejected with a recoverable circuit-open error without
// being invoked; once the recovery timeout has elapsed since the last
// failure exactly one trial call is allowed through.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := fn(ctx)
	if err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

// allow decides whether a call may proceed, moving open to half-open
// when the recovery timeout has elapsed.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.lastFailure) < b.recoveryTimeout {
			return errs.CircuitOpen(b.name)
		}
		b.transition(StateHalfOpen)
		b.halfOpenPending = true
	case StateHalfOpen:
		if b.halfOpenPending {
			// The single trial call is already in flight
			return errs.CircuitOpen(b.name)
		}
		b.halfOpenPending = true
	}
	return nil
}

// recordSuccess closes the circuit after a successful half-open trial
// and clears the failure window.
func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.halfOpenPending = false
		b.failures = nil
		b.transition(StateClosed)
	}
}

// recordFailure appends to the failure window, purging entries older
// than the timeout window, and trips the circuit when the threshold is
// reached. Failures are counted even while the circuit is closed.
func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.lastFailure = now

	cutoff := now.Add(-b.timeoutWindow)
	kept := b.failures[:0]
	for _, ts := range b.failures {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.failures = append(kept, now)

	switch b.state {
	case StateHalfOpen:
		// The trial call failed, back to open
		b.halfOpenPending = false
		b.transition(StateOpen)
	case StateClosed:
		if len(b.failures) >= b.failureThreshold {
			b.transition(StateOpen)
		}
	}
}

// transition changes state and fires the callback. Caller holds the lock.
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to

	b.logg.WithFields(logrus.Fields{
		"breaker": b.name,
		"from":    from.String(),
		"to":      to.String(),
	}).Warn("Circuit breaker state changed")

	if b.onStateChange != nil {
		go b.onStateChange(b.name, from, to)
	}
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount returns the number of failures currently in the window
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.failures)
}

// Reset forces the breaker to closed with an empty failure window. Used
// for tests and administrative recovery.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = nil
	b.halfOpenPending = false
	b.lastFailure = time.Time{}
	b.transition(StateClosed)
}

// Stats is a point-in-time snapshot of a breaker
type Stats struct {
	Name         string    `json:"name"`
	State        string    `json:"state"`
	FailureCount int       `json:"failure_count"`
	LastFailure  time.Time `json:"last_failure,omitempty"`
}

// Snapshot returns the breaker's current stats
func (b *Breaker) Snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Name:         b.name,
		State:        b.state.String(),
		FailureCount: len(b.failures),
		LastFailure:  b.lastFailure,
	}
}
