// Package resilience wraps calls to the model proxy with a circuit breaker,
// a fixed-delay retry and a concurrency cap.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling fn while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

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

// Breaker guards the LiteLLM proxy. After maxFailures consecutive failures
// it rejects calls with ErrCircuitOpen until timeout has passed, then lets
// one trial call through: success closes it, failure reopens it.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	maxFailures int
	timeout     time.Duration
	openedAt    time.Time
	now         func() time.Time

	// ignore marks errors that reach the caller without counting as
	// failures, such as a stage context being canceled.
	ignore        func(error) bool
	onStateChange func(from, to State)
}

// Option configures a Breaker.
type Option func(*Breaker)

func WithIgnore(fn func(error) bool) Option {
	return func(b *Breaker) { b.ignore = fn }
}

// WithStateChange registers fn for every transition. fn runs with the
// breaker locked and must not call back into it.
func WithStateChange(fn func(from, to State)) Option {
	return func(b *Breaker) { b.onStateChange = fn }
}

func NewBreaker(maxFailures int, timeout time.Duration, opts ...Option) *Breaker {
	b := &Breaker{maxFailures: maxFailures, timeout: timeout, now: time.Now}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Execute runs fn unless the breaker is open and returns fn's error.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	admitted := b.promote() != StateOpen
	b.mu.Unlock()
	if !admitted {
		return ErrCircuitOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case err == nil:
		b.failures = 0
		b.setState(StateClosed)
	case b.ignore != nil && b.ignore(err):
	default:
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.maxFailures {
			b.openedAt = b.now()
			b.setState(StateOpen)
		}
	}
	return err
}

// State reports the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.promote()
}

// promote moves an expired open breaker to half-open. b.mu must be held.
func (b *Breaker) promote() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.timeout {
		b.setState(StateHalfOpen)
	}
	return b.state
}

// setState must be called with b.mu held.
func (b *Breaker) setState(to State) {
	from := b.state
	b.state = to
	if from != to && b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}
