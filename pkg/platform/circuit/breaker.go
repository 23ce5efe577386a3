// Package circuit provides a consecutive-failure circuit breaker.
package circuit

import (
	"sync"
	"time"
)

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Breaker opens after a run of consecutive failures and stays open for a
// cooldown. After the cooldown it lets calls through half-open: the next
// success closes it, the next failure reopens it.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	openUntil time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets the consecutive failures needed to open.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.threshold = n
		}
	}
}

// WithCooldown sets how long the breaker stays open.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a closed breaker. Defaults: 5 failures, 30s cooldown.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:      name,
		threshold: 5,
		cooldown:  30 * time.Second,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, accounting for an elapsed cooldown.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.state
}

// IsOpen reports whether calls are currently being rejected.
func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() bool {
	return !b.IsOpen()
}

// RecordSuccess resets the failure count. It reports whether this closed an
// open or half-open breaker.
func (b *Breaker) RecordSuccess() (closed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	closed = b.state != StateClosed
	b.state = StateClosed
	b.failures = 0
	return closed
}

// RecordFailure counts a failure. It reports whether this opened the breaker.
func (b *Breaker) RecordFailure() (opened bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	b.failures++
	switch b.state {
	case StateOpen:
		return false
	case StateHalfOpen:
		b.open()
		return true
	default:
		if b.failures >= b.threshold {
			b.open()
			return true
		}
		return false
	}
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
}

// advance moves an open breaker to half-open once the cooldown has elapsed.
// Callers hold mu.
func (b *Breaker) advance() {
	if b.state == StateOpen && !b.now().Before(b.openUntil) {
		b.state = StateHalfOpen
	}
}

func (b *Breaker) open() {
	b.state = StateOpen
	b.openUntil = b.now().Add(b.cooldown)
}
