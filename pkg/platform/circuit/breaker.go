// Package circuit provides a small circuit breaker for protecting fallback
// paths around flaky dependencies. Counting is consecutive: any success
// resets the failure count and any failure resets the success count.
package circuit

import "sync"

type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// StateChange reports a transition caused by the recording call, so callers
// can log or meter transitions without polling.
type StateChange struct {
	Opened bool
	Closed bool
}

// Breaker tracks consecutive failures and successes. When open, callers
// should use their fallback path; RecordSuccess while open counts toward
// closing again.
type Breaker struct {
	mu sync.Mutex

	name             string
	failureThreshold int
	successThreshold int

	failures  int
	successes int
	open      bool
}

type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive successes close it again.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: 5,
		successThreshold: 1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RecordFailure notes a failed call. It returns whether the caller should
// use its fallback path, plus any transition this call caused.
func (b *Breaker) RecordFailure() (useFallback bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		b.successes = 0
		return true, StateChange{}
	}

	b.failures++
	if b.failures >= b.failureThreshold {
		b.open = true
		b.failures = 0
		return true, StateChange{Opened: true}
	}
	return false, StateChange{}
}

// RecordSuccess notes a successful call. It returns whether the caller
// should use its primary path, plus any transition this call caused.
func (b *Breaker) RecordSuccess() (usePrimary bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		b.failures = 0
		return true, StateChange{}
	}

	b.successes++
	if b.successes >= b.successThreshold {
		b.open = false
		b.successes = 0
		return true, StateChange{Closed: true}
	}
	return false, StateChange{}
}

func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		return StateOpen
	}
	return StateClosed
}

func (b *Breaker) Name() string {
	return b.name
}

// Reset manually closes the circuit and clears all counts.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.failures = 0
	b.successes = 0
}
