package circuit_breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

type Status uint8

const (
	Closed   Status = 1
	Open     Status = 2
	HalfOpen Status = 3
)

func (s Status) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	}
	return "unknown"
}

var (
	ErrOpenCB = errors.New("circuit breaker is open")
)

type CircuitBreaker interface {
	// Call runs fn unless the breaker is open. A cancelled ctx is returned
	// as is and never counts as a failure.
	Call(ctx context.Context, fn func(ctx context.Context) error) error
	State() Status
	Reset()
}

type Option func(cb *circuitBreaker)

// WithOnStateChange registers a hook run after every transition, outside the
// breaker lock.
func WithOnStateChange(fn func(from, to Status)) Option {
	return func(cb *circuitBreaker) {
		cb.onStateChange = fn
	}
}

func WithClock(now func() time.Time) Option {
	return func(cb *circuitBreaker) {
		cb.now = now
	}
}

type circuitBreaker struct {
	mu    sync.Mutex
	state Status
	// ring of the most recent results, true = failed
	window []bool
	pos    int
	// failure ratio over window that opens the breaker
	threshold float64
	// how long the breaker stays open before letting a trial call through
	cooldown time.Duration
	openedAt time.Time
	// successes required in half-open before closing
	recoveryRequests int
	successes        int

	now           func() time.Time
	onStateChange func(from, to Status)
}

func New(windowSize int, cooldown time.Duration, threshold float64, recoveryRequests int, opts ...Option) CircuitBreaker {
	cb := &circuitBreaker{
		state:            Closed,
		window:           make([]bool, windowSize),
		threshold:        threshold,
		cooldown:         cooldown,
		recoveryRequests: recoveryRequests,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

func (cb *circuitBreaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err != nil && ctx.Err() == nil)
	return err
}

func (cb *circuitBreaker) admit() error {
	cb.mu.Lock()
	if cb.state == Open && cb.now().Sub(cb.openedAt) <= cb.cooldown {
		cb.mu.Unlock()
		return ErrOpenCB
	}
	notify := noop
	if cb.state == Open {
		notify = cb.transition(HalfOpen)
	}
	cb.mu.Unlock()
	notify()
	return nil
}

func (cb *circuitBreaker) record(failed bool) {
	notify := noop
	cb.mu.Lock()
	cb.window[cb.pos] = failed
	cb.pos = (cb.pos + 1) % len(cb.window)

	switch cb.state {
	case HalfOpen:
		if failed {
			notify = cb.transition(Open)
			break
		}
		if cb.successes++; cb.successes >= cb.recoveryRequests {
			notify = cb.transition(Closed)
		}
	case Closed:
		if cb.failureRatio() >= cb.threshold {
			notify = cb.transition(Open)
		}
	}
	cb.mu.Unlock()
	notify()
}

func (cb *circuitBreaker) failureRatio() float64 {
	fails := 0
	for _, failed := range cb.window {
		if failed {
			fails++
		}
	}
	return float64(fails) / float64(len(cb.window))
}

// transition must run under mu. The returned func fires the hook and is
// called once mu is released.
func (cb *circuitBreaker) transition(to Status) func() {
	from := cb.state
	cb.state = to
	cb.successes = 0
	switch to {
	case Open:
		cb.openedAt = cb.now()
	case Closed:
		clear(cb.window)
		cb.pos = 0
	}
	if from == to || cb.onStateChange == nil {
		return noop
	}
	hook := cb.onStateChange
	return func() { hook(from, to) }
}

func (cb *circuitBreaker) State() Status {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	notify := cb.transition(Closed)
	cb.mu.Unlock()
	notify()
}

func noop() {}
