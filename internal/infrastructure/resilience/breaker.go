package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// Probes is the number of trial requests allowed while half-open
	Probes uint32
	// Window is how long failures accumulate while closed before counts reset
	Window time.Duration
	// Cooldown is how long the breaker stays open before probing
	Cooldown time.Duration
	// Threshold trips the breaker after this many consecutive failures
	Threshold uint32
	// Counts decides whether err is a breaker failure. Defaults to err != nil.
	Counts func(err error) bool
	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from, to State)
}

// Stats holds the statistics for the current window
type Stats struct {
	Requests             uint32
	Successes            uint32
	Failures             uint32
	ConsecutiveFailures  uint32
	ConsecutiveSuccesses uint32
}

// Breaker guards calls to an unreliable dependency
type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu       sync.Mutex
	state    State
	stats    Stats
	deadline time.Time
	epoch    uint64
}

// New creates a circuit breaker with defaults applied
func New(name string, settings Settings) *Breaker {
	if settings.Probes == 0 {
		settings.Probes = 1
	}
	if settings.Window == 0 {
		settings.Window = time.Minute
	}
	if settings.Cooldown == 0 {
		settings.Cooldown = 30 * time.Second
	}
	if settings.Threshold == 0 {
		settings.Threshold = 5
	}
	if settings.Counts == nil {
		settings.Counts = func(err error) bool { return err != nil }
	}

	b := &Breaker{
		name:     name,
		settings: settings,
		now:      time.Now,
	}
	b.deadline = b.now().Add(settings.Window)
	return b
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, advancing open to half-open once the
// cooldown has passed
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(b.now())
	return b.state
}

// Stats returns a copy of the current window statistics
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.stats
}

// Execute runs fn if the breaker admits it. A canceled context is returned
// as-is and never counted against the dependency.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	epoch, err := b.admit()
	if err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			b.record(epoch, true)
			panic(e)
		}
	}()

	err = fn(ctx)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		b.release(epoch)
		return err
	}
	b.record(epoch, b.settings.Counts(err))
	return err
}

// Do runs fn through the breaker and returns its value
func Do[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := b.Execute(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	})
	return out, err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(b.now())

	switch b.state {
	case StateOpen:
		return b.epoch, ErrCircuitOpen
	case StateHalfOpen:
		if b.stats.Requests >= b.settings.Probes {
			return b.epoch, ErrTooManyRequests
		}
	}

	b.stats.Requests++
	return b.epoch, nil
}

// release returns an admitted slot without recording an outcome
func (b *Breaker) release(epoch uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if epoch == b.epoch && b.stats.Requests > 0 {
		b.stats.Requests--
	}
}

func (b *Breaker) record(epoch uint64, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.advance(now)
	// Outcomes from a previous state are stale
	if epoch != b.epoch {
		return
	}

	if failed {
		b.stats.Failures++
		b.stats.ConsecutiveFailures++
		b.stats.ConsecutiveSuccesses = 0
		switch b.state {
		case StateClosed:
			if b.stats.ConsecutiveFailures >= b.settings.Threshold {
				b.transition(StateOpen, now)
			}
		case StateHalfOpen:
			b.transition(StateOpen, now)
		}
		return
	}

	b.stats.Successes++
	b.stats.ConsecutiveSuccesses++
	b.stats.ConsecutiveFailures = 0
	if b.state == StateHalfOpen && b.stats.ConsecutiveSuccesses >= b.settings.Probes {
		b.transition(StateClosed, now)
	}
}

func (b *Breaker) advance(now time.Time) {
	switch b.state {
	case StateClosed:
		if now.After(b.deadline) {
			b.stats = Stats{}
			b.deadline = now.Add(b.settings.Window)
			b.epoch++
		}
	case StateOpen:
		if now.After(b.deadline) {
			b.transition(StateHalfOpen, now)
		}
	}
}

func (b *Breaker) transition(to State, now time.Time) {
	if b.state == to {
		return
	}

	from := b.state
	b.state = to
	b.stats = Stats{}
	b.epoch++

	switch to {
	case StateClosed:
		b.deadline = now.Add(b.settings.Window)
	case StateOpen:
		b.deadline = now.Add(b.settings.Cooldown)
	case StateHalfOpen:
		b.deadline = time.Time{}
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}
