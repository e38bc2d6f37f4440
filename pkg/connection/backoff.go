package connection

import (
	"math/rand"
	"sync"
	"time"
)

// Backoff defaults for the broker link.
const (
	// InitialBackoff is the initial reconnection delay.
	InitialBackoff = 1 * time.Second

	// MaxBackoff is the maximum reconnection delay.
	MaxBackoff = 30 * time.Second

	// BackoffMultiplier is the factor by which backoff increases.
	BackoffMultiplier = 2.0
)

// Backoff calculates exponential backoff delays with full jitter:
// each delay is drawn uniformly from (0, base], where base doubles per
// attempt up to the cap. Full jitter spreads reconnect storms from a
// fleet of gateways restarting at the same moment.
type Backoff struct {
	mu sync.Mutex

	// Current base delay (before jitter)
	current time.Duration

	// Configuration
	initial    time.Duration
	max        time.Duration
	multiplier float64

	// Attempt counter
	attempts int

	// Random source for jitter
	rng *rand.Rand
}

// NewBackoff creates a new backoff calculator with default settings.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{})
}

// BackoffConfig allows customizing backoff parameters.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// NewBackoffWithConfig creates a backoff calculator with custom settings.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = InitialBackoff
	}
	if cfg.Max <= 0 {
		cfg.Max = MaxBackoff
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = BackoffMultiplier
	}

	return &Backoff{
		current:    cfg.Initial,
		initial:    cfg.Initial,
		max:        cfg.Max,
		multiplier: cfg.Multiplier,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the next jittered delay and advances the backoff.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.fullJitter(b.current)

	// Advance to next base value
	b.attempts++
	next := time.Duration(float64(b.current) * b.multiplier)
	if next > b.max {
		next = b.max
	}
	b.current = next

	return delay
}

// Reset resets the backoff to initial values.
// Call this after a successful connection.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.initial
	b.attempts = 0
}

// Attempts returns the number of backoff attempts since last reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Current returns the current base delay (without jitter).
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// fullJitter draws a delay uniformly from (0, d].
func (b *Backoff) fullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(b.rng.Int63n(int64(d))) + 1
}

// BackoffSequence returns the sequence of base delay values
// (before jitter) up to the maximum.
func BackoffSequence() []time.Duration {
	return []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second, // max
	}
}
