// Package concurrency provides the backoff iterator and concurrency-limit
// gate used to pace and bound concurrent work across the IDE runtime.
package concurrency

import (
	"math"
	"math/rand"
	"sync"
)

// ExponentialBackoff yields a non-decreasing (ignoring jitter), capped
// delay sequence: each call to Next returns min(current, max), optionally
// scaled by a uniform [0.5, 1.0) jitter factor, then advances
// current = min(current*multiplier, max).
type ExponentialBackoff struct {
	mu         sync.Mutex
	initialS   float64
	maxS       float64
	multiplier float64
	jitter     bool
	current    float64
	rng        *rand.Rand
}

// NewExponentialBackoff constructs a backoff iterator. Panics if
// initialS <= 0, maxS < initialS, or multiplier < 1.0 — these are
// programmer errors, not runtime conditions.
func NewExponentialBackoff(initialS, maxS, multiplier float64, jitter bool) *ExponentialBackoff {
	if initialS <= 0 {
		panic("concurrency: initialS must be > 0")
	}
	if maxS < initialS {
		panic("concurrency: maxS must be >= initialS")
	}
	if multiplier < 1.0 {
		panic("concurrency: multiplier must be >= 1.0")
	}
	return &ExponentialBackoff{
		initialS:   initialS,
		maxS:       maxS,
		multiplier: multiplier,
		jitter:     jitter,
		current:    initialS,
		rng:        rand.New(rand.NewSource(1)),
	}
}

// Next returns the next delay in seconds and advances the sequence.
func (b *ExponentialBackoff) Next() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := math.Min(b.current, b.maxS)
	if b.jitter {
		delay *= 0.5 + b.rng.Float64()*0.5
	}
	b.current = math.Min(b.current*b.multiplier, b.maxS)
	return round4(delay)
}

// Reset restarts the sequence at InitialS.
func (b *ExponentialBackoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.initialS
}

// InitialS returns the configured initial delay.
func (b *ExponentialBackoff) InitialS() float64 { return b.initialS }

// MaxS returns the configured maximum delay.
func (b *ExponentialBackoff) MaxS() float64 { return b.maxS }

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
