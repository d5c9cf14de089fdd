// Package jitter draws randomized batch sizes and inter-batch delays.
//
// Fixed, predictable request cadence is what origin-side throttling keys on;
// the fetch engine therefore varies both how many records it dispatches per
// batch and how long it pauses between batches, uniformly within configured
// ranges. The random source is injectable so tests stay deterministic.
package jitter

import (
	"math/rand"
	"sync"
	"time"
)

// Config bounds the randomized pacing.
type Config struct {
	// MinBatch and MaxBatch bound the per-batch dispatch size. Defaults: 5, 20.
	MinBatch int
	MaxBatch int
	// MinDelay and MaxDelay bound the pause between batches. Defaults: 1s, 5s.
	MinDelay time.Duration
	MaxDelay time.Duration
}

func (c *Config) defaults() {
	if c.MinBatch <= 0 {
		c.MinBatch = 5
	}
	if c.MaxBatch < c.MinBatch {
		c.MaxBatch = 20
		if c.MaxBatch < c.MinBatch {
			c.MaxBatch = c.MinBatch
		}
	}
	if c.MinDelay <= 0 {
		c.MinDelay = time.Second
	}
	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = 5 * time.Second
		if c.MaxDelay < c.MinDelay {
			c.MaxDelay = c.MinDelay
		}
	}
}

// Policy produces jittered batch sizes and delays. Safe for concurrent use.
type Policy struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Policy seeded from the wall clock.
func New(cfg Config) *Policy {
	return NewWithRand(cfg, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand creates a Policy with an injected random source.
func NewWithRand(cfg Config, rng *rand.Rand) *Policy {
	cfg.defaults()
	return &Policy{cfg: cfg, rng: rng}
}

// BatchSize draws the next batch size, clamped to the remaining work.
func (p *Policy) BatchSize(remaining int) int {
	if remaining <= 0 {
		return 0
	}
	lo := min(p.cfg.MinBatch, remaining)
	hi := min(p.cfg.MaxBatch, remaining)
	if hi <= lo {
		return lo
	}
	p.mu.Lock()
	n := lo + p.rng.Intn(hi-lo+1)
	p.mu.Unlock()
	return n
}

// Delay draws the next inter-batch pause.
func (p *Policy) Delay() time.Duration {
	span := p.cfg.MaxDelay - p.cfg.MinDelay
	if span <= 0 {
		return p.cfg.MinDelay
	}
	p.mu.Lock()
	d := p.cfg.MinDelay + time.Duration(p.rng.Int63n(int64(span)+1))
	p.mu.Unlock()
	return d
}

// Shuffle permutes n elements via swap, randomizing dispatch order across
// the whole run (equivalent to the random per-batch sampling it replaces).
func (p *Policy) Shuffle(n int, swap func(i, j int)) {
	p.mu.Lock()
	p.rng.Shuffle(n, swap)
	p.mu.Unlock()
}
