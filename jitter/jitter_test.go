package jitter

import (
	"math/rand"
	"testing"
	"time"
)

func fixed(t *testing.T, cfg Config) *Policy {
	t.Helper()
	return NewWithRand(cfg, rand.New(rand.NewSource(1)))
}

func TestBatchSizeWithinBounds(t *testing.T) {
	p := fixed(t, Config{MinBatch: 5, MaxBatch: 20})
	for i := 0; i < 200; i++ {
		n := p.BatchSize(1000)
		if n < 5 || n > 20 {
			t.Fatalf("batch size %d outside [5, 20]", n)
		}
	}
}

func TestBatchSizeClampedToRemaining(t *testing.T) {
	// WHAT: The last batch never exceeds what is left.
	p := fixed(t, Config{MinBatch: 5, MaxBatch: 20})
	for i := 0; i < 100; i++ {
		if n := p.BatchSize(3); n != 3 {
			t.Fatalf("remaining=3: got %d", n)
		}
	}
	if n := p.BatchSize(0); n != 0 {
		t.Errorf("remaining=0: got %d", n)
	}
}

func TestDelayWithinBounds(t *testing.T) {
	p := fixed(t, Config{MinDelay: time.Second, MaxDelay: 5 * time.Second})
	for i := 0; i < 200; i++ {
		d := p.Delay()
		if d < time.Second || d > 5*time.Second {
			t.Fatalf("delay %v outside [1s, 5s]", d)
		}
	}
}

func TestDegenerateRanges(t *testing.T) {
	p := fixed(t, Config{MinBatch: 7, MaxBatch: 7, MinDelay: 2 * time.Second, MaxDelay: 2 * time.Second})
	if n := p.BatchSize(100); n != 7 {
		t.Errorf("fixed batch: got %d", n)
	}
	if d := p.Delay(); d != 2*time.Second {
		t.Errorf("fixed delay: got %v", d)
	}
}

func TestShufflePermutes(t *testing.T) {
	p := fixed(t, Config{})
	xs := make([]int, 100)
	for i := range xs {
		xs[i] = i
	}
	p.Shuffle(len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] })

	seen := make(map[int]bool, len(xs))
	moved := 0
	for i, x := range xs {
		seen[x] = true
		if x != i {
			moved++
		}
	}
	if len(seen) != 100 {
		t.Fatalf("shuffle lost elements: %d distinct", len(seen))
	}
	if moved == 0 {
		t.Error("shuffle left every element in place")
	}
}
