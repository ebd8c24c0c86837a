package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RandomDelayer produces the randomized inter-request pause each worker takes
// before its own fetch. The delay is enforced per worker, not per run: there
// is no shared clock, each caller just sleeps its own random interval.
type RandomDelayer struct {
	min time.Duration
	max time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDelayer creates a delayer picking uniformly from [min, max].
// Swapped bounds are corrected rather than rejected.
func NewRandomDelayer(min, max time.Duration) *RandomDelayer {
	if max < min {
		min, max = max, min
	}
	return &RandomDelayer{
		min: min,
		max: max,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns a fresh random delay in the configured range.
func (d *RandomDelayer) Next() time.Duration {
	if d.max == d.min {
		return d.min
	}
	d.mu.Lock()
	n := d.rng.Int63n(int64(d.max - d.min))
	d.mu.Unlock()
	return d.min + time.Duration(n)
}

// Wait sleeps for a random delay, returning early with the context's error
// if the run is cancelled mid-pause.
func (d *RandomDelayer) Wait(ctx context.Context) error {
	delay := d.Next()
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
