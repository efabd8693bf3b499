// Package pacing provides the delay policy used between automation steps.
//
// Randomized delays are an anti-correlation measure: mechanical, perfectly
// timed interaction across sessions is a strong automation signal. The
// policy is an explicit value injected into the poster and orchestrator so
// tests can run with zero delay deterministically.
package pacing

import (
	"context"
	"math/rand"
	"time"
)

// Policy decides how long to pause between steps.
type Policy interface {
	// Sleep blocks for a policy-chosen duration between min and max, or
	// until ctx is done.
	Sleep(ctx context.Context, min, max time.Duration)
}

// Random sleeps a uniformly random duration within the requested range.
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a randomized policy seeded from the current time.
func NewRandom() *Random {
	return &Random{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Sleep implements Policy.
func (r *Random) Sleep(ctx context.Context, min, max time.Duration) {
	d := min
	if max > min {
		d += time.Duration(r.rng.Int63n(int64(max - min)))
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// None never sleeps. Intended for tests.
type None struct{}

// Sleep implements Policy.
func (None) Sleep(context.Context, time.Duration, time.Duration) {}
