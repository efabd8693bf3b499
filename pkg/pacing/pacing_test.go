package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRandomSleep(t *testing.T) {
	t.Run("stays within bounds", func(t *testing.T) {
		p := NewRandom()
		start := time.Now()
		p.Sleep(context.Background(), 5*time.Millisecond, 20*time.Millisecond)
		elapsed := time.Since(start)
		assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond)
	})

	t.Run("returns early on cancellation", func(t *testing.T) {
		p := NewRandom()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		p.Sleep(ctx, time.Minute, 2*time.Minute)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestNoneSleep(t *testing.T) {
	start := time.Now()
	None{}.Sleep(context.Background(), time.Hour, 2*time.Hour)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
