package utils

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(10)
	assert.Zero(t, tracker.Percentile(95), "empty tracker")

	for _, ms := range []int{50, 10, 40, 20, 30} {
		tracker.Observe(time.Duration(ms) * time.Millisecond)
	}

	assert.Equal(t, 5, tracker.Count())
	assert.Equal(t, 10*time.Millisecond, tracker.Percentile(0))
	assert.Equal(t, 30*time.Millisecond, tracker.Percentile(50))
	assert.Equal(t, 40*time.Millisecond, tracker.Percentile(95))
	assert.Equal(t, 50*time.Millisecond, tracker.Percentile(100))
}

func TestLatencyTrackerRingEvictsOldest(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 1; i <= 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}

	assert.Equal(t, 3, tracker.Count())
	assert.Equal(t, 10, tracker.Total())
	assert.Equal(t, 8*time.Millisecond, tracker.Percentile(0), "only the last three samples remain")
	assert.Equal(t, 10*time.Millisecond, tracker.Percentile(100))
}

func TestLatencyTrackerConcurrentObserve(t *testing.T) {
	tracker := NewLatencyTracker(0)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tracker.Observe(time.Millisecond)
				_ = tracker.Percentile(95)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, tracker.Total())
	assert.Equal(t, 400, tracker.Count())
}
