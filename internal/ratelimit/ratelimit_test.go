package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(start time.Time) (*Limiter, *time.Time) {
	clock := start
	l := &Limiter{
		counters: make(map[string]counter),
		now:      func() time.Time { return clock },
	}
	return l, &clock
}

func TestLimitedWithinWindow(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1_700_000_000, 0))

	for i := 0; i < 3; i++ {
		assert.False(t, l.Limited("u1", 3, time.Minute), "request %d should pass", i+1)
	}
	assert.True(t, l.Limited("u1", 3, time.Minute), "4th request in window must be limited")
	// Limited calls do not increment; still limited on the next try.
	assert.True(t, l.Limited("u1", 3, time.Minute))
}

func TestWindowExpiryResetsCounter(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	l, clock := newTestLimiter(start)

	for i := 0; i < 3; i++ {
		l.Limited("u1", 3, time.Minute)
	}
	assert.True(t, l.Limited("u1", 3, time.Minute))

	*clock = start.Add(61 * time.Second)
	assert.False(t, l.Limited("u1", 3, time.Minute), "new window must reset the counter")
	assert.False(t, l.Limited("u1", 3, time.Minute))
}

func TestIdentifiersAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1_700_000_000, 0))

	assert.False(t, l.Limited("a", 1, time.Minute))
	assert.True(t, l.Limited("a", 1, time.Minute))
	assert.False(t, l.Limited("b", 1, time.Minute))
}

func TestConcurrentIncrementsDoNotUndercount(t *testing.T) {
	l := New()
	const workers = 8
	const perWorker = 25

	done := make(chan int, workers)
	for w := 0; w < workers; w++ {
		go func() {
			allowed := 0
			for i := 0; i < perWorker; i++ {
				if !l.Limited("shared", 100, time.Minute) {
					allowed++
				}
			}
			done <- allowed
		}()
	}

	total := 0
	for w := 0; w < workers; w++ {
		total += <-done
	}
	assert.Equal(t, 100, total, "exactly max requests may pass in one window")
}
