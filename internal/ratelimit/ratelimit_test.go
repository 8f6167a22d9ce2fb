package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for deterministic window tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAllowUnderLimit(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock("test", 5, time.Minute, clock.Now)

	for i := 0; i < 5; i++ {
		d := l.Allow("10.0.0.1")
		require.True(t, d.Allowed, "request %d should be admitted", i+1)
		assert.Equal(t, 4-i, d.Remaining)
		clock.Advance(time.Second)
	}
}

func TestNonPositiveMaxClampedToOne(t *testing.T) {
	clock := newFakeClock()

	for _, max := range []int{0, -5} {
		l := NewWithClock("test", max, time.Minute, clock.Now)

		d := l.Allow("10.0.0.1")
		require.True(t, d.Allowed)
		assert.Zero(t, d.Remaining)

		d = l.Allow("10.0.0.1")
		require.False(t, d.Allowed)
		assert.Equal(t, time.Minute, d.RetryAfter)
	}
}

func TestRejectOverLimit(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock("test", 5, time.Minute, clock.Now)

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow("10.0.0.1").Allowed)
	}

	d := l.Allow("10.0.0.1")
	require.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	// All five admitted at the same instant, so the full window remains.
	assert.Equal(t, time.Minute, d.RetryAfter)
}

func TestAdmittedAfterRetryAfter(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock("test", 5, time.Minute, clock.Now)

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow("k").Allowed)
	}
	d := l.Allow("k")
	require.False(t, d.Allowed)

	clock.Advance(d.RetryAfter + time.Second)
	assert.True(t, l.Allow("k").Allowed)
}

func TestWindowScenario(t *testing.T) {
	// 5 calls at t=0 admitted, 6th at t=0 rejected with retry-after ~60s,
	// call at t=61 admitted.
	clock := newFakeClock()
	l := NewWithClock("test", 5, 60*time.Second, clock.Now)

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow("k").Allowed)
	}

	d := l.Allow("k")
	require.False(t, d.Allowed)
	assert.InDelta(t, 60, d.RetryAfter.Seconds(), 1)

	clock.Advance(61 * time.Second)
	assert.True(t, l.Allow("k").Allowed)
}

func TestKeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock("test", 2, time.Minute, clock.Now)

	require.True(t, l.Allow("192.168.1.1").Allowed)
	require.True(t, l.Allow("192.168.1.1").Allowed)
	require.False(t, l.Allow("192.168.1.1").Allowed)

	assert.True(t, l.Allow("192.168.1.2").Allowed)
}

func TestReset(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock("test", 1, time.Minute, clock.Now)

	require.True(t, l.Allow("k").Allowed)
	require.False(t, l.Allow("k").Allowed)

	l.Reset("k")
	assert.True(t, l.Allow("k").Allowed)
}

func TestResetAll(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock("test", 1, time.Minute, clock.Now)

	require.True(t, l.Allow("a").Allowed)
	require.True(t, l.Allow("b").Allowed)

	l.ResetAll()
	assert.True(t, l.Allow("a").Allowed)
	assert.True(t, l.Allow("b").Allowed)
}

func TestRemaining(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock("test", 5, time.Minute, clock.Now)

	assert.Equal(t, 5, l.Remaining("k"))

	l.Allow("k")
	assert.Equal(t, 4, l.Remaining("k"))

	l.Allow("k")
	l.Allow("k")
	assert.Equal(t, 2, l.Remaining("k"))
}

func TestSlidingWindowExpiry(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock("test", 2, time.Minute, clock.Now)

	require.True(t, l.Allow("k").Allowed)
	clock.Advance(30 * time.Second)
	require.True(t, l.Allow("k").Allowed)
	require.False(t, l.Allow("k").Allowed)

	// First entry leaves the window at t=60; only the t=30 entry remains.
	clock.Advance(31 * time.Second)
	d := l.Allow("k")
	require.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
}

func TestPrune(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	timestamps := []time.Time{
		base,
		base.Add(10 * time.Second),
		base.Add(30 * time.Second),
		base.Add(59 * time.Second),
	}

	valid := prune(timestamps, base.Add(10*time.Second))
	require.Len(t, valid, 2)
	assert.Equal(t, base.Add(30*time.Second), valid[0])
	assert.Equal(t, base.Add(59*time.Second), valid[1])

	assert.Empty(t, prune(nil, base))
	assert.Empty(t, prune(timestamps, base.Add(time.Hour)))
}

func TestConcurrentAllowNotDoubleCounted(t *testing.T) {
	l := New("test", 50, time.Minute)

	var wg sync.WaitGroup
	allowed := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Allow("shared").Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	assert.Equal(t, 50, count, "exactly max requests should be admitted")
}

func TestConcurrentDistinctKeys(t *testing.T) {
	l := New("test", 3, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			for j := 0; j < 3; j++ {
				if !l.Allow(key).Allowed {
					t.Errorf("key %s rejected under its own quota", key)
				}
			}
		}(i)
	}
	wg.Wait()
}
