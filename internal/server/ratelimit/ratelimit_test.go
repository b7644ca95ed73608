package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucket_BurstThenDeny(t *testing.T) {
	b := newBucket(10, 1.0)

	for i := 0; i < 10; i++ {
		allowed, _, _, _ := b.take()
		require.True(t, allowed, "request %d should fit in the burst", i+1)
	}

	allowed, remaining, _, retryAfter := b.take()
	assert.False(t, allowed)
	assert.Zero(t, remaining)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestBucket_Refills(t *testing.T) {
	b := newBucket(10, 1.0) // 1 token per second

	for i := 0; i < 10; i++ {
		b.take()
	}

	time.Sleep(1100 * time.Millisecond)

	allowed, _, _, _ := b.take()
	assert.True(t, allowed, "one token should have refilled")
	allowed, _, _, _ = b.take()
	assert.False(t, allowed, "the refilled token was already spent")
}

func TestBucket_ResetTimeInFuture(t *testing.T) {
	b := newBucket(10, 1.0)

	_, remaining, fullAt, _ := b.take()
	assert.Equal(t, 9, remaining)
	assert.True(t, fullAt.After(time.Now()), "a partially drained bucket refills in the future")
}

func TestLimiter_ChargesDefaultBudget(t *testing.T) {
	l := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
	})
	defer l.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := l.Allow("127.0.0.1", "/jobs/abc/status", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := l.Allow("127.0.0.1", "/jobs/abc/status", "GET")
	assert.False(t, allowed)
	assert.Zero(t, info.Remaining)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(&Config{Enabled: false})
	defer l.Stop()

	for i := 0; i < 100; i++ {
		allowed, info := l.Allow("127.0.0.1", "/jobs", "POST")
		require.True(t, allowed)
		assert.Zero(t, info.Limit)
	}
}

func TestLimiter_SubmissionBudgetIsSeparate(t *testing.T) {
	l := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/jobs", Method: "POST", Limit: 5, Window: time.Hour, Burst: 5},
		},
	})
	defer l.Stop()

	// Exhaust the submission budget.
	for i := 0; i < 5; i++ {
		allowed, info := l.Allow("127.0.0.1", "/jobs", "POST")
		require.True(t, allowed, "submission %d", i+1)
		assert.Equal(t, 5, info.Limit)
	}
	allowed, _ := l.Allow("127.0.0.1", "/jobs", "POST")
	assert.False(t, allowed)

	// A throttled submitter can still poll.
	allowed, info := l.Allow("127.0.0.1", "/jobs/abc/status", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
}

func TestLimiter_ClientsDoNotShareBuckets(t *testing.T) {
	l := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Hour,
	})
	defer l.Stop()

	allowed, _ := l.Allow("10.0.0.1", "/jobs/abc/status", "GET")
	require.True(t, allowed)
	allowed, _ = l.Allow("10.0.0.1", "/jobs/abc/status", "GET")
	require.False(t, allowed)

	allowed, _ = l.Allow("10.0.0.2", "/jobs/abc/status", "GET")
	assert.True(t, allowed, "a second client has its own bucket")
}

func TestLimiter_BurstSmallerThanLimit(t *testing.T) {
	l := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/jobs", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},
		},
	})
	defer l.Stop()

	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("127.0.0.1", "/jobs", "POST")
		require.True(t, allowed, "burst request %d", i+1)
	}

	allowed, _ := l.Allow("127.0.0.1", "/jobs", "POST")
	assert.False(t, allowed, "burst exhausted, no refill yet")
}

func TestLimiter_ConcurrentChargesStayWithinBudget(t *testing.T) {
	l := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
	})
	defer l.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _ := l.Allow("127.0.0.1", "/jobs/abc/status", "GET"); allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowedCount)
}

func TestLimiter_EvictsIdleClients(t *testing.T) {
	l := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
	})
	defer l.Stop()

	for i := 0; i < 10; i++ {
		allowed, _ := l.Allow(fmt.Sprintf("10.0.0.%d", i+1), "/jobs/abc/status", "GET")
		require.True(t, allowed)
	}

	// Age half the clients past the idle cutoff and evict.
	l.mu.Lock()
	n := 0
	for _, e := range l.entries {
		if n%2 == 0 {
			e.lastSeen = time.Now().Add(-2 * time.Hour)
		}
		n++
	}
	l.mu.Unlock()
	l.evictIdle()

	l.mu.Lock()
	remaining := len(l.entries)
	l.mu.Unlock()
	assert.Equal(t, 5, remaining)
}

func TestNewLimiter_NilConfigUsesDefaults(t *testing.T) {
	l := NewLimiter(nil)
	defer l.Stop()

	allowed, info := l.Allow("127.0.0.1", "/jobs/abc/status", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
}
