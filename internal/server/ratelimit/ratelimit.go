// Package ratelimit enforces per-client request budgets on the job API.
//
// One job submission fans out into up to 5000 browser fetches and LLM calls,
// so POST /jobs carries a far smaller budget than the polling and download
// endpoints. Budgets are token buckets keyed by client, endpoint and method:
// a bucket starts full at its burst capacity and refills continuously at
// limit/window tokens per second.
package ratelimit

import (
	"sync"
	"time"
)

// bucket is a single token bucket. All state transitions happen under mu in
// take, so a bucket's tokens and clock always move together.
type bucket struct {
	mu        sync.Mutex
	capacity  float64
	perSecond float64
	tokens    float64
	lastTick  time.Time
}

func newBucket(capacity int, perSecond float64) *bucket {
	return &bucket{
		capacity:  float64(capacity),
		perSecond: perSecond,
		tokens:    float64(capacity),
		lastTick:  time.Now(),
	}
}

// take credits the bucket for the time elapsed since the last call, then
// consumes one token when available. It reports the post-call token count,
// when the bucket will be full again, and how long a denied caller must wait
// for the next token.
func (b *bucket) take() (allowed bool, remaining int, fullAt time.Time, retryAfter time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastTick).Seconds() * b.perSecond
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastTick = now

	if b.tokens >= 1 {
		b.tokens--
		allowed = true
	} else {
		retryAfter = time.Duration((1 - b.tokens) / b.perSecond * float64(time.Second))
	}

	remaining = int(b.tokens)
	fullAt = now
	if b.tokens < b.capacity {
		fullAt = now.Add(time.Duration((b.capacity - b.tokens) / b.perSecond * float64(time.Second)))
	}
	return allowed, remaining, fullAt, retryAfter
}

// Info is the rate limit state reported back to the client in headers and
// 429 bodies. A zero Limit means the request was not subject to a budget.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	EndpointConfigs []EndpointConfig
}

// entry pairs a bucket with the last time its client was seen, so idle
// clients can be evicted.
type entry struct {
	bucket   *bucket
	lastSeen time.Time
}

// Limiter tracks one bucket per client+endpoint+method combination.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	config  *Config
	ticker  *time.Ticker
	done    chan struct{}
}

// NewLimiter creates a rate limiter. A nil config enables limiting with the
// package defaults and no per-endpoint budgets.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
		}
	}

	l := &Limiter{
		entries: make(map[string]*entry),
		config:  config,
	}

	if config.Enabled && config.CleanupInterval > 0 {
		l.ticker = time.NewTicker(config.CleanupInterval)
		l.done = make(chan struct{})
		go l.evictLoop()
	}

	return l
}

// Allow charges one request from the given client against the endpoint's
// budget, reporting whether it may proceed.
func (l *Limiter) Allow(clientID string, endpoint string, method string) (bool, Info) {
	if !l.config.Enabled {
		return true, Info{Allowed: true}
	}

	budget := MatchEndpoint(endpoint, method, l.config.EndpointConfigs)
	if budget == nil {
		budget = &EndpointConfig{
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
		}
	}
	// Unlimited endpoint (health check).
	if budget.Limit <= 0 {
		return true, Info{Allowed: true}
	}

	b := l.lookup(clientID+":"+endpoint+":"+method, budget)
	allowed, remaining, fullAt, retryAfter := b.take()

	return allowed, Info{
		Allowed:    allowed,
		Limit:      budget.Limit,
		Remaining:  remaining,
		ResetTime:  fullAt,
		RetryAfter: retryAfter,
	}
}

// lookup finds or creates the bucket for a key and marks the key as seen.
func (l *Limiter) lookup(key string, budget *EndpointConfig) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		capacity := budget.Burst
		if capacity <= 0 {
			capacity = budget.Limit
		}
		e = &entry{bucket: newBucket(capacity, float64(budget.Limit)/budget.Window.Seconds())}
		l.entries[key] = e
	}
	e.lastSeen = time.Now()
	return e.bucket
}

// evictIdle drops buckets whose client has not been seen for an hour. A
// dropped bucket recreates full on the next request, which only ever favors
// the client.
func (l *Limiter) evictIdle() {
	cutoff := time.Now().Add(-1 * time.Hour)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

func (l *Limiter) evictLoop() {
	for {
		select {
		case <-l.ticker.C:
			l.evictIdle()
		case <-l.done:
			return
		}
	}
}

// Stop ends the eviction goroutine.
func (l *Limiter) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
	if l.done != nil {
		close(l.done)
	}
}
