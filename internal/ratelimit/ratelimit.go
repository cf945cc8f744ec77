// Package ratelimit provides a per-key token bucket limiter for inbound requests.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter gives each key its own limiter. Keys idle longer than idleTTL are evicted.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// New starts a limiter allowing rps requests per second per key with the given burst.
// A non-positive idleTTL disables eviction.
func New(rps float64, burst int, idleTTL time.Duration) *KeyedRateLimiter {
	krl := &KeyedRateLimiter{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  idleTTL,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	if idleTTL > 0 {
		go krl.cleanup()
	}
	return krl
}

// Allow reports whether a request for key may proceed now.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	return krl.getLimiter(key).Allow()
}

func (krl *KeyedRateLimiter) getLimiter(key string) *rate.Limiter {
	krl.mu.Lock()
	defer krl.mu.Unlock()

	e, ok := krl.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.limiters[key] = e
	}
	e.lastSeen = krl.now()
	return e.limiter
}

// size is the number of tracked keys.
func (krl *KeyedRateLimiter) size() int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.limiters)
}

// Sweep drops keys not seen since idleTTL before now and returns how many were dropped.
func (krl *KeyedRateLimiter) Sweep(now time.Time) int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	n := 0
	for k, e := range krl.limiters {
		if now.Sub(e.lastSeen) > krl.idleTTL {
			delete(krl.limiters, k)
			n++
		}
	}
	return n
}

// Stop shuts down the eviction goroutine.
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(func() {
		close(krl.done)
	})
}

func (krl *KeyedRateLimiter) cleanup() {
	t := time.NewTicker(krl.idleTTL)
	defer t.Stop()
	for {
		select {
		case <-krl.done:
			return
		case <-t.C:
			krl.Sweep(krl.now())
		}
	}
}
