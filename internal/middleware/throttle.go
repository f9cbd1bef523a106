package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter decides whether the caller identified by key may proceed.
type RateLimiter interface {
	Allow(key string) bool
}

// ThrottleRule is the per-actor budget: Requests per Window plus Burst.
// Actors idle for longer than IdleTTL are forgotten.
type ThrottleRule struct {
	Requests int
	Window   time.Duration
	Burst    int
	IdleTTL  time.Duration
}

func (r ThrottleRule) normalized() ThrottleRule {
	if r.Requests <= 0 {
		r.Requests = 1
	}
	if r.Window <= 0 {
		r.Window = time.Second
	}
	if r.Burst <= 0 {
		r.Burst = 1
	}
	if r.IdleTTL <= 0 {
		r.IdleTTL = 5 * time.Minute
	}
	return r
}

type bucket struct {
	tokens *rate.Limiter
	seen   time.Time
}

// ActorThrottle keeps one token bucket per actor id.
type ActorThrottle struct {
	rule  ThrottleRule
	every rate.Limit

	mu      sync.Mutex
	buckets map[string]*bucket
	clock   func() time.Time
}

func NewActorThrottle(rule ThrottleRule) *ActorThrottle {
	rule = rule.normalized()
	return &ActorThrottle{
		rule:    rule,
		every:   rate.Every(rule.Window / time.Duration(rule.Requests)),
		buckets: make(map[string]*bucket),
		clock:   time.Now,
	}
}

// Allow spends one token from key's bucket. Callers without an id share
// the "anonymous" bucket.
func (t *ActorThrottle) Allow(key string) bool {
	if key == "" {
		key = "anonymous"
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock()
	t.evictIdleLocked(now)
	return t.bucketLocked(key, now).tokens.AllowN(now, 1)
}

// Tracked reports how many actors currently hold a bucket.
func (t *ActorThrottle) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buckets)
}

// SetClock replaces the time source.
func (t *ActorThrottle) SetClock(clock func() time.Time) {
	t.mu.Lock()
	t.clock = clock
	t.mu.Unlock()
}

func (t *ActorThrottle) bucketLocked(key string, now time.Time) *bucket {
	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{tokens: rate.NewLimiter(t.every, t.rule.Burst)}
		t.buckets[key] = b
	}
	b.seen = now
	return b
}

func (t *ActorThrottle) evictIdleLocked(now time.Time) {
	for key, b := range t.buckets {
		if now.Sub(b.seen) > t.rule.IdleTTL {
			delete(t.buckets, key)
		}
	}
}

var _ RateLimiter = (*ActorThrottle)(nil)
