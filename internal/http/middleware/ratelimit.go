// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with one
// bucket per caller (user id, else client IP) built on golang.org/x/time/rate.
// Idle buckets are evicted opportunistically. Requests that
// IdempotencyValidator marked as replays bypass the limiter.
//
// The limiter is process-local; with several instances behind a balancer the
// effective limit is multiplied by the instance count.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

var rateLimited = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by the rate limiter, by route.",
	},
	[]string{"path"},
)

func init() {
	prometheus.MustRegister(rateLimited)
}

// KeyFunc selects the identity used to key a rate-limit bucket.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by "user:<id>" and falls back to "ip:<addr>"
// for anonymous callers.
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if uid := UserID(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn KeyFunc

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	lookups  uint64
}

// NewRateLimiter constructs a limiter refilling rps tokens per second with
// the given burst (coerced to at least 1).
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// limiter returns the bucket for key. Every 5000 lookups idle buckets are
// evicted first, so a stale bucket is never refreshed by the lookup that
// should have dropped it.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= 5000 {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.lookups = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler enforces the limit. Rejected requests get 429 with the standard
// error envelope and a Retry-After (whole seconds) derived from the bucket.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		lim := rl.limiter(rl.keyFn(c))
		now := time.Now()
		res := lim.ReserveN(now, 1)
		delay := res.DelayFrom(now)
		if res.OK() && delay == 0 {
			c.Next()
			return
		}
		res.CancelAt(now)

		retry := retryAfter(res.OK(), delay)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		rateLimited.WithLabelValues(path).Inc()

		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}

// maxRetryAfter caps the Retry-After hint for very slow buckets.
const maxRetryAfter = time.Hour

// retryAfter converts a reservation delay to whole seconds. A bucket that
// never refills has no meaningful delay and gets 1.
func retryAfter(ok bool, delay time.Duration) int {
	if !ok || delay <= 0 || delay == rate.InfDuration {
		return 1
	}
	if delay > maxRetryAfter {
		delay = maxRetryAfter
	}
	return int(math.Ceil(delay.Seconds()))
}
