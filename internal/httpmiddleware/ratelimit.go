package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"timesheet/internal/auth"
)

// TokenBucket is an in-memory per-client rate limiter. Buckets idle long
// enough to have refilled completely are evicted.
type TokenBucket struct {
	capacity float64
	perSec   float64
	idle     time.Duration
	now      func() time.Time

	mu        sync.Mutex
	state     map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTokenBucket creates a limiter allowing perMinute requests per client
// with bursts up to capacity.
func NewTokenBucket(capacity, perMinute int) *TokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	l := &TokenBucket{
		capacity: float64(capacity),
		perSec:   float64(perMinute) / 60,
		idle:     10 * time.Minute,
		now:      time.Now,
		state:    make(map[string]*bucket),
	}
	if l.perSec > 0 {
		l.idle = time.Duration(l.capacity / l.perSec * float64(time.Second))
	}
	return l
}

// Middleware limits requests per device, falling back to the client IP
// before authentication.
func (l *TokenBucket) Middleware(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if claims, ok := auth.DeviceClaims(c); ok {
			key = "device:" + claims.DeviceID
		}
		if !l.Allow(key) {
			if log != nil {
				log.WithField("key", key).Warn("rate limited")
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}

// Allow takes one token for key.
func (l *TokenBucket) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweepLocked(now)
	}
	b, ok := l.state[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.state[key] = b
	}
	b.tokens += now.Sub(b.last).Seconds() * l.perSec
	if b.tokens > l.capacity {
		b.tokens = l.capacity
	}
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (l *TokenBucket) sweepLocked(now time.Time) {
	for key, b := range l.state {
		if now.Sub(b.last) >= l.idle {
			delete(l.state, key)
		}
	}
	l.lastSweep = now
}
