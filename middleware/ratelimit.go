package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// idleTTL is how long a key may go unseen before its bucket is dropped.
const idleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	lastPrune time.Time
}

// NewRateLimiter allows perMinute requests per key with bursts of burst.
func NewRateLimiter(perMinute float64, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perMinute / 60),
		burst:    max(burst, 1),
	}
}

func (rl *RateLimiter) limiter(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastPrune) >= idleTTL {
		rl.prune(now)
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// prune drops keys idle for longer than idleTTL and whose bucket has
// refilled, so a dropped key comes back with the same allowance. Callers
// hold mu.
func (rl *RateLimiter) prune(now time.Time) {
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) >= idleTTL && v.limiter.TokensAt(now) >= float64(rl.burst) {
			delete(rl.visitors, key)
		}
	}
	rl.lastPrune = now
}

// Reserve takes a token for key. When none is left it returns false and
// how long until one is.
func (rl *RateLimiter) Reserve(key string, now time.Time) (bool, time.Duration) {
	r := rl.limiter(key, now).ReserveN(now, 1)
	if !r.OK() {
		return false, time.Minute
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// UserRateLimit limits requests per session user, falling back to the
// client IP before a session is established.
func UserRateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if s, ok := GetSession(c); ok {
			key = "user:" + strconv.FormatInt(s.UserID, 10)
		}

		if ok, wait := rl.Reserve(key, time.Now()); !ok {
			retryAfter := int(math.Ceil(wait.Seconds()))
			log.Warnf("Rate limit exceeded for %s", key)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}
