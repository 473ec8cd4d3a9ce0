package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware applies one token bucket of rps (burst rps) to every
// request passing through it.
func RateLimitMiddleware(rps int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), rps)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			tooManyRequests(c)
			return
		}
		c.Next()
	}
}

// keyIdleTTL is how long an unused per-key bucket is kept.
const keyIdleTTL = 10 * time.Minute

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimitMiddleware gives each key (e.g. a session id) its own bucket.
// Requests with an empty key share one bucket.
func KeyedRateLimitMiddleware(rps int, key func(*gin.Context) string) gin.HandlerFunc {
	var (
		mu        sync.Mutex
		limiters  = make(map[string]*keyedLimiter)
		lastPrune time.Time
	)

	allow := func(k string, now time.Time) bool {
		mu.Lock()
		defer mu.Unlock()

		if now.Sub(lastPrune) > keyIdleTTL {
			for id, l := range limiters {
				if now.Sub(l.lastSeen) > keyIdleTTL {
					delete(limiters, id)
				}
			}
			lastPrune = now
		}

		l, ok := limiters[k]
		if !ok {
			l = &keyedLimiter{limiter: rate.NewLimiter(rate.Limit(rps), rps)}
			limiters[k] = l
		}
		l.lastSeen = now
		return l.limiter.AllowN(now, 1)
	}

	return func(c *gin.Context) {
		if !allow(key(c), time.Now()) {
			tooManyRequests(c)
			return
		}
		c.Next()
	}
}

func tooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error": "rate limit exceeded",
	})
}
