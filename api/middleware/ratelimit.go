package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecrawl/cache"
	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/models"
	"golang.org/x/time/rate"
)

// Limiters expire an hour after creation and the identity starts over with
// a full bucket.
const (
	limiterTTL      = time.Hour
	limiterCapacity = 10000
)

// RateLimit returns per-caller token-bucket rate limiting. Callers are
// told apart by API key when Auth ran before it, by IP otherwise.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := cache.New[*rate.Limiter](limiterCapacity, limiterTTL)

	getLimiter := func(identity string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters.Get(identity)
		if !ok {
			l = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
			limiters.Set(identity, l)
		}
		return l
	}

	return func(c *gin.Context) {
		if !getLimiter(identity(c)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.NewErrorResponse(
				models.ErrCodeRateLimited,
				"rate limit exceeded, please slow down",
			))
			return
		}

		c.Next()
	}
}
