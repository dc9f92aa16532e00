package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/transport/http/response"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/metrics"
	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

type visitor struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	last    time.Time
}

// NewRateLimitPerIP limits requests per client IP. Visitors are kept in a
// bounded LRU and dropped after ttl of inactivity; the janitor stops with ctx.
func NewRateLimitPerIP(
	ctx context.Context,
	limit, burst, cacheSize int,
	ttl time.Duration,
) gin.HandlerFunc {

	visitors, _ := lru.New[string, *visitor](cacheSize)

	go func() {
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, key := range visitors.Keys() {
					if v, ok := visitors.Peek(key); ok && v.idle(ttl) {
						visitors.Remove(key)
					}
				}
			}
		}
	}()

	return func(c *gin.Context) {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			host = c.Request.RemoteAddr
		}

		v, ok := visitors.Get(host)
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(rate.Limit(limit), burst)}
			visitors.Add(host, v)
		}

		if !v.allow(ttl, limit, burst) {
			metrics.RateLimitedTotal.Inc()
			response.Fail(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}

func (v *visitor) idle(ttl time.Duration) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return time.Since(v.last) > ttl
}

func (v *visitor) allow(ttl time.Duration, limit, burst int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := time.Now()
	// an idle visitor starts over even if the janitor has not run yet
	if !v.last.IsZero() && now.Sub(v.last) > ttl {
		v.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
	v.last = now
	return v.limiter.AllowN(now, 1)
}
