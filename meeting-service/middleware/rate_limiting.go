package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"meetdesk-backend/shared/utils/response"
)

// RateLimitConfig - Requests per Window with Burst headroom; a key that exceeds it is blocked for BlockDuration
type RateLimitConfig struct {
	Requests      int
	Window        time.Duration
	Burst         int
	BlockDuration time.Duration
}

type visitor struct {
	limiter      *rate.Limiter
	lastSeen     time.Time
	blockedUntil time.Time
}

// RateLimiter - per-key token buckets
type RateLimiter struct {
	config   RateLimitConfig
	visitors map[string]*visitor
	mutex    sync.Mutex
	now      func() time.Time
}

// NewRateLimiter creates a limiter and evicts idle keys every cleanupInterval until ctx is done
func NewRateLimiter(ctx context.Context, config RateLimitConfig, cleanupInterval time.Duration) *RateLimiter {
	if config.Requests <= 0 {
		config.Requests = 10
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}

	rl := &RateLimiter{
		config:   config,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
	if cleanupInterval > 0 {
		go rl.cleanup(ctx, cleanupInterval)
	}
	return rl
}

func (rl *RateLimiter) cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle(rl.config.Window + rl.config.BlockDuration)
		}
	}
}

func (rl *RateLimiter) evictIdle(idle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > idle && now.After(v.blockedUntil) {
			delete(rl.visitors, key)
		}
	}
}

// allow reports whether key may proceed and, if not, how long it should wait
func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	v, exists := rl.visitors[key]
	if !exists {
		every := rl.config.Window / time.Duration(rl.config.Requests)
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), rl.config.Burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	if now.Before(v.blockedUntil) {
		return false, v.blockedUntil.Sub(now)
	}
	if v.limiter.AllowN(now, 1) {
		return true, 0
	}

	if rl.config.BlockDuration > 0 {
		v.blockedUntil = now.Add(rl.config.BlockDuration)
		return false, rl.config.BlockDuration
	}
	r := v.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return false, delay
}

// Middleware limits requests per client IP within scope
func (rl *RateLimiter) Middleware(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := rl.allow(scope + ":" + c.ClientIP())
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			response.Failure(c, http.StatusTooManyRequests, "Too many requests. Please try again later.", nil, "")
			return
		}
		c.Next()
	}
}
