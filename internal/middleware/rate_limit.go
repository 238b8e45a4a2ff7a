// internal/middleware/rate_limit.go
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/apexchain/apex-backend/internal/i18n"
	"github.com/apexchain/apex-backend/internal/utils"
)

const (
	visitorIdle  = 3 * time.Minute
	visitorSweep = time.Minute
)

// RateLimiter hands out one token bucket per client IP. Buckets idle for
// visitorIdle are evicted.
type RateLimiter struct {
	visitors *cache.Cache
	mtx      sync.Mutex
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		visitors: cache.New(visitorIdle, visitorSweep),
		rate:     r,
		burst:    b,
	}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()

	if v, ok := rl.visitors.Get(ip); ok {
		limiter := v.(*rate.Limiter)
		rl.visitors.SetDefault(ip, limiter)
		return limiter
	}
	limiter := rate.NewLimiter(rl.rate, rl.burst)
	rl.visitors.SetDefault(ip, limiter)
	return limiter
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			lang := utils.GetLangFromContext(c)
			utils.ErrorResponse(c, http.StatusTooManyRequests, "RATE_LIMITED", i18n.T(lang, i18n.KeyRateLimitReached), nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

var (
	generalLimiter = NewRateLimiter(rate.Every(100*time.Millisecond), 10)
	authLimiter    = NewRateLimiter(rate.Every(12*time.Second), 5)
	uploadLimiter  = NewRateLimiter(rate.Every(6*time.Second), 10)
	verifyLimiter  = NewRateLimiter(rate.Every(200*time.Millisecond), 5)
)

func GeneralRateLimit() gin.HandlerFunc {
	return generalLimiter.Middleware()
}

// AuthRateLimit guards login and registration.
func AuthRateLimit() gin.HandlerFunc {
	return authLimiter.Middleware()
}

func UploadRateLimit() gin.HandlerFunc {
	return uploadLimiter.Middleware()
}

// VerifyRateLimit guards the public lookup endpoints.
func VerifyRateLimit() gin.HandlerFunc {
	return verifyLimiter.Middleware()
}
