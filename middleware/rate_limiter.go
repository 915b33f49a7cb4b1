// middleware/rate_limiter.go
package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/HSouheill/homeservices_backend/models"
)

type endpointLimit struct {
	limit rate.Limit
	burst int
}

// RateLimiter throttles requests per client IP, with tighter limits on
// write-heavy endpoints
type RateLimiter struct {
	ips            map[string]*rate.Limiter
	blockedIPs     map[string]time.Time
	mu             sync.Mutex
	defaultLimit   rate.Limit
	defaultBurst   int
	blockDuration  time.Duration
	endpointLimits map[string]endpointLimit
	now            func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		ips:           make(map[string]*rate.Limiter),
		blockedIPs:    make(map[string]time.Time),
		defaultLimit:  rate.Every(100 * time.Millisecond), // 10 requests per second
		defaultBurst:  20,
		blockDuration: 5 * time.Minute,
		endpointLimits: map[string]endpointLimit{
			"/api/bookings":                 {limit: rate.Every(2 * time.Second), burst: 5},
			"/api/bookings/:id/start":       {limit: rate.Every(2 * time.Second), burst: 5},
			"/api/offers":                   {limit: rate.Every(time.Second), burst: 5},
			"/api/messages/send":            {limit: rate.Every(100 * time.Millisecond), burst: 30},
			"/api/conversations/:id/typing": {limit: rate.Every(50 * time.Millisecond), burst: 40},
		},
		now: time.Now,
	}
}

// Cleanup drops expired blocks every interval until ctx is done
func (r *RateLimiter) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *RateLimiter) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for ip, blockUntil := range r.blockedIPs {
		if now.After(blockUntil) {
			delete(r.blockedIPs, ip)
			r.resetLocked(ip)
		}
	}
}

func (r *RateLimiter) RateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			r.mu.Lock()
			if blockUntil, blocked := r.blockedIPs[ip]; blocked {
				if r.now().Before(blockUntil) {
					r.mu.Unlock()
					return c.JSON(http.StatusTooManyRequests, models.Response{
						Status:  http.StatusTooManyRequests,
						Message: "IP address blocked due to too many requests",
						Data:    map[string]string{"retryAfter": blockUntil.Format(time.RFC3339)},
					})
				}
				delete(r.blockedIPs, ip)
				r.resetLocked(ip)
			}
			r.mu.Unlock()

			limit, burst := r.defaultLimit, r.defaultBurst
			if l, ok := r.endpointLimits[c.Path()]; ok && c.Request().Method != http.MethodGet {
				limit, burst = l.limit, l.burst
			}

			if !r.getLimiter(ip+" "+c.Path(), limit, burst).Allow() {
				blockUntil := r.now().Add(r.blockDuration)
				r.mu.Lock()
				r.blockedIPs[ip] = blockUntil
				r.mu.Unlock()

				return c.JSON(http.StatusTooManyRequests, models.Response{
					Status:  http.StatusTooManyRequests,
					Message: "Too many requests",
					Data:    map[string]string{"retryAfter": blockUntil.Format(time.RFC3339)},
				})
			}

			return next(c)
		}
	}
}

// resetLocked drops every limiter held for ip
func (r *RateLimiter) resetLocked(ip string) {
	for key := range r.ips {
		if strings.HasPrefix(key, ip+" ") {
			delete(r.ips, key)
		}
	}
}

func (r *RateLimiter) getLimiter(key string, limit rate.Limit, burst int) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, exists := r.ips[key]
	if !exists {
		limiter = rate.NewLimiter(limit, burst)
		r.ips[key] = limiter
	}
	return limiter
}
