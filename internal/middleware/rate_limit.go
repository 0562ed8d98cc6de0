package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultRateLimit is the default number of requests per minute
	DefaultRateLimit = 100
	// DefaultBurstSize is the default burst size
	DefaultBurstSize = 10
	// CleanupInterval is how often stale limiters are swept
	CleanupInterval = 5 * time.Minute
	// LimiterTTL is how long an idle token keeps its limiter
	LimiterTTL = 10 * time.Minute
)

// tokenLimiter pairs a token bucket with its last activity time so the
// sweep can drop buckets for tokens that went quiet.
type tokenLimiter struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// RateLimiter tracks one token bucket per API token. Session traffic
// never reaches it.
type RateLimiter struct {
	mu        sync.Mutex
	byToken   map[uuid.UUID]*tokenLimiter
	perMinute int
	perSecond rate.Limit
	burst     int
	stopCh    chan struct{}
}

// NewRateLimiter creates a RateLimiter with the default limits
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithConfig(DefaultRateLimit, DefaultBurstSize)
}

// NewRateLimiterWithConfig creates a RateLimiter allowing requestsPerMinute
// sustained with the given burst
func NewRateLimiterWithConfig(requestsPerMinute, burstSize int) *RateLimiter {
	rl := &RateLimiter{
		byToken:   make(map[uuid.UUID]*tokenLimiter),
		perMinute: requestsPerMinute,
		perSecond: rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:     burstSize,
		stopCh:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Allow reports whether a request for the given token may proceed
func (r *RateLimiter) Allow(tokenID uuid.UUID) bool {
	return r.limiterFor(tokenID).bucket.Allow()
}

func (r *RateLimiter) limiterFor(tokenID uuid.UUID) *tokenLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	tl, ok := r.byToken[tokenID]
	if !ok {
		tl = &tokenLimiter{bucket: rate.NewLimiter(r.perSecond, r.burst)}
		r.byToken[tokenID] = tl
	}
	tl.lastSeen = time.Now()
	return tl
}

// GetState returns the remaining budget and an estimated reset time for
// the token's rate limit headers.
func (r *RateLimiter) GetState(tokenID uuid.UUID) (remaining int, resetTime time.Time) {
	r.mu.Lock()
	tl, ok := r.byToken[tokenID]
	r.mu.Unlock()

	if !ok {
		return r.burst, time.Now().Add(time.Minute)
	}

	remaining = int(tl.bucket.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	refill := time.Duration(float64(r.burst-remaining)/float64(r.perSecond)) * time.Second
	return remaining, time.Now().Add(refill)
}

// sweep drops limiters for tokens with no recent requests
func (r *RateLimiter) sweep() {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			cutoff := time.Now().Add(-LimiterTTL)
			for tokenID, tl := range r.byToken {
				if tl.lastSeen.Before(cutoff) {
					delete(r.byToken, tokenID)
				}
			}
			r.mu.Unlock()
		case <-r.stopCh:
			return
		}
	}
}

// Stop terminates the sweep goroutine
func (r *RateLimiter) Stop() {
	close(r.stopCh)
}

// RateLimitMiddleware returns an Echo middleware that applies rate limiting
// to API-token-authenticated requests. Session traffic is browser-driven
// and is not limited here.
func RateLimitMiddleware(rl *RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !IsAPITokenAuth(c) {
				return next(c)
			}
			tokenID := GetAPITokenID(c)
			if tokenID == uuid.Nil {
				return next(c)
			}

			if !rl.Allow(tokenID) {
				_, resetTime := rl.GetState(tokenID)
				retryAfter := int(time.Until(resetTime).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}

				writeRateHeaders(c, rl.perMinute, 0, resetTime)
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))

				log.Warn().
					Str("token_id", tokenID.String()).
					Int("retry_after", retryAfter).
					Msg("Rate limit exceeded")

				return c.JSON(http.StatusTooManyRequests, problemDetails{
					Type:   "https://tally.app/errors/rate-limit",
					Title:  "Rate Limit Exceeded",
					Status: http.StatusTooManyRequests,
					Detail: "Too many requests. Please retry after " + strconv.Itoa(retryAfter) + " seconds.",
				})
			}

			remaining, resetTime := rl.GetState(tokenID)
			writeRateHeaders(c, rl.perMinute, remaining, resetTime)

			return next(c)
		}
	}
}

func writeRateHeaders(c echo.Context, limit, remaining int, resetTime time.Time) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
}
