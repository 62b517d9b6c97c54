package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"book-discovery/internal/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// QuotaRemainingHeader reports the searches left in the daily quota
const QuotaRemainingHeader = "X-Daily-Quota-Remaining"

// IPRateLimiter manages per-IP rate limiting
type IPRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
}

// NewIPRateLimiter creates a new IP-based rate limiter
func NewIPRateLimiter(r rate.Limit, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		rate:  r,
		burst: burst,
	}
}

// GetLimiter returns the rate limiter for a given IP
func (l *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	if limiter, ok := l.limiters.Load(ip); ok {
		return limiter.(*rate.Limiter)
	}
	limiter, _ := l.limiters.LoadOrStore(ip, rate.NewLimiter(l.rate, l.burst))
	return limiter.(*rate.Limiter)
}

// DailyQuota caps the number of searches per day across all clients, which
// bounds LLM spend
type DailyQuota struct {
	count   int64
	limit   int64
	resetAt time.Time
	now     func() time.Time
	mu      sync.Mutex
}

// NewDailyQuota creates a new daily quota manager. A non-positive limit
// disables the quota.
func NewDailyQuota(limit int64) *DailyQuota {
	q := &DailyQuota{limit: limit, now: time.Now}
	q.resetAt = nextMidnightPT(q.now())
	return q
}

// Allow checks if a request is allowed and increments the counter
func (q *DailyQuota) Allow() bool {
	if q.limit <= 0 {
		return true
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	if now.After(q.resetAt) {
		logger.For(context.Background()).Infof("[QUOTA] Daily quota reset. Previous count: %d", q.count)
		q.count = 0
		q.resetAt = nextMidnightPT(now)
	}

	if q.count >= q.limit {
		return false
	}
	q.count++
	return true
}

// Remaining returns the remaining quota, or -1 when the quota is disabled
func (q *DailyQuota) Remaining() int64 {
	if q.limit <= 0 {
		return -1
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.limit - q.count
}

// RetryAfter returns the time left until the quota resets
func (q *DailyQuota) RetryAfter() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.resetAt.Sub(q.now())
}

// nextMidnightPT returns the next midnight in Pacific Time, when LLM
// provider daily quotas reset
func nextMidnightPT(now time.Time) time.Time {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		// Fallback to UTC if timezone not found
		loc = time.UTC
	}
	now = now.In(loc)
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, loc)
}

// RateLimitMiddleware applies the per-IP limiter first, then charges the
// global daily quota, so requests a client is refused never consume it.
// Either rejection answers 429 with Retry-After.
func RateLimitMiddleware(ipLimiter *IPRateLimiter, quota *DailyQuota) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.For(c.Request.Context())

		if ipLimiter != nil {
			r := ipLimiter.GetLimiter(c.ClientIP()).Reserve()
			if !r.OK() {
				abortTooManyRequests(c, time.Second, "Too many requests. Please slow down.", "RATE_LIMITED")
				return
			}
			if delay := r.Delay(); delay > 0 {
				r.Cancel()
				log.Warnf("[RATE] Rate limit exceeded for %s", c.ClientIP())
				abortTooManyRequests(c, delay, "Too many requests. Please slow down.", "RATE_LIMITED")
				return
			}
		}

		if quota != nil {
			if !quota.Allow() {
				retry := quota.RetryAfter()
				log.Warnf("[QUOTA] Daily quota exhausted, retry in %v", retry.Round(time.Minute))
				abortTooManyRequests(c, retry, "Daily search limit reached. Please come back tomorrow.", "DAILY_QUOTA_EXCEEDED")
				return
			}
			if remaining := quota.Remaining(); remaining >= 0 {
				c.Header(QuotaRemainingHeader, strconv.FormatInt(remaining, 10))
			}
		}

		c.Next()
	}
}

func abortTooManyRequests(c *gin.Context, retry time.Duration, msg, code string) {
	seconds := int(math.Ceil(retry.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":      msg,
		"code":       code,
		"retryAfter": seconds,
	})
}
