package middleware

import (
	"fmt"
	"math"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/peoplehub/people-api/internal/ratelimit"
	appErrors "github.com/peoplehub/people-api/pkg/errors"
	"github.com/peoplehub/people-api/pkg/response"
)

// ThrottlePolicy assigns a route to a rate-limit tier. Fraction scales
// the tier's budget for routes that should only consume part of it
// (registration takes 60% of the auth tier, for example). Skip marks
// routes that must never be throttled, such as liveness probes.
type ThrottlePolicy struct {
	Tier     ratelimit.Tier
	Fraction float64
	Skip     bool
}

// EffectiveLimit resolves the request budget this policy grants
// within its tier, never below one request per window.
func (p ThrottlePolicy) EffectiveLimit(tierLimit int) int {
	if p.Fraction <= 0 || p.Fraction >= 1 {
		return tierLimit
	}
	limit := int(math.Floor(float64(tierLimit) * p.Fraction))
	if limit < 1 {
		limit = 1
	}
	return limit
}

// RateLimit returns middleware enforcing the given policy against the
// shared limiter, keyed by client IP. A limiter store failure fails
// open: throttling is an availability guard, not an authorization
// gate, so a Redis outage must not reject every request.
func RateLimit(limiter *ratelimit.Limiter, policy ThrottlePolicy, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if policy.Skip || limiter == nil {
			c.Next()
			return
		}

		limit := policy.EffectiveLimit(limiter.Limit(policy.Tier))
		res, err := limiter.Allow(c.Request.Context(), policy.Tier, c.ClientIP(), limit)
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request",
				zap.String("tier", string(policy.Tier)),
				zap.Error(err))
			c.Next()
			return
		}

		if !res.Allowed {
			retryAfter := int64(math.Ceil(res.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			response.Error(c, appErrors.Clone(appErrors.ErrRateLimited, "rate limit exceeded, retry later"))
			c.Abort()
			return
		}

		c.Next()
	}
}
