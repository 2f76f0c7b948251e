package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/intinc/interact-engine/internal/auth"
	prommetrics "github.com/intinc/interact-engine/internal/metrics"
)

// Identity headers set by the authenticating reverse proxy.
const (
	headerAuthEmail = "X-Auth-Email"
	headerAuthName  = "X-Auth-Name"
)

const callerContextKey = "caller"

// RateLimiter is the slice of the Redis limiter the API uses.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// identityMiddleware resolves the caller from the proxy headers and stashes it
// in the request context. Requests without identity still pass; permission
// checks reject them later.
func (h *Handler) identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := h.guard.ResolveCaller(c.GetHeader(headerAuthEmail), c.GetHeader(headerAuthName))
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to resolve caller")
			h.errorResponse(c, http.StatusInternalServerError, "Failed to resolve caller identity")
			c.Abort()
			return
		}
		c.Set(callerContextKey, caller)
		c.Next()
	}
}

// caller returns the identity resolved by identityMiddleware.
func (h *Handler) caller(c *gin.Context) auth.Caller {
	if v, ok := c.Get(callerContextKey); ok {
		if caller, ok := v.(auth.Caller); ok {
			return caller
		}
	}
	return auth.Caller{}
}

// requirePermission aborts the request unless the caller holds the permission.
func (h *Handler) requirePermission(perm auth.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.guard.RequirePermission(h.caller(c), perm); err != nil {
			h.denyRequest(c, perm, err)
			return
		}
		c.Next()
	}
}

func (h *Handler) denyRequest(c *gin.Context, perm auth.Permission, err error) {
	prommetrics.RecordAuthDenial(string(perm))
	status := http.StatusForbidden
	if errors.Is(err, auth.ErrUnauthorized) {
		status = http.StatusUnauthorized
	}
	h.errorResponse(c, status, err.Error())
	c.Abort()
}

// rateLimitMiddleware enforces the per-caller fixed window on a route. With no
// limiter configured it is a pass-through.
func (h *Handler) rateLimitMiddleware(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.limiter == nil {
			c.Next()
			return
		}

		key := h.caller(c).Email
		if key == "" {
			key = c.ClientIP()
		}

		allowed, err := h.limiter.Allow(c.Request.Context(), route+":"+key)
		if err != nil {
			// Limiter failures already fail open inside Allow.
			c.Next()
			return
		}
		if !allowed {
			prommetrics.RecordRateLimitRejection(route)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":     "rate limit exceeded",
				"timestamp": time.Now().UTC(),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
