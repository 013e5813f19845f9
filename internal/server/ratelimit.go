package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/4shil/axium/internal/pkg/validator"
	"github.com/4shil/axium/internal/ratelimit"
)

// Limiter actions. One window set per action so upload and download
// ceilings never interfere.
const (
	ActionUpload   = "upload"
	ActionDownload = "download"
)

// RateLimit enforces the fixed-window limiter per client IP for the given
// action and exposes the standard rate-limit headers.
func RateLimit(limiter *ratelimit.Limiter, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := validator.ClientKey(c.ClientIP(), c.Request.RemoteAddr)
		res := limiter.Check(action, clientKey)

		if res.Limit > 0 {
			c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", res.Limit))
			c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", res.Remaining))
			c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", int(res.ResetIn/time.Second)))
		}

		if !res.Allowed {
			retryAfter := int(res.ResetIn / time.Second)
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"message": fmt.Sprintf("too many requests, please try again in %d seconds", retryAfter),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// SweepAuth guards the sweep trigger with a shared bearer token. An empty
// configured token leaves the route open for local setups.
func SweepAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != token {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid sweep credential"})
			c.Abort()
			return
		}

		c.Next()
	}
}
