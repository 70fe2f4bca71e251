package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"athena-feed/internal/auth"
	"athena-feed/internal/cache"
	"athena-feed/internal/domain"
)

const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func accessLogMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if userID := c.GetString(ctxUserID); userID != "" {
			entry = entry.WithField("user_id", userID)
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// bearerToken prefers the access cookie and falls back to the
// Authorization header.
func bearerToken(c *gin.Context) string {
	if token, err := c.Cookie(auth.AccessCookie); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func (h *Handler) identify(c *gin.Context) bool {
	token := bearerToken(c)
	if token == "" {
		return false
	}
	claims, err := h.tokens.Parse(token, auth.KindAccess)
	if err != nil {
		return false
	}
	c.Set(ctxUserID, claims.UserID())
	c.Set(ctxRole, claims.Role)
	return true
}

func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.identify(c) {
			respondError(c, http.StatusUnauthorized, codeUnauthorized, "Authentication required")
			return
		}
		c.Next()
	}
}

// optionalAuth identifies the caller when a valid token is present and
// lets anonymous requests through otherwise.
func (h *Handler) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.identify(c)
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

func currentRole(c *gin.Context) domain.Role {
	return domain.Role(c.GetString(ctxRole))
}

// rateLimit is a fixed-window limiter keyed by route and client IP. Cache
// failures let the request through.
func (h *Handler) rateLimit(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.limit.Requests <= 0 || h.cache == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := cache.RateLimit.Key(route, c.ClientIP())

		n, err := h.cache.Incr(ctx, key)
		if err != nil {
			h.logger.WithError(err).WithField("key", key).Warn("rate limiter unavailable")
			c.Next()
			return
		}
		if n == 1 {
			if err := h.cache.Expire(ctx, key, h.limit.Window); err != nil {
				// a counter without a window would never reset
				h.logger.WithError(err).WithField("key", key).Warn("set rate limit window")
				if err := h.cache.Del(ctx, key); err != nil {
					h.logger.WithError(err).WithField("key", key).Warn("drop rate limit counter")
				}
				c.Next()
				return
			}
		}
		if n > int64(h.limit.Requests) {
			c.Header("Retry-After", retryAfter(h.limit.Window))
			respondError(c, http.StatusTooManyRequests, codeRateLimited, "Too many requests, please try again later")
			return
		}
		c.Next()
	}
}

func retryAfter(window time.Duration) string {
	return strconv.Itoa(max(1, int(window.Round(time.Second)/time.Second)))
}
