package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wizardkeep/warden/core"
	"github.com/wizardkeep/warden/ports"
	"github.com/wizardkeep/warden/service"
)

// Context keys set by the middleware chain.
const (
	ctxKeyAddress = "userAddress"
	ctxKeySession = "session"
	ctxKeyToken   = "sessionToken"
	ctxKeyProfile = "profile"
	ctxKeyBody    = "requestBody"
)

// ValidateBody is the validation stage for routes carrying a JSON body.
// It decodes strictly into the route's declared shape and must run before
// Auth: an out-of-shape body is rejected as invalid input regardless of
// session state. The decoded body is stored for the handler.
func ValidateBody[T any]() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req T
		if err := decodeStrict(c.Request.Body, &req); err != nil {
			respondError(c, core.ErrInvalidInput, err.Error())
			return
		}
		c.Set(ctxKeyBody, &req)
		c.Next()
	}
}

// extractToken pulls the session token from the Authorization header,
// falling back to the session cookie.
func extractToken(c *gin.Context, cookieName string) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if cookieName != "" {
		if token, err := c.Cookie(cookieName); err == nil {
			return token
		}
	}
	return ""
}

// CORS applies the configured origin policy to every response, including
// rejections produced by later middleware stages. Must be first in the
// chain for that reason.
func CORS(origins []string) gin.HandlerFunc {
	wildcard := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case wildcard:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Header("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RateLimit enforces a fixed per-window budget. The bucket key is the
// caller's identity when the request carries a resolvable session token
// (resolution is pure, no store round trip), else the client IP.
func RateLimit(limiter ports.RateLimiter, authService *service.AuthService, scope, cookieName string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if token := extractToken(c, cookieName); token != "" {
			if session, err := authService.ResolveSession(token); err == nil {
				key = session.Address
			}
		}

		allowed, err := limiter.Allow(c.Request.Context(), scope+":"+key, limit, window)
		if err != nil {
			respondError(c, err, "")
			return
		}
		if !allowed {
			respondError(c, core.ErrTooManyRequests, "")
			return
		}

		c.Next()
	}
}

// Auth validates the session token (signature, expiry, revocation) and
// stores the resolved identity in the request context. Absent and invalid
// tokens are indistinguishable to the caller.
func Auth(authService *service.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c, cookieName)
		if token == "" {
			respondError(c, core.ErrUnauthenticated, "")
			return
		}

		session, err := authService.ValidateSession(c.Request.Context(), token)
		if err != nil {
			respondError(c, err, "")
			return
		}

		c.Set(ctxKeyAddress, session.Address)
		c.Set(ctxKeySession, session)
		c.Set(ctxKeyToken, token)

		c.Next()
	}
}

// RequireRole runs the authorization gate: it looks up the caller's
// profile and applies the role policy. Must run after Auth.
func RequireRole(authService *service.AuthService, required core.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		address := c.GetString(ctxKeyAddress)

		profile, err := authService.LoadProfile(c.Request.Context(), address)
		if err != nil && !errors.Is(err, core.ErrNoProfile) {
			respondError(c, err, "")
			return
		}

		if err := core.Authorize(address, profile, required); err != nil {
			respondError(c, err, "")
			return
		}

		c.Set(ctxKeyProfile, profile)

		c.Next()
	}
}

// RequestLogger logs one line per request with structured fields.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"ip":       c.ClientIP(),
		}).Info("request")
	}
}
