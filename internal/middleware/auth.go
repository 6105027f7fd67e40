// Package middleware provides Gin HTTP middleware for authentication, actor
// attribution, rate limiting, security headers, metrics, and request ids.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Security → RateLimit → Auth → Actor → Handler
//
// Security headers run first so they appear on all responses including
// errors. Rate limiting runs before auth to block brute-force attacks before
// any DB work. Auth populates the user identity; the actor middleware reads
// that identity into the request-scoped audit actor context so every write
// performed by the handler is attributed correctly.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chorusdesk/chorusdesk/internal/auth"
	"github.com/chorusdesk/chorusdesk/internal/db/repositories"
)

// Context keys populated by AuthMiddleware for downstream middleware and
// handlers.
const (
	CtxUserID   = "user_id"
	CtxUserName = "user_name"
)

// AuthMiddleware validates the bearer JWT and loads the member account it
// names into the request context.
func AuthMiddleware(userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing authorization header",
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header must start with 'Bearer '",
			})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is empty",
			})
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		user, err := userRepo.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load user",
			})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "User not found",
			})
			return
		}

		c.Set(CtxUserID, user.ID)
		c.Set(CtxUserName, user.UserName)

		c.Next()
	}
}
