package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "pomodoro/collab/internal/errors"
	"pomodoro/collab/internal/service"
)

const (
	UserIDContextKey   = "userID"
	UserNameContextKey = "userName"
)

// Auth rejects requests without a valid bearer token.
func Auth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			writeError(c, apperrors.Unauthorized("missing authorization header"))
			return
		}

		identity, apiErr := parseBearer(authService, authHeader)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

// OptionalAuth attaches the token's identity when one is sent. A malformed or
// expired token is still an error; no header at all is not.
func OptionalAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		identity, apiErr := parseBearer(authService, authHeader)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

func parseBearer(authService *service.AuthService, authHeader string) (service.Identity, *apperrors.APIError) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return service.Identity{}, apperrors.Unauthorized("invalid authorization format")
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return service.Identity{}, apperrors.Unauthorized("invalid authorization format")
	}

	return authService.ParseToken(token)
}

func setIdentity(c *gin.Context, identity service.Identity) {
	c.Set(UserIDContextKey, identity.UserID)
	c.Set(UserNameContextKey, identity.Name)

	logger := RequestLogger(c).With().Str("user_id", identity.UserID).Logger()
	c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
}

func UserID(c *gin.Context) string {
	return c.GetString(UserIDContextKey)
}

func UserName(c *gin.Context) string {
	return c.GetString(UserNameContextKey)
}

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	c.AbortWithStatusJSON(apiErr.Status, gin.H{
		"error": gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
			"details": apiErr.Details,
		},
	})
}
