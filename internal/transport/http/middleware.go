package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatroom-server/internal/auth"
)

const (
	// ContextKeyUserID is the context key for storing user ID.
	ContextKeyUserID = "user_id"
	// ContextKeyName is the context key for storing the display name.
	ContextKeyName = "name"
)

// AuthMiddleware rejects requests without a valid session cookie or bearer token.
func AuthMiddleware(authenticator *auth.Authenticator, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := authenticator.Authenticate(c.Request)
		if err != nil {
			logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("unauthenticated request")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "please login to access this route"})
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, identity.UserID)
		c.Set(ContextKeyName, identity.Name)

		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request
		c.Next()

		// Log after request
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}

// currentUserID returns the authenticated user id set by AuthMiddleware.
func currentUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextKeyUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
