package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"cropcare/internal/session"
	"cropcare/internal/transport/http/response"
)

const ContextSessionKey = "session"

// AuthPath is where signed-out browsers are sent.
const AuthPath = "/auth"

// LoadSession resolves the session cookie, if any, into the request context.
func LoadSession(sessions *session.Service, cookieName string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err == nil && token != "" {
			current, resolveErr := sessions.Resolve(c.Request.Context(), token)
			if resolveErr != nil {
				logger.Error("resolve session failed", "error", resolveErr)
			} else if current != nil {
				c.Set(ContextSessionKey, current)
			}
		}
		c.Next()
	}
}

// RequireSession sends signed-out browsers to the auth page. API callers get a 401 envelope.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentSession(c); ok {
			c.Next()
			return
		}
		if response.WantsJSON(c) {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "not signed in")
		} else {
			c.Redirect(http.StatusSeeOther, AuthPath)
		}
		c.Abort()
	}
}

func CurrentSession(c *gin.Context) (*session.Current, bool) {
	v, ok := c.Get(ContextSessionKey)
	if !ok {
		return nil, false
	}
	current, ok := v.(*session.Current)
	return current, ok && current != nil
}
