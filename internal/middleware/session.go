package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"backend/internal/store"
)

const SessionCookieName = "session_token"

// ExtractToken pulls the session token from the Authorization header or the
// session cookie. Header wins when both are present.
func ExtractToken(c *gin.Context) string {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw != "" {
		parts := strings.Split(raw, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return cookie
	}
	return ""
}

// SessionAuthOptional resolves the session when a token is present but never
// rejects the request. Handlers behind it serve both logged-in users and
// legacy clients that identify themselves in the request body.
func SessionAuthOptional(sessions *store.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token != "" {
			session, user, err := sessions.ResolveUser(c.Request.Context(), token)
			if err == nil {
				c.Set("userId", user.ID)
				c.Set("user", user)
				c.Set("session", session)
			} else if err != store.ErrNotFound {
				log.Println("[AUTH] [ERROR] session lookup failed:", err)
			}
		}
		c.Next()
	}
}

// SessionAuth resolves the bearer/cookie session token and injects the bound
// user into the context. Unknown, revoked and expired tokens all answer the
// same way so a caller cannot probe which tokens exist.
func SessionAuth(sessions *store.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			log.Println("[AUTH] [ERROR] missing session token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		session, user, err := sessions.ResolveUser(c.Request.Context(), token)
		if err == store.ErrNotFound {
			log.Println("[AUTH] [ERROR] session not resolvable")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if err != nil {
			log.Println("[AUTH] [ERROR] session lookup failed:", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		c.Set("userId", user.ID)
		c.Set("user", user)
		c.Set("session", session)
		c.Next()
	}
}
