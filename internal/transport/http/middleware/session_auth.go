package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docqa-assistant/internal/pkg/jwtutil"
	"docqa-assistant/internal/session"
	"docqa-assistant/internal/transport/http/response"
)

const ContextSessionKey = "session"

// SessionAuth resolves the bearer token to a live session. It does not lock
// the session; routes that touch session state also use SessionTurn.
func SessionAuth(secret string, store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing authorization header")
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid authorization scheme")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or expired token")
			return
		}

		sess, ok := store.Get(claims.SessionID)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, response.CodeSessionExpired, "session expired, please start a new session")
			return
		}

		c.Set(ContextSessionKey, sess)
		c.Next()
	}
}

// SessionTurn holds the session lock until the handler returns, so requests
// of one session run one at a time. It must run after SessionAuth.
func SessionTurn() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "session required")
			return
		}
		sess.Lock()
		defer sess.Unlock()
		c.Next()
	}
}

// CurrentSession returns the session bound by SessionAuth.
func CurrentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(ContextSessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}
