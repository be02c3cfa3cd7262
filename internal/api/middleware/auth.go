package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"

	"launchdeck/internal/auth"
	"launchdeck/internal/store"
)

// SessionCookie is the cookie the login handler sets.
const SessionCookie = "deck_session"

const (
	identityKey     = "identity"
	sessionErrorKey = "session_error"
)

// Identify resolves the caller's identity and stores it in the gin context.
// It never aborts: anonymous callers continue with no identity so read
// endpoints can serve the anonymous view, and gates downstream decide what
// to reject.
//
// Loopback callers are granted a synthetic admin identity when the bypass
// is enabled. This is a deliberate trade-off: session auth is worthless
// against anyone who can reach the process from its own loopback interface.
func Identify(sessions *auth.SessionManager, users *store.UserStore, localhostBypass bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if localhostBypass && isLocalRequest(c) {
			c.Set(identityKey, &auth.Identity{
				Username: "localhost",
				Roles:    []string{"Admins"},
				Local:    true,
			})
			c.Next()
			return
		}

		token := TokenFrom(c)
		if token == "" {
			c.Next()
			return
		}

		id, err := sessions.Validate(token)
		if err != nil {
			c.Set(sessionErrorKey, err)
			c.Next()
			return
		}

		if user, ok := users.GetUser(id.Username); ok {
			id.Roles = user.Roles
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// TokenFrom extracts the session token: cookie first, then the
// "Authorization" header, then the "?token=" query parameter.
func TokenFrom(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return c.Query("token")
}

// IdentityFrom returns the resolved identity, or nil for anonymous callers.
func IdentityFrom(c *gin.Context) *auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(*auth.Identity); ok {
			return id
		}
	}
	return nil
}

// SessionErrorFrom returns the session validation failure, if the caller
// presented a token that did not resolve.
func SessionErrorFrom(c *gin.Context) error {
	if v, ok := c.Get(sessionErrorKey); ok {
		if err, ok := v.(error); ok {
			return err
		}
	}
	return nil
}

// isLocalRequest checks proxy headers before the socket address: behind
// nginx, X-Real-IP and X-Forwarded-For carry the actual client, while the
// socket always shows the proxy.
func isLocalRequest(c *gin.Context) bool {
	if realIP := strings.TrimSpace(c.GetHeader("X-Real-IP")); realIP != "" {
		return isLoopbackAddr(realIP)
	}

	if forwarded := strings.TrimSpace(c.GetHeader("X-Forwarded-For")); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		return isLoopbackAddr(first)
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}
	return isLoopbackAddr(host)
}

func isLoopbackAddr(addr string) bool {
	if addr == "localhost" {
		return true
	}
	ip := net.ParseIP(addr)
	return ip != nil && ip.IsLoopback()
}
