package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"launchdeck/internal/auth"
	"launchdeck/internal/store"
)

// RequireUser rejects anonymous callers. It MUST be used after Identify.
// The error kind distinguishes a missing session from a stale one.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IdentityFrom(c) != nil {
			c.Next()
			return
		}
		abortUnauthorized(c)
	}
}

// RequireAdmin restricts a route to admin identities: the loopback bypass
// or a user holding an admin-flagged role. It MUST be used after Identify.
func RequireAdmin(users *store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := IdentityFrom(c)
		if id == nil {
			abortUnauthorized(c)
			return
		}

		if auth.IsAdmin(id, users.ListRoles()) {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
	}
}

func abortUnauthorized(c *gin.Context) {
	kind := "no_session"
	switch err := SessionErrorFrom(c); {
	case errors.Is(err, auth.ErrExpired):
		kind = "expired"
	case errors.Is(err, auth.ErrInvalidated):
		kind = "invalidated"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":          "Authentication required",
		"kind":           kind,
		"login_required": true,
	})
}
