package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"launchdeck/internal/api/middleware"
	"launchdeck/internal/auth"
	"launchdeck/internal/store"
)

// AuthHandler owns login, logout, whoami, profile and password changes.
type AuthHandler struct {
	users     *store.UserStore
	sessions  *auth.SessionManager
	cookieTTL int // seconds
}

func NewAuthHandler(users *store.UserStore, sessions *auth.SessionManager, cookieTTL int) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, cookieTTL: cookieTTL}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates and issues a session token, returned in the body and
// set as an HttpOnly cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	user, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.sessions.Issue(user.Username, user.Version)
	if err != nil {
		slog.Error("issuing session token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.setSessionCookie(c, token, h.cookieTTL)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Logout revokes the presented token and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.TokenFrom(c); token != "" {
		h.sessions.Revoke(token)
	}
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Whoami reports the resolved identity and its admin standing.
func (h *AuthHandler) Whoami(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	if id == nil {
		kind := "no_session"
		switch err := middleware.SessionErrorFrom(c); {
		case errors.Is(err, auth.ErrExpired):
			kind = "expired"
		case errors.Is(err, auth.ErrInvalidated):
			kind = "invalidated"
		}
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":          "Authentication required",
			"kind":           kind,
			"login_required": true,
		})
		return
	}

	resp := gin.H{
		"username": id.Username,
		"roles":    id.Roles,
		"is_local": id.Local,
		"is_admin": auth.IsAdmin(id, h.users.ListRoles()),
	}
	if user, ok := h.users.GetUser(id.Username); ok {
		resp["email"] = user.Email
	}
	c.JSON(http.StatusOK, resp)
}

// GetProfile returns the caller's account record.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	if id.Local {
		c.JSON(http.StatusOK, gin.H{"username": id.Username, "is_local": true, "roles": id.Roles})
		return
	}

	user, ok := h.users.GetUser(id.Username)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

type profileRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UpdateProfile changes the caller's contact fields. Roles and passwords
// have their own paths.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	if id.Local {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Local access has no stored profile"})
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if err := h.users.UpdateProfile(id.Username, req.Email, req.FirstName, req.LastName); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type passwordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword rotates the caller's password. Every other session dies
// with the version bump; a fresh token is returned so this one survives.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	if id.Local {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Local access has no password"})
		return
	}

	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if err := h.users.ChangePassword(id.Username, req.OldPassword, req.NewPassword); err != nil {
		writeStoreError(c, err)
		return
	}

	user, _ := h.users.GetUser(id.Username)
	token, err := h.sessions.Issue(user.Username, user.Version)
	if err != nil {
		slog.Error("issuing session token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	h.setSessionCookie(c, token, h.cookieTTL)
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, maxAge, "/", "", false, true)
}

// writeStoreError maps store sentinels onto HTTP statuses. Anything
// unrecognized is a storage failure.
func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, store.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "weak_password"})
	case errors.Is(err, store.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "validation"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		slog.Error("store operation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
