package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"launchdeck/internal/models"
	"launchdeck/internal/store"
)

// UsersHandler is the administrative CRUD surface for accounts and roles.
type UsersHandler struct {
	users *store.UserStore
}

func NewUsersHandler(users *store.UserStore) *UsersHandler {
	return &UsersHandler{users: users}
}

// ListUsers returns every account. Password hashes never serialize.
func (h *UsersHandler) ListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.users.ListUsers()})
}

type upsertUserRequest struct {
	Username  string   `json:"username" binding:"required"`
	Password  string   `json:"password"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Roles     []string `json:"roles"`
}

// UpsertUser creates or updates an account. The password field is plaintext
// and hashed server-side; it is required for new accounts and optional on
// updates.
func (h *UsersHandler) UpsertUser(c *gin.Context) {
	var req upsertUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	record := models.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Roles:     req.Roles,
	}
	if err := h.users.UpsertUser(record, req.Password); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User saved"})
}

// DeleteUser removes an account.
func (h *UsersHandler) DeleteUser(c *gin.Context) {
	if err := h.users.DeleteUser(c.Param("username")); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted"})
}

// ListRoles returns every role definition.
func (h *UsersHandler) ListRoles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"roles": h.users.ListRoles()})
}

// UpsertRole creates or replaces a role.
func (h *UsersHandler) UpsertRole(c *gin.Context) {
	var role models.Role
	if err := c.ShouldBindJSON(&role); err != nil || role.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if err := h.users.UpsertRole(role); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Role saved"})
}

// DeleteRole removes a role. Users still referencing it lose the access it
// granted and nothing else.
func (h *UsersHandler) DeleteRole(c *gin.Context) {
	if err := h.users.DeleteRole(c.Param("name")); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Role deleted"})
}
