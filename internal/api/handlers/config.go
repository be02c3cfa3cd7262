package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"launchdeck/internal/api/middleware"
	"launchdeck/internal/auth"
	"launchdeck/internal/models"
	"launchdeck/internal/store"
)

// ConfigHandler serves the dashboard document and its projections.
type ConfigHandler struct {
	config *store.ConfigStore
	users  *store.UserStore
}

func NewConfigHandler(config *store.ConfigStore, users *store.UserStore) *ConfigHandler {
	return &ConfigHandler{config: config, users: users}
}

// filtered returns the document restricted to the caller's visible
// categories. Anonymous callers get the settings block with empty lists.
func (h *ConfigHandler) filtered(c *gin.Context) *models.ConfigDocument {
	doc := h.config.Get()
	access := auth.Evaluate(middleware.IdentityFrom(c), h.users.ListRoles(), doc.Categories)
	return auth.FilterConfig(doc, access)
}

// GetConfig returns the policy-filtered document.
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.filtered(c))
}

// ReplaceConfig swaps the whole document.
func (h *ConfigHandler) ReplaceConfig(c *gin.Context) {
	var doc models.ConfigDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if err := h.config.Replace(&doc); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Configuration updated"})
}

// GetServices returns the visible service list.
func (h *ConfigHandler) GetServices(c *gin.Context) {
	doc := h.filtered(c)
	services := doc.Services
	if services == nil {
		services = []models.Service{}
	}
	c.JSON(http.StatusOK, services)
}

// ReplaceServices swaps the service list, leaving the rest of the document
// untouched.
func (h *ConfigHandler) ReplaceServices(c *gin.Context) {
	var services []models.Service
	if err := c.ShouldBindJSON(&services); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if err := h.config.ReplaceServices(services); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Services updated"})
}

// GetSettings returns the settings block.
func (h *ConfigHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.config.Get().Settings)
}

// ReplaceSettings swaps the settings block.
func (h *ConfigHandler) ReplaceSettings(c *gin.Context) {
	var settings models.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if err := h.config.ReplaceSettings(settings); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Settings updated"})
}

// CSVContent returns the port-mapping projection as text inside JSON.
func (h *ConfigHandler) CSVContent(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"csv": h.config.ProjectCSV()})
}

// CSVGenerate writes the export file for the port-proxy consumer and
// returns the same content as a download.
func (h *ConfigHandler) CSVGenerate(c *gin.Context) {
	content := h.config.ProjectCSV()

	if err := h.config.WriteCSV(); err != nil {
		writeStoreError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="port-mappings.csv"`)
	c.Data(http.StatusOK, "text/csv", []byte(content))
}

// ListBackups returns the known config-document backup ids, newest first.
func (h *ConfigHandler) ListBackups(c *gin.Context) {
	ids, err := h.config.ListBackups()
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"backups": ids})
}

// RestoreBackup reinstates a saved backup as the current document.
func (h *ConfigHandler) RestoreBackup(c *gin.Context) {
	id := c.Param("id")
	if err := h.config.Restore(id); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Backup restored"})
}
