package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"launchdeck/internal/auth"
	"launchdeck/internal/config"
	"launchdeck/internal/store"

	"launchdeck/internal/api/handlers"
	"launchdeck/internal/api/middleware"
)

type Server struct {
	cfg      *config.Config
	users    *store.UserStore
	configDB *store.ConfigStore
	sessions *auth.SessionManager
	router   *gin.Engine
}

func New(cfg *config.Config, users *store.UserStore, configDB *store.ConfigStore, sessions *auth.SessionManager) *Server {
	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:      cfg,
		users:    users,
		configDB: configDB,
		sessions: sessions,
		router:   gin.New(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestLogger())
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.Metrics())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	// "Authorization" must be allowed so the frontend can send the session token
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	s.router.Use(cors.New(corsConfig))
}

func (s *Server) setupRoutes() {
	authHandler := handlers.NewAuthHandler(s.users, s.sessions, s.cfg.Auth.SessionTTLHours*3600)
	configHandler := handlers.NewConfigHandler(s.configDB, s.users)
	usersHandler := handlers.NewUsersHandler(s.users)

	// Health Check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "launchdeck"})
	})

	api := s.router.Group("/api")
	api.Use(middleware.Identify(s.sessions, s.users, s.cfg.Auth.LocalhostBypass))
	{
		// ==========================================
		// PUBLIC ROUTES (anonymous view allowed)
		// ==========================================
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/logout", authHandler.Logout)
		api.GET("/auth/whoami", authHandler.Whoami)

		// Reads are policy-filtered per caller; anonymous callers get the
		// settings block and empty lists.
		api.GET("/config", configHandler.GetConfig)
		api.GET("/services", configHandler.GetServices)
		api.GET("/settings", configHandler.GetSettings)

		// ==========================================
		// AUTHENTICATED ROUTES
		// ==========================================
		user := api.Group("/")
		user.Use(middleware.RequireUser())
		{
			user.GET("/auth/profile", authHandler.GetProfile)
			user.PUT("/auth/profile", authHandler.UpdateProfile)
			user.POST("/auth/password", authHandler.ChangePassword)
		}

		// ==========================================
		// ADMIN ROUTES (admin role or loopback bypass)
		// ==========================================
		admin := api.Group("/")
		admin.Use(middleware.RequireAdmin(s.users))
		{
			admin.POST("/config", configHandler.ReplaceConfig)
			admin.POST("/services", configHandler.ReplaceServices)
			admin.POST("/settings", configHandler.ReplaceSettings)

			admin.GET("/csv/content", configHandler.CSVContent)
			admin.GET("/csv/generate", configHandler.CSVGenerate)

			admin.GET("/backups", configHandler.ListBackups)
			admin.POST("/backups/:id/restore", configHandler.RestoreBackup)

			admin.GET("/users", usersHandler.ListUsers)
			admin.POST("/users", usersHandler.UpsertUser)
			admin.DELETE("/users/:username", usersHandler.DeleteUser)

			admin.GET("/roles", usersHandler.ListRoles)
			admin.POST("/roles", usersHandler.UpsertRole)
			admin.DELETE("/roles/:name", usersHandler.DeleteRole)
		}
	}
}

// Router exposes the gin engine; tests drive it directly.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start runs the server on the configured address
func (s *Server) Start(addr string) error {
	return s.router.Run(addr)
}
