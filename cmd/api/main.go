package main

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"launchdeck/internal/auth"
	"launchdeck/internal/config"
	"launchdeck/internal/storage"
	"launchdeck/internal/store"

	// Use an alias to prevent naming collisions with the 'server' variable
	apiserver "launchdeck/internal/api/server"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Launchdeck API Server...")

	// 1. Setup Configuration
	cfg := config.Load()

	// 2. Backup Storage
	var backups *storage.Client
	if cfg.Files.BackupsEnabled {
		backups = storage.New(cfg)
	}

	// 3. Open the flat-file stores (seeds a default admin on first run)
	users, err := store.OpenUserStore(cfg.Files.UsersPath, cfg.Auth.BcryptCost, store.PasswordPolicy{
		MinLength:  cfg.Auth.PasswordMinLength,
		MinClasses: cfg.Auth.PasswordMinClasses,
	})
	if err != nil {
		log.Fatalf("Opening user store: %v", err)
	}

	configStore, err := store.OpenConfigStore(cfg.Files.ConfigPath, backups)
	if err != nil {
		log.Fatalf("Opening config store: %v", err)
	}

	// 4. Sessions
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = auth.GenerateSecret()
		log.Println("Warning: no auth.jwt_secret configured; generated one. Sessions will not survive a restart.")
	}
	sessions := auth.NewSessionManager(
		[]byte(secret),
		time.Duration(cfg.Auth.SessionTTLHours)*time.Hour,
		users,
	)

	// 5. Setup Metrics
	go func() {
		http.Handle("/_metrics", promhttp.Handler())
		log.Printf("Metrics exposed at http://localhost%s/_metrics", cfg.Server.MetricsPort)
		if err := http.ListenAndServe(cfg.Server.MetricsPort, nil); err != nil {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	// 6. Start Server
	srv := apiserver.New(cfg, users, configStore, sessions)

	log.Printf("API Server starting on %s", cfg.Server.ListenAddr)
	if cfg.Auth.LocalhostBypass {
		log.Println("Note: localhost admin bypass is enabled (auth.localhost_bypass)")
	}

	if err := srv.Start(cfg.Server.ListenAddr); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
