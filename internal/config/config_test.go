package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.ListenAddr != ":5555" {
		t.Errorf("ListenAddr = %q, want :5555", cfg.Server.ListenAddr)
	}
	if !cfg.Auth.LocalhostBypass {
		t.Error("LocalhostBypass should default to true")
	}
	if cfg.Auth.SessionTTLHours != 720 {
		t.Errorf("SessionTTLHours = %d, want 720", cfg.Auth.SessionTTLHours)
	}
	if cfg.Storage.Provider != "local" {
		t.Errorf("Storage.Provider = %q, want local", cfg.Storage.Provider)
	}
	if !cfg.Files.BackupsEnabled {
		t.Error("BackupsEnabled should default to true")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DECK_SERVER_LISTEN_ADDR", ":8088")
	t.Setenv("DECK_AUTH_LOCALHOST_BYPASS", "false")
	t.Setenv("DECK_FILES_CONFIG_PATH", "/srv/deck/config.yaml")

	cfg := Load()

	if cfg.Server.ListenAddr != ":8088" {
		t.Errorf("ListenAddr = %q, want :8088", cfg.Server.ListenAddr)
	}
	if cfg.Auth.LocalhostBypass {
		t.Error("LocalhostBypass should be disabled via env")
	}
	if cfg.Files.ConfigPath != "/srv/deck/config.yaml" {
		t.Errorf("ConfigPath = %q", cfg.Files.ConfigPath)
	}
}
