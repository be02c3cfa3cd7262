package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		ListenAddr  string `mapstructure:"listen_addr"`
		MetricsPort string `mapstructure:"metrics_port"`
		LogLevel    string `mapstructure:"log_level"`
	} `mapstructure:"server"`
	Auth struct {
		// JWTSecret signs session tokens. When empty a random secret is
		// generated at startup, which kills every outstanding session on
		// restart.
		JWTSecret       string `mapstructure:"jwt_secret"`
		SessionTTLHours int    `mapstructure:"session_ttl_hours"`
		BcryptCost      int    `mapstructure:"bcrypt_cost"`
		// LocalhostBypass grants admin rights to loopback callers with no
		// credential check. Convenience trade-off: anyone who can reach the
		// process from its own loopback interface is an admin.
		LocalhostBypass    bool `mapstructure:"localhost_bypass"`
		PasswordMinLength  int  `mapstructure:"password_min_length"`
		PasswordMinClasses int  `mapstructure:"password_min_classes"`
	} `mapstructure:"auth"`
	Files struct {
		ConfigPath     string `mapstructure:"config_path"`
		UsersPath      string `mapstructure:"users_path"`
		BackupDir      string `mapstructure:"backup_dir"`
		BackupsEnabled bool   `mapstructure:"backups_enabled"`
	} `mapstructure:"files"`
	Storage struct {
		Provider string `mapstructure:"provider"` // "local" or "s3"
		KeyID    string `mapstructure:"key_id"`
		AppKey   string `mapstructure:"app_key"`
		Endpoint string `mapstructure:"endpoint"`
		Region   string `mapstructure:"region"`
		Bucket   string `mapstructure:"bucket"`
	} `mapstructure:"storage"`
}

func Load() *Config {
	viper.SetEnvPrefix("DECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Register keys
	viper.BindEnv("server.listen_addr")
	viper.BindEnv("server.metrics_port")
	viper.BindEnv("server.log_level")

	viper.BindEnv("auth.jwt_secret")
	viper.BindEnv("auth.session_ttl_hours")
	viper.BindEnv("auth.bcrypt_cost")
	viper.BindEnv("auth.localhost_bypass")
	viper.BindEnv("auth.password_min_length")
	viper.BindEnv("auth.password_min_classes")

	viper.BindEnv("files.config_path")
	viper.BindEnv("files.users_path")
	viper.BindEnv("files.backup_dir")
	viper.BindEnv("files.backups_enabled")

	viper.BindEnv("storage.provider")
	viper.BindEnv("storage.key_id")
	viper.BindEnv("storage.app_key")
	viper.BindEnv("storage.endpoint")
	viper.BindEnv("storage.region")
	viper.BindEnv("storage.bucket")

	// Defaults
	viper.SetDefault("server.listen_addr", ":5555")
	viper.SetDefault("server.metrics_port", ":9091")
	viper.SetDefault("server.log_level", "info")

	viper.SetDefault("auth.session_ttl_hours", 720) // 30 days, sessions are long-lived by design
	viper.SetDefault("auth.bcrypt_cost", 10)
	viper.SetDefault("auth.localhost_bypass", true)
	viper.SetDefault("auth.password_min_length", 8)
	viper.SetDefault("auth.password_min_classes", 2)

	viper.SetDefault("files.config_path", "./data/config.yaml")
	viper.SetDefault("files.users_path", "./data/users.yaml")
	viper.SetDefault("files.backup_dir", "./data/backups")
	viper.SetDefault("files.backups_enabled", true)

	viper.SetDefault("storage.provider", "local")

	// "launchdeck.yaml" holds server settings; "config.yaml" is the
	// dashboard document itself, so the two must not share a name.
	viper.SetConfigName("launchdeck")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Config error: %s", err)
		} else {
			log.Println("Info: launchdeck.yaml not found, using Environment Variables only.")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}

	if cfg.Storage.Provider == "s3" && cfg.Storage.Bucket == "" {
		log.Fatal("Critical: storage.bucket is required with the s3 provider (DECK_STORAGE_BUCKET)")
	}

	return &cfg
}
