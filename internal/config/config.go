package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

const defaultPublicRateLimitMs = 1000

type Config struct {
	Database          DatabaseConfig       `json:"database"`
	JWTSecret         string               `json:"jwt_secret"`
	Port              int                  `json:"port"`
	LogConfig         logger.LogConfig     `json:"log_config"`
	Share             ShareConfig          `json:"share"`
	PublicRateLimitMs int64                `json:"public_rate_limit_ms"`
	CORSAllowlist     []string             `json:"cors_allowlist"`
	AuthorityCache    AuthorityCacheConfig `json:"authority_cache"`
	Retention         RetentionConfig      `json:"retention"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"`
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type ShareConfig struct {
	URLPrefix        string `json:"url_prefix"`
	MaxExpiresInDays int    `json:"max_expires_in_days"`
}

type AuthorityCacheConfig struct {
	Size       int   `json:"size"`
	TTLSeconds int64 `json:"ttl_seconds"`
}

// RetentionConfig controls hard deletion of revoked or expired links.
// KeepDays == 0 disables the job.
type RetentionConfig struct {
	Cron     string `json:"cron"`
	KeepDays int    `json:"keep_days"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.DSN == "" && cfg.Database.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required for postgres")
		}
		if cfg.Database.Port == 0 {
			cfg.Database.Port = 5432
		}
	case "sqlite":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite")
	}
	if cfg.Share.URLPrefix == "" {
		cfg.Share.URLPrefix = "/share/gantt/"
	}
	if !strings.HasSuffix(cfg.Share.URLPrefix, "/") {
		cfg.Share.URLPrefix += "/"
	}
	if cfg.Share.MaxExpiresInDays < 0 {
		return fmt.Errorf("share.max_expires_in_days must not be negative")
	}
	if cfg.Share.MaxExpiresInDays == 0 {
		cfg.Share.MaxExpiresInDays = 3650
	}
	// A negative window turns the visitor rate limit off.
	if cfg.PublicRateLimitMs == 0 {
		cfg.PublicRateLimitMs = defaultPublicRateLimitMs
	}
	if cfg.AuthorityCache.Size == 0 {
		cfg.AuthorityCache.Size = 1024
	}
	if cfg.AuthorityCache.TTLSeconds == 0 {
		cfg.AuthorityCache.TTLSeconds = 30
	}
	if cfg.Retention.KeepDays < 0 {
		return fmt.Errorf("retention.keep_days must not be negative")
	}
	if cfg.Retention.Cron == "" {
		cfg.Retention.Cron = "30 3 * * *"
	}
	return nil
}
