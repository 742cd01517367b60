package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"jwt_secret": "s",
		"port": 8080,
		"database": {"driver": "SQLite", "dsn": "file:share.db"},
		"share": {"url_prefix": "/s"}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "/s/", cfg.Share.URLPrefix)
	require.Equal(t, 3650, cfg.Share.MaxExpiresInDays)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, 1024, cfg.AuthorityCache.Size)
	require.EqualValues(t, 30, cfg.AuthorityCache.TTLSeconds)
	require.Equal(t, "30 3 * * *", cfg.Retention.Cron)
	require.Zero(t, cfg.Retention.KeepDays)
	require.EqualValues(t, defaultPublicRateLimitMs, cfg.PublicRateLimitMs)
}

func TestLoadKeepsExplicitRateLimit(t *testing.T) {
	path := writeConfig(t, `{"jwt_secret": "s", "port": 1, "database": {"host": "db"}, "public_rate_limit_ms": -1}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.EqualValues(t, -1, cfg.PublicRateLimitMs)

	path = writeConfig(t, `{"jwt_secret": "s", "port": 1, "database": {"host": "db"}, "public_rate_limit_ms": 250}`)
	cfg, err = Load(path)
	require.NoError(t, err)
	require.EqualValues(t, 250, cfg.PublicRateLimitMs)
}

func TestLoadPostgresDefaults(t *testing.T) {
	path := writeConfig(t, `{"jwt_secret": "s", "port": 1, "database": {"host": "db"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, "/share/gantt/", cfg.Share.URLPrefix)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing secret":   `{"port": 1, "database": {"host": "db"}}`,
		"missing port":     `{"jwt_secret": "s", "database": {"host": "db"}}`,
		"unknown driver":   `{"jwt_secret": "s", "port": 1, "database": {"driver": "mysql", "dsn": "x"}}`,
		"sqlite no dsn":    `{"jwt_secret": "s", "port": 1, "database": {"driver": "sqlite"}}`,
		"postgres no host": `{"jwt_secret": "s", "port": 1}`,
		"negative keep":    `{"jwt_secret": "s", "port": 1, "database": {"host": "db"}, "retention": {"keep_days": -1}}`,
		"malformed":        `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
