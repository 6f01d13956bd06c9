package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "mongo", cfg.Storage.Driver)
	assert.Equal(t, "civicreport", cfg.Mongo.Database)
	assert.Equal(t, 72*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.Issues.DailyLimit)
	assert.False(t, cfg.Issues.StrictTransitions)
	assert.Equal(t, "issue_limit", cfg.Redis.QueuePrefix)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ISSUE_STRICT_TRANSITIONS", "true")
	t.Setenv("GO_ENV", "production")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Issues.StrictTransitions)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.Origins())
}

func TestLoad_MissingSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_YAMLFile(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: memory\nissues:\n  daily_limit: 3\n"), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 3, cfg.Issues.DailyLimit)
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:  ServerConfig{Port: 8080},
			Storage: StorageConfig{Driver: "mongo"},
			Mongo:   MongoConfig{URI: "mongodb://localhost"},
			Auth:    AuthConfig{JWTSecret: "0123456789abcdef"},
			Log:     LogConfig{Format: "json"},
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Mongo.URI = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Mongo.URI = ""
	cfg.Storage.Driver = "memory"
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Storage.Driver = "postgres"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Auth.JWTSecret = "short"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Log.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", slog.String("issue_id", "abc"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "abc", entry["issue_id"])
	assert.Equal(t, "WARN", entry["level"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, parseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}
