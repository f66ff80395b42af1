package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// inDir runs the test from an empty working directory so no stray relay.yaml is picked up.
func inDir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	inDir(t, t.TempDir())

	cfg, err := Load(quietLogger(), "relay")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, ":8080", cfg.HTTP.Addr())
	assert.Equal(t, "./public", cfg.HTTP.StaticDir)
	assert.Equal(t, "/healthz", cfg.HTTP.HealthPath)
	assert.Equal(t, 30*time.Second, cfg.WS.PingInterval)
	assert.Equal(t, 5*time.Second, cfg.WS.WriteTimeout)
	assert.Equal(t, 32, cfg.WS.OutboxSize)
	assert.Equal(t, 4, cfg.Lobby.CodeLength)
	assert.Equal(t, "map_default", cfg.Lobby.DefaultMap)
	assert.False(t, cfg.Relay.LegacyGameAction)
	assert.Equal(t, 256, cfg.Relay.InboxSize)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, "relay_commands", cfg.Redis.Queue)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.Empty(t, cfg.Archive.DatabaseURL)
	assert.Equal(t, 20, cfg.Archive.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Archive.FlushInterval)
}

func TestLoadEnvOverrides(t *testing.T) {
	inDir(t, t.TempDir())
	t.Setenv("RELAY_LOBBY_DEFAULTMAP", "canyon")
	t.Setenv("RELAY_RELAY_LEGACYGAMEACTION", "true")
	t.Setenv("RELAY_WS_PINGINTERVAL", "10s")
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://relay@localhost/relay")
	t.Setenv("RELAY_AUTH_JWTSECRET", "s3cret")

	cfg, err := Load(quietLogger(), "relay")
	require.NoError(t, err)
	assert.Equal(t, "canyon", cfg.Lobby.DefaultMap)
	assert.True(t, cfg.Relay.LegacyGameAction)
	assert.Equal(t, 10*time.Second, cfg.WS.PingInterval)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "postgres://relay@localhost/relay", cfg.Archive.DatabaseURL)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)

	t.Setenv("RELAY_HTTP_PORT", "7070")
	cfg, err = Load(quietLogger(), "relay")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.HTTP.Port, "prefixed variable wins over PORT")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	inDir(t, dir)
	yaml := "lobby:\n  codeLength: 6\nredis:\n  addr: localhost:6379\n  queue: audit\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "relay.yaml"), []byte(yaml), 0o600))

	cfg, err := Load(quietLogger(), "relay")
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Lobby.CodeLength)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "audit", cfg.Redis.Queue)
}

func TestLoadRejectsBadValues(t *testing.T) {
	inDir(t, t.TempDir())
	t.Setenv("RELAY_LOBBY_CODELENGTH", "0")

	_, err := Load(quietLogger(), "relay")
	assert.Error(t, err)
}

func TestLogApply(t *testing.T) {
	logger := quietLogger()

	require.NoError(t, LogConfig{Level: "debug", Format: "json"}.Apply(logger))
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	assert.Error(t, LogConfig{Level: "loud"}.Apply(logger))
	assert.Error(t, LogConfig{Level: "info", Format: "xml"}.Apply(logger))
}
