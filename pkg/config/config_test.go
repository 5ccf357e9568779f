package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  address: 127.0.0.1
  port: 9090
storage:
  db_path: /tmp/chatd-test
security:
  cors:
    allowed_origins: ["https://app.example.com"]
  rate_limit:
    rps: 25
    burst: 50
  api_keys:
    backend: ["bk1"]
    frontend: ["fk1", "fk2"]
realtime:
  send_buffer: 256
  ping_interval_sec: 15
limits:
  max_text_bytes: 4096
sweeper:
  enabled: true
  cron: "0 3 * * *"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9090", cfg.Addr())
	require.Equal(t, "/tmp/chatd-test", cfg.Storage.DBPath)
	require.Equal(t, []string{"https://app.example.com"}, cfg.Security.CORS.AllowedOrigins)
	require.Equal(t, 25.0, cfg.Security.RateLimit.RPS)
	require.Equal(t, []string{"fk1", "fk2"}, cfg.Security.APIKeys.Frontend)
	require.Equal(t, 256, cfg.Realtime.SendBuffer)
	require.Equal(t, 4096, cfg.Limits.MaxTextBytes)
	require.True(t, cfg.Sweeper.Enabled)
}

func TestAddrDefaults(t *testing.T) {
	var cfg Config
	require.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CHATD_ADDR", "0.0.0.0:7070")
	t.Setenv("CHATD_DB_PATH", "/tmp/env-db")
	t.Setenv("CHATD_API_BACKEND_KEYS", "bk1, bk2")
	t.Setenv("CHATD_API_FRONTEND_KEYS", "fk1")
	t.Setenv("CHATD_SWEEPER_CRON", "*/5 * * * *")

	var cfg Config
	signingKeys, envUsed := LoadEnvOverrides(&cfg)
	require.True(t, envUsed)
	require.Equal(t, "0.0.0.0:7070", cfg.Addr())
	require.Equal(t, "/tmp/env-db", cfg.Storage.DBPath)
	require.Equal(t, []string{"bk1", "bk2"}, cfg.Security.APIKeys.Backend)
	require.True(t, cfg.Sweeper.Enabled)
	require.Equal(t, "*/5 * * * *", cfg.Sweeper.Cron)

	// signing keys mirror the backend keys
	require.Len(t, signingKeys, 2)
	_, ok := signingKeys["bk1"]
	require.True(t, ok)
}

func TestGetSigningKeys(t *testing.T) {
	SetRuntime(&RuntimeConfig{SigningKeys: map[string]struct{}{"sk": {}}})
	t.Cleanup(func() { SetRuntime(nil) })

	keys := GetSigningKeys()
	require.Len(t, keys, 1)
	_, ok := keys["sk"]
	require.True(t, ok)

	// the returned map is a copy
	keys["other"] = struct{}{}
	require.Len(t, GetSigningKeys(), 1)
}
