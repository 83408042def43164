package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
app:
  name: "possyncd"
  env: "test"
  log_level: "debug"
server:
  port: "9090"
mysql:
  dsn: "root:pwd@tcp(127.0.0.1:3306)/pos_sync"
redis:
  addr: "127.0.0.1:6379"
  db: 1
lmstfy:
  host: "127.0.0.1"
  port: 7777
  namespace: "pos-sync"
  token: "tok"
sync:
  event_channel: "custom_events"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "possyncd", cfg.App.Name)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.Equal(t, 7777, cfg.Lmstfy.Port)
	assert.Equal(t, "custom_events", cfg.Sync.EventChannel)

	// 未配置项回落默认值
	assert.Equal(t, "settlement_jobs", cfg.Sync.SettleQueue)
	assert.Equal(t, "settlement_complete", cfg.Sync.SettleCompleteChannel)

	require.NoError(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfigFile(t, `
mysql:
  dsn: "dsn"
redis:
  addr: "127.0.0.1:6379"
lmstfy:
  host: "127.0.0.1"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sync_events", cfg.Sync.EventChannel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.Validate())

	cfg.MySQL.DSN = "dsn"
	assert.Error(t, cfg.Validate())

	cfg.Redis.Addr = "127.0.0.1:6379"
	assert.Error(t, cfg.Validate())

	cfg.Lmstfy.Host = "127.0.0.1"
	assert.NoError(t, cfg.Validate())
}
