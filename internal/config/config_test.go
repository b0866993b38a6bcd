package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
env: dev
storage:
  dsn: storage/members.db
http_server:
  address: localhost:9000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "sqlite3", cfg.Storage.Driver)
	assert.Equal(t, "storage/members.db", cfg.Storage.DSN)
	assert.Equal(t, "localhost:9000", cfg.HTTPServer.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTPServer.ReadTimeout)
	assert.Equal(t, 500, cfg.Upload.BatchSize)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "MEMBERS", cfg.SMS.SenderID)
	assert.False(t, cfg.IEC.VerifyUploads)
}

func TestLoadReadsNestedSections(t *testing.T) {
	path := writeConfig(t, `
env: prod
storage:
  driver: mysql
  dsn: "user:pw@tcp(db:3306)/members"
redis:
  address: redis:6379
  ttl: 1h
iec:
  base_url: https://iec.example
  api_key: secret
  verify_uploads: true
upload:
  batch_size: 100
  report_dir: /var/reports
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Storage.Driver)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "https://iec.example", cfg.IEC.BaseURL)
	assert.True(t, cfg.IEC.VerifyUploads)
	assert.Equal(t, 100, cfg.Upload.BatchSize)
	assert.Equal(t, "/var/reports", cfg.Upload.ReportDir)
}

func TestLoadRejectsBadInput(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		path := writeConfig(t, "env: dev\nstorage:\n  driver: oracle\n  dsn: x\n")
		_, err := Load(path)
		assert.ErrorContains(t, err, "unsupported storage driver")
	})

	t.Run("missing required dsn", func(t *testing.T) {
		path := writeConfig(t, "env: dev\n")
		_, err := Load(path)
		assert.Error(t, err)
	})
}
