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
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9090"
pools:
  default:
    driver: pgx
    dsn: postgres://report@localhost/stats
    max_open_conns: 4
    conn_max_lifetime: 10m
  meta:
    driver: sqlite3
    dsn: ":memory:"
schedules:
  - name: nightly
    report: daily-users
    spec: "0 3 * * *"
    format: csv.gz
    params:
      app: x
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	require.Len(t, cfg.Pools, 2)
	assert.Equal(t, "pgx", cfg.Pools["default"].Driver)
	assert.Equal(t, 4, cfg.Pools["default"].MaxOpenConns)
	assert.Equal(t, 10*time.Minute, cfg.Pools["default"].ConnMaxLifetime)
	require.Len(t, cfg.Schedules, 1)
	assert.Equal(t, "daily-users", cfg.Schedules[0].Report)
	assert.Equal(t, "x", cfg.Schedules[0].Params["app"])
	assert.Equal(t, 50, cfg.Report.PageSize)
	assert.Equal(t, time.Hour, cfg.Storage.S3.PresignExpiration)
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("APP_SERVER_ADDRESS", ":7070")
	t.Setenv("APP_LOGGING_LEVEL", "debug")

	cfg, err := LoadFile(writeConfig(t, "server:\n  address: \":9090\"\n"))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFileInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown pool driver", "pools:\n  default:\n    driver: oracle\n    dsn: x\n"},
		{"pool without dsn", "pools:\n  default:\n    driver: pgx\n"},
		{"bad storage", "storage:\n  type: ftp\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"schedule without spec", "schedules:\n  - name: a\n    report: b\n"},
		{"bad schedule format", "schedules:\n  - name: a\n    report: b\n    spec: \"@daily\"\n    format: pdf\n"},
		{"duplicate schedules", "schedules:\n  - name: a\n    report: b\n    spec: \"@daily\"\n  - name: a\n    report: c\n    spec: \"@daily\"\n"},
		{"page size above max", "report:\n  page_size: 500\n  max_page_size: 100\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfigStringHidesSecrets(t *testing.T) {
	cfg := Config{DB: DB{Driver: "postgres", DSN: "postgres://user:secret@db/reports"}}
	cfg.Storage.S3.SecretKey = "s3-secret"

	s := cfg.String()
	assert.NotContains(t, s, "secret@db")
	assert.NotContains(t, s, "s3-secret")
}
