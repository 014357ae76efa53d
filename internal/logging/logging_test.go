package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlreport/internal/config"
)

func TestNewLevelAndFormat(t *testing.T) {
	logger := New(config.Logging{Level: "debug", Format: "json"})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = New(config.Logging{Level: "nonsense"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlreport.log")
	logger := New(config.Logging{Level: "info", File: path, MaxSizeMB: 1})

	logger.WithField("report", "daily-users").Info("report built")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "report built")
	assert.Contains(t, string(data), "daily-users")
}
