package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/permitdesk/licensing-backend/internal/config"
)

func TestSetupLevelAndFormat(t *testing.T) {
	t.Cleanup(func() { logrus.SetOutput(os.Stderr) })

	Setup("production", config.LogConfig{Level: "debug"})
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	_, isJSON := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)

	Setup("development", config.LogConfig{Level: "bogus"})
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
	_, isText := logrus.StandardLogger().Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
}

func TestSetupWritesRotatingFile(t *testing.T) {
	t.Cleanup(func() { logrus.SetOutput(os.Stderr) })

	path := filepath.Join(t.TempDir(), "app.log")
	Setup("development", config.LogConfig{Level: "info", File: path, MaxSizeMB: 1})

	logrus.Info("hello from the licensing backend")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the licensing backend")
}
