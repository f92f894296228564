package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vddownco/video-downloader-hls/pkg/config"
)

func TestNewConsoleLogger(t *testing.T) {
	logger, err := New(config.LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Debug("console logger works")
}

func TestNewFileLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, err := New(config.LogConfig{
		Level:   "info",
		Format:  "json",
		File:    logFile,
		MaxSize: 1,
	})
	require.NoError(t, err)

	logger.Info("file logger works")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "file logger works")
	assert.Contains(t, string(data), `"level":"info"`)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "verbose", Format: "console"})
	assert.Error(t, err)
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	level, err := parseLevel("")
	require.NoError(t, err)
	assert.Equal(t, "info", level.String())
}
