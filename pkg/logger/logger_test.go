package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hieplh/ata-sample-webapp/config"
)

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(&config.LogConfig{Level: "verbose", Format: "json"})
	assert.Error(t, err)
}

func TestNewLogger_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := NewLogger(&config.LogConfig{
		Level:     "info",
		Format:    "console",
		File:      path,
		MaxSizeMB: 1,
	})
	require.NoError(t, err)

	log.Info("启动完成")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "启动完成")
}
