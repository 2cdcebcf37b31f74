package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"tokenwatch/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// go test -v --run TestBuild
func TestBuild(t *testing.T) {
	var buf bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "market_analysis.log")

	log, err := build(config.LogConfig{Level: "info", Format: "json", OutputFile: logFile}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("snapshot appended", zap.String("symbol", "SOL"))
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "snapshot appended", entry["msg"])
	assert.Equal(t, "SOL", entry["symbol"])

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"symbol":"SOL"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestBuildInvalidLevel(t *testing.T) {
	_, err := build(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid log level")
}
