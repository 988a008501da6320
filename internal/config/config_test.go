package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, [2]float64{5, 40}, cfg.StageBounds["fetch"])
}

func TestApplyFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingester.yaml")
	body := []byte("heartbeat_interval_seconds: 30\nstages:\n  fetch: [10, 50]\nchunk_size: 2000\n")
	require.NoError(t, os.WriteFile(path, body, 0o644))

	cfg := Load()
	require.NoError(t, cfg.applyFile(path))

	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, [2]float64{10, 50}, cfg.StageBounds["fetch"])
	assert.Equal(t, [2]float64{40, 70}, cfg.StageBounds["process"])
	assert.Equal(t, 2000, cfg.ChunkSize)
}

func TestApplyFileRejectsInvertedBand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingester.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stages:\n  fetch: [50, 10]\n"), 0o644))

	cfg := Load()
	assert.Error(t, cfg.applyFile(path))
}
