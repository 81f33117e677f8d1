package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/meshadapt/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsAndOverrides(t *testing.T) {
	cfg, err := loadConfig("ex.config.toml")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Ranks)
	assert.Equal(t, 12, cfg.NX)
	assert.Equal(t, 4, cfg.NY)
	assert.Equal(t, 2, cfg.Moves)
	assert.Equal(t, transport.CompressionZSTD, cfg.Compression)
	assert.Equal(t, 20, cfg.HilbertDepth)
	assert.True(t, cfg.AutoRenumber)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"UnknownKey", "rankz = 2\n"},
		{"Compression", "compression = \"gzip\"\n"},
		{"Timeout", "timeout = \"soon\"\n"},
		{"LogLevel", "log_level = \"loud\"\n"},
		{"Ranks", "ranks = 0\n"},
		{"Grid", "nx = 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "meshsim.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))
			_, err := loadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestRun_ExampleConfig(t *testing.T) {
	require.NoError(t, run("ex.config.toml"))
}
