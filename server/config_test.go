package server

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "tcp", cfg.Network)
	assert.Equal(t, 1024, cfg.ReadBufferSize)
	assert.Equal(t, 10*time.Millisecond, cfg.PollTimeout)
	assert.True(t, cfg.ReusePort)
	assert.Zero(t, cfg.IdleTimeout)
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{Port: 0, ReadBufferSize: 4096, MaxPending: 1 << 20}.withDefaults()
	assert.Equal(t, 0, cfg.Port)
	assert.Equal(t, 4096, cfg.ReadBufferSize)
	assert.Equal(t, 1<<20, cfg.MaxPending)
	assert.Equal(t, "tcp", cfg.Network)
	assert.Equal(t, 128, cfg.Backlog)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown network", func(c *Config) { c.Network = "udp" }},
		{"negative port", func(c *Config) { c.Port = -1 }},
		{"port too large", func(c *Config) { c.Port = 65536 }},
		{"zero backlog", func(c *Config) { c.Backlog = 0 }},
		{"zero max events", func(c *Config) { c.MaxEvents = 0 }},
		{"negative poll timeout", func(c *Config) { c.PollTimeout = -time.Second }},
		{"sub-millisecond poll timeout", func(c *Config) { c.PollTimeout = 500 * time.Microsecond }},
		{"zero read buffer", func(c *Config) { c.ReadBufferSize = 0 }},
		{"pending smaller than read buffer", func(c *Config) { c.MaxPending = c.ReadBufferSize - 1 }},
		{"negative idle timeout", func(c *Config) { c.IdleTimeout = -time.Second }},
		{"negative socket buffer", func(c *Config) { c.SendBuffer = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func writeIni(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gecho.ini")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv(EnvPort, "")
	path := writeIni(t, `
[server]
host = 127.0.0.1
port = 5555
poll_timeout = 25ms
idle_timeout = 1m
read_buffer_size = 2048
reuse_port = false
`)
	cfg := DefaultConfig()
	require.NoError(t, LoadConfigFile(path, &cfg))
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 5555, cfg.Port)
	assert.Equal(t, 25*time.Millisecond, cfg.PollTimeout)
	assert.Equal(t, time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 2048, cfg.ReadBufferSize)
	assert.False(t, cfg.ReusePort)
	// 文件中缺省的键保持原值
	assert.Equal(t, "tcp", cfg.Network)
	assert.Equal(t, 64<<10, cfg.MaxPending)
}

func TestLoadConfigFileEnvOverride(t *testing.T) {
	path := writeIni(t, "[server]\nport = 5555\n")

	t.Setenv(EnvPort, "6000")
	cfg := DefaultConfig()
	require.NoError(t, LoadConfigFile(path, &cfg))
	assert.Equal(t, 6000, cfg.Port)

	t.Setenv(EnvPort, "not-a-port")
	cfg = DefaultConfig()
	assert.ErrorIs(t, LoadConfigFile(path, &cfg), ErrInvalidConfig)
}

func TestLoadConfigFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.ini"), &cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
