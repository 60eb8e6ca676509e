package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 3*time.Second, cfg.Sync.PollInterval)
	require.Equal(t, 10, cfg.Sync.ScrollEpsilon)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.API.BaseURL = "" }},
		{"zero poll interval", func(c *Config) { c.Sync.PollInterval = 0 }},
		{"negative epsilon", func(c *Config) { c.Sync.ScrollEpsilon = -1 }},
		{"ambient probability above one", func(c *Config) { c.Assistant.AmbientProbability = 1.5 }},
		{"max delay below min delay", func(c *Config) {
			c.Assistant.MinDelay = 5 * time.Second
			c.Assistant.MaxDelay = time.Second
		}},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoader_FileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://api.giglink.example
sync:
  poll_interval: 7s
assistant:
  name: botti
`), 0o644))

	t.Setenv("GIGTALK_API_TOKEN", "from-env")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "https://api.giglink.example", cfg.API.BaseURL)
	require.Equal(t, 7*time.Second, cfg.Sync.PollInterval)
	require.Equal(t, "botti", cfg.Assistant.Name)
	require.Equal(t, "from-env", cfg.API.Token)
	// Untouched keys keep defaults.
	require.Equal(t, 10, cfg.Sync.ScrollEpsilon)
}

func TestLoader_MissingExplicitFileFails(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
