package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading with Viper.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Load loads configuration with proper precedence:
// defaults < config file < env vars
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Set up Viper
	l.setupViper(cfg)

	// Load config file
	if err := l.loadConfigFile(); err != nil {
		// Config file is optional, only error if explicitly specified
		if l.configFile != "" {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand ~ in paths
	expandPaths(cfg)

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// expandTilde expands ~ to the user's home directory.
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// expandPaths expands ~ in all path-related config fields.
func expandPaths(cfg *Config) {
	cfg.Global.DataDir = expandTilde(cfg.Global.DataDir)
	cfg.Global.ConfigDir = expandTilde(cfg.Global.ConfigDir)
	cfg.Cache.Path = expandTilde(cfg.Cache.Path)
	cfg.Logging.File = expandTilde(cfg.Logging.File)
}

// setupViper configures Viper with defaults and environment bindings.
func (l *Loader) setupViper(cfg *Config) {
	v := l.v

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		v.AddConfigPath(filepath.Join(xdgConfig, "gigtalk"))
	}

	homeDir, _ := os.UserHomeDir()
	if homeDir != "" {
		v.AddConfigPath(filepath.Join(homeDir, ".config", "gigtalk"))
	}

	// Current directory
	v.AddConfigPath(".")

	// Environment variables - GIGTALK_ prefix
	v.SetEnvPrefix("GIGTALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	l.setDefaults(cfg)

	// Explicitly bind environment variables (Viper's Unmarshal has issues without this)
	bindEnvVars(v)

	// AutomaticEnv for any keys not explicitly bound
	v.AutomaticEnv()
}

// setDefaults sets all default values in Viper.
func (l *Loader) setDefaults(cfg *Config) {
	v := l.v

	// Global
	v.SetDefault("global.data_dir", cfg.Global.DataDir)
	v.SetDefault("global.config_dir", cfg.Global.ConfigDir)

	// API
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.token", cfg.API.Token)
	v.SetDefault("api.timeout", cfg.API.Timeout)

	// Sync
	v.SetDefault("sync.poll_interval", cfg.Sync.PollInterval)
	v.SetDefault("sync.scroll_epsilon", cfg.Sync.ScrollEpsilon)

	// Assistant
	v.SetDefault("assistant.name", cfg.Assistant.Name)
	v.SetDefault("assistant.keywords", cfg.Assistant.Keywords)
	v.SetDefault("assistant.keyword_probability", cfg.Assistant.KeywordProbability)
	v.SetDefault("assistant.ambient_probability", cfg.Assistant.AmbientProbability)
	v.SetDefault("assistant.min_delay", cfg.Assistant.MinDelay)
	v.SetDefault("assistant.max_delay", cfg.Assistant.MaxDelay)

	// Cache
	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("cache.busy_timeout_ms", cfg.Cache.BusyTimeoutMs)

	// Logging
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.enable_caller", cfg.Logging.EnableCaller)

	// TUI
	v.SetDefault("tui.theme", cfg.TUI.Theme)
	v.SetDefault("tui.show_timestamps", cfg.TUI.ShowTimestamps)
	v.SetDefault("tui.typing_indicator_timeout", cfg.TUI.TypingIndicatorTimeout)
}

// loadConfigFile attempts to load the configuration file.
func (l *Loader) loadConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use defaults
			return nil
		}
		return err
	}

	return nil
}

// ConfigFileUsed returns the config file that was loaded.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// bindEnvVars binds environment variables for config keys.
// Viper's Unmarshal has issues with env vars on nested structs unless explicitly bound.
func bindEnvVars(v *viper.Viper) {
	envBindings := []string{
		// Global
		"global.data_dir",
		"global.config_dir",
		// API
		"api.base_url",
		"api.token",
		"api.timeout",
		// Sync
		"sync.poll_interval",
		"sync.scroll_epsilon",
		// Assistant
		"assistant.name",
		"assistant.keyword_probability",
		"assistant.ambient_probability",
		"assistant.min_delay",
		"assistant.max_delay",
		// Cache
		"cache.path",
		"cache.busy_timeout_ms",
		// Logging
		"logging.level",
		"logging.format",
		"logging.file",
		"logging.enable_caller",
		// TUI
		"tui.theme",
		"tui.show_timestamps",
		"tui.typing_indicator_timeout",
	}

	for _, key := range envBindings {
		// Convert key to env var format: api.base_url -> GIGTALK_API_BASE_URL
		envVar := "GIGTALK_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, envVar)
	}
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

// LoadDefault loads configuration with default search paths.
func LoadDefault() (*Config, error) {
	loader := NewLoader()
	return loader.Load()
}
