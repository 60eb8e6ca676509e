// Package config handles gigtalk configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration structure for gigtalk.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// API settings for the marketplace backend
	API APIConfig `yaml:"api" mapstructure:"api"`

	// Sync settings for the message stream synchronizer
	Sync SyncConfig `yaml:"sync" mapstructure:"sync"`

	// Assistant settings for autonomous group participation
	Assistant AssistantConfig `yaml:"assistant" mapstructure:"assistant"`

	// Cache settings for the local sqlite mirror
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// GlobalConfig contains global gigtalk settings.
type GlobalConfig struct {
	// DataDir is where gigtalk stores its data (default: ~/.local/share/gigtalk).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/gigtalk).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// APIConfig contains marketplace backend settings.
type APIConfig struct {
	// BaseURL is the marketplace API root, e.g. https://api.giglink.example.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Token is the bearer token used for authenticated calls.
	Token string `yaml:"token" mapstructure:"token"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SyncConfig contains message polling settings.
type SyncConfig struct {
	// PollInterval is the fixed interval between message fetches.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`

	// ScrollEpsilon is the pixel tolerance for the at-bottom classification.
	ScrollEpsilon int `yaml:"scroll_epsilon" mapstructure:"scroll_epsilon"`
}

// AssistantConfig contains autonomous participation settings.
type AssistantConfig struct {
	// Name is the assistant's display name, used for mention detection.
	Name string `yaml:"name" mapstructure:"name"`

	// Keywords trigger a high-likelihood response when present in a message.
	Keywords []string `yaml:"keywords" mapstructure:"keywords"`

	// KeywordProbability is the chance of responding to a keyword match.
	KeywordProbability float64 `yaml:"keyword_probability" mapstructure:"keyword_probability"`

	// AmbientProbability is the background chance of responding unprompted.
	AmbientProbability float64 `yaml:"ambient_probability" mapstructure:"ambient_probability"`

	// MinDelay and MaxDelay bound the randomized response delay.
	MinDelay time.Duration `yaml:"min_delay" mapstructure:"min_delay"`
	MaxDelay time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
}

// CacheConfig contains local cache settings.
type CacheConfig struct {
	// Path is the sqlite cache file path. Empty disables the cache.
	Path string `yaml:"path" mapstructure:"path"`

	// BusyTimeoutMs is how long to wait for a locked database (milliseconds).
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TUIConfig contains chat surface settings.
type TUIConfig struct {
	// Theme selects the color theme.
	Theme string `yaml:"theme" mapstructure:"theme"`

	// ShowTimestamps renders message timestamps in the timeline.
	ShowTimestamps bool `yaml:"show_timestamps" mapstructure:"show_timestamps"`

	// TypingIndicatorTimeout is how long the typing indicator stays visible.
	TypingIndicatorTimeout time.Duration `yaml:"typing_indicator_timeout" mapstructure:"typing_indicator_timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dataDir := defaultDataDir()
	configDir := defaultConfigDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   dataDir,
			ConfigDir: configDir,
		},
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 10 * time.Second,
		},
		Sync: SyncConfig{
			PollInterval:  3 * time.Second,
			ScrollEpsilon: 10,
		},
		Assistant: AssistantConfig{
			Name:               "giggy",
			Keywords:           []string{"help", "recommend", "suggest", "price", "deadline"},
			KeywordProbability: 0.8,
			AmbientProbability: 0.05,
			MinDelay:           2 * time.Second,
			MaxDelay:           8 * time.Second,
		},
		Cache: CacheConfig{
			Path:          filepath.Join(dataDir, "cache.db"),
			BusyTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		TUI: TUIConfig{
			Theme:                  "default",
			ShowTimestamps:         true,
			TypingIndicatorTimeout: 4 * time.Second,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("sync.poll_interval must be positive")
	}
	if c.Sync.ScrollEpsilon < 0 {
		return fmt.Errorf("sync.scroll_epsilon must not be negative")
	}
	if c.Assistant.AmbientProbability < 0 || c.Assistant.AmbientProbability > 1 {
		return fmt.Errorf("assistant.ambient_probability must be in [0,1]")
	}
	if c.Assistant.KeywordProbability < 0 || c.Assistant.KeywordProbability > 1 {
		return fmt.Errorf("assistant.keyword_probability must be in [0,1]")
	}
	if c.Assistant.MinDelay < 0 || c.Assistant.MaxDelay < c.Assistant.MinDelay {
		return fmt.Errorf("assistant delay bounds invalid: min=%s max=%s", c.Assistant.MinDelay, c.Assistant.MaxDelay)
	}
	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", c.Logging.Format)
	}
	return nil
}

// StateFilePath returns the persisted TUI-state file location.
func (c *Config) StateFilePath() string {
	return filepath.Join(c.Global.DataDir, "chat-state.json")
}

// SessionFilePath returns the persisted session file location.
func (c *Config) SessionFilePath() string {
	return filepath.Join(c.Global.ConfigDir, "session.yaml")
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "gigtalk")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "gigtalk")
}

func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gigtalk")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gigtalk")
}
