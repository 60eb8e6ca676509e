// Package cli implements the gigtalk command tree. Invoked with no
// subcommand it launches the chat TUI; subcommands cover one-shot flows
// scripts can drive.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gigtalk/gigtalk/internal/api"
	"github.com/gigtalk/gigtalk/internal/cache"
	"github.com/gigtalk/gigtalk/internal/chatui"
	"github.com/gigtalk/gigtalk/internal/config"
	"github.com/gigtalk/gigtalk/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	cfg     *config.Config
	session *config.Session
	store   *config.SessionStore
)

var rootCmd = &cobra.Command{
	Use:   "gigtalk",
	Short: "Terminal chat client for the GigLink marketplace",
	Long: `gigtalk is a terminal client for GigLink conversations.

Run it without arguments to open the chat surface. Messages that look like
commands ("show my orders", "set hourly rate to 50") are executed against
the marketplace; everything else is sent as chat.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initRuntime()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cacheStore := openCache()
		if cacheStore != nil {
			defer cacheStore.Close()
		}
		defer saveSession()

		return chatui.Run(chatui.Deps{
			Config:  cfg,
			Session: session,
			Client:  api.NewClient(cfg.API),
			Cache:   cacheStore,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
}

// Execute runs the command tree.
func Execute(version string) error {
	rootCmd.Version = version
	return rootCmd.Execute()
}

func initRuntime() error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFromFile(cfgFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logCfg := logging.Config{
		Level:  level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logCfg.Output = f
	}
	logging.Init(logCfg)

	store = config.NewSessionStore(cfg.SessionFilePath())
	session, err = store.Load()
	if err != nil {
		// A corrupt session file should not block the client.
		lg := logging.Component("cli")
		lg.Warn().Err(err).Msg("session load failed, starting fresh")
		session = &config.Session{}
	}
	return nil
}

func saveSession() {
	if store == nil || session == nil {
		return
	}
	if err := store.Save(session); err != nil {
		lg := logging.Component("cli")
		lg.Warn().Err(err).Msg("session save failed")
	}
}

// openCache opens the local message cache; failures degrade to memory-only.
func openCache() *cache.Store {
	if cfg.Cache.Path == "" {
		return nil
	}
	cacheStore, err := cache.Open(cfg.Cache)
	if err != nil {
		lg := logging.Component("cli")
		lg.Warn().Err(err).Msg("cache unavailable, running memory-only")
		return nil
	}
	return cacheStore
}

func newClient() *api.Client {
	return api.NewClient(cfg.API)
}

func requireToken() error {
	if strings.TrimSpace(cfg.API.Token) == "" {
		return fmt.Errorf("no API token configured: set api.token in the config file or GIGTALK_API_TOKEN")
	}
	return nil
}
