// Package cli implements the palmguard command-line interface using Cobra.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"palmguard/internal/config"
	"palmguard/internal/logging"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "palmguard",
	Short: "Disable the touchpad while you type",
	Long: `palmguard turns the touchpad off on the first keystroke and back on
after the keyboard has been idle for a while.

It controls the touchpad through the OS setting, the device manager or the
firmware hotkey, whichever works first on this machine.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is the platform config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// env is what every command needs: the loaded config and a logger
type env struct {
	mgr    *config.Manager
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

func (e *env) Close() error {
	return e.closer.Close()
}

// loadEnv loads the config and builds the logger. Short commands log to
// stderr only; stderr=false keeps the configured file as the only sink.
func loadEnv(stderr bool) (*env, error) {
	boot := slog.New(logging.NewHandler(os.Stderr, logging.Options{Level: logLevel}))

	mgr, err := config.NewManager(configPath, boot)
	if err != nil {
		return nil, err
	}
	if err := mgr.Load(); err != nil {
		return nil, err
	}
	cfg := mgr.Get()

	opts := logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Stderr: stderr,
	}
	if logLevel != "" {
		opts.Level = logLevel
	}
	logger, closer, err := logging.New(opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return &env{mgr: mgr, cfg: cfg, logger: logger, closer: closer}, nil
}
