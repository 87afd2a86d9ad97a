package cli

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/fetcher/internal/core/config"
	"github.com/vietddude/fetcher/internal/core/executor"
)

type rootOptions struct {
	cfgPath string
	isDebug bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "fetcher",
		Short:         "Fetcher service",
		Long:          `Fetcher calls remote HTTP endpoints with bounded retries and per-attempt timeouts, and stores what they return.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.PersistentFlags().StringVar(&opts.cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	root.PersistentFlags().BoolVar(&opts.isDebug, "debug", false, "enable debug logging")

	root.AddCommand(
		newFetchCmd(opts),
		newServeCmd(opts),
		newMigrateCmd(opts),
		newItemsCmd(opts),
		newStatusCmd(opts),
	)
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(exitCode(err))
	}
}

// usageError marks bad arguments or flags.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// exitCode is 2 for invalid input and 1 for every other failure.
func exitCode(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ue),
		errors.Is(err, executor.ErrInvalidLocator),
		errors.Is(err, executor.ErrNilObserver),
		errors.Is(err, executor.ErrInvalidRetries),
		errors.Is(err, executor.ErrInvalidTimeout):
		return 2
	default:
		return 1
	}
}

// loadConfig reads the config file and installs the logger. A missing
// default config file means built-in defaults.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	_ = godotenv.Load()

	var cfg *config.AppConfig
	if _, statErr := os.Stat(o.cfgPath); statErr != nil && !cmd.Flags().Changed("config") {
		cfg = config.Default()
	} else {
		var err error
		cfg, err = config.Load(o.cfgPath)
		if err != nil {
			stylelog.InitDefault()
			return nil, err
		}
	}

	setupLogging(cfg.Logging, o.isDebug)
	return cfg, nil
}

func setupLogging(cfg config.LoggingConfig, debug bool) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if debug {
		level = slog.LevelDebug
	}

	if cfg.Format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return
	}

	stylelog.InitDefault(&tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
}
