package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/fetcher/internal/control"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled jobs and the health server",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := control.NewApp(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize fetcher: %w", err)
			}

			if err := app.Start(ctx); err != nil {
				return fmt.Errorf("failed to start fetcher: %w", err)
			}

			slog.Info("Fetcher running", "config", opts.cfgPath)
			<-ctx.Done()
			slog.Info("Shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			if err := app.Stop(shutdownCtx); err != nil {
				return fmt.Errorf("error during shutdown: %w", err)
			}
			slog.Info("Fetcher stopped gracefully")
			return nil
		},
	}
}
