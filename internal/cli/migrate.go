package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vietddude/fetcher/internal/infra/storage/postgres"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the items schema in the configured database",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return &usageError{err: errors.New("database.url is not set")}
			}

			ctx := cmd.Context()
			db, err := postgres.NewDB(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				_ = db.Close()
			}()

			if err := postgres.NewItemRepo(db).CreateSchema(ctx); err != nil {
				return err
			}
			slog.Info("Schema is up to date")
			return nil
		},
	}
}
