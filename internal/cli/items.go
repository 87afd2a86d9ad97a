package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/fetcher/internal/control"
	"github.com/vietddude/fetcher/internal/core/config"
	"github.com/vietddude/fetcher/internal/sink"
)

func newItemsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Work with stored items",
	}
	cmd.AddCommand(newItemsImportCmd(opts), newItemsFindCmd(opts))
	return cmd
}

func newItemsImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Save a JSON array of items in one batch",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read items file: %w", err)
			}
			items, err := sink.DecodeItems(data)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := openItemStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = st.Close()
			}()

			if err := st.Items.SaveBatch(ctx, items); err != nil {
				return fmt.Errorf("failed to save items: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items\n", len(items))
			return nil
		},
	}
}

func newItemsFindCmd(opts *rootOptions) *cobra.Command {
	var (
		userID      int64
		title       string
		description string
	)

	cmd := &cobra.Command{
		Use:   "find",
		Short: "List items matching a user, title and description",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := control.OpenStore(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer func() {
				_ = st.Close()
			}()

			items, err := st.Items.FindSimilar(ctx, userID, title, description)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(w, "ITEM_ID\tUSER_ID\tTITLE\tDESCRIPTION")
			for _, it := range items {
				_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", it.ItemID, it.UserID, it.Title, it.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "owner of the items")
	cmd.Flags().StringVar(&title, "title", "", "exact title")
	cmd.Flags().StringVar(&description, "description", "", "exact description")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

// openItemStore opens the store for commands that write items, warning when
// writes would only reach the in-memory store.
func openItemStore(ctx context.Context, cfg *config.AppConfig) (*control.Store, error) {
	st, err := control.OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if st.DB == nil {
		slog.Warn("No database configured, items will not outlive this command")
	}
	return st, nil
}
