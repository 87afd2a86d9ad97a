package cli

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/fetcher/internal/control"
	"github.com/vietddude/fetcher/internal/core/config"
	"github.com/vietddude/fetcher/internal/core/executor"
	"github.com/vietddude/fetcher/internal/sink"
)

func newFetchCmd(opts *rootOptions) *cobra.Command {
	var (
		maxRetries int
		timeout    time.Duration
		store      bool
		output     string
	)

	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Fetch a URL once, retrying non-2xx answers",
		Long: `Fetch issues GET requests until one returns 2xx, at most max-retries+1 times.
A timed out attempt ends the run. Exit code is 1 when the run fails and 2 on invalid input.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			locator := args[0]
			if err := validateLocator(locator); err != nil {
				return &usageError{err: err}
			}

			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-retries") {
				maxRetries = cfg.Fetch.Retries()
			}
			if !cmd.Flags().Changed("timeout") {
				timeout = cfg.Fetch.Timeout
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				f := &lazyFile{path: output}
				defer func() {
					_ = f.Close()
				}()
				out = f
			}
			writer := sink.NewWriterSink(out, nil)
			observers := sink.Fanout{writer}

			var items *sink.ItemSink
			if store {
				st, err := openItemStore(ctx, cfg)
				if err != nil {
					return err
				}
				defer func() {
					_ = st.Close()
				}()
				items = sink.NewItemSink(st.Items, nil)
				observers = append(observers, items)
			}

			fetcher := control.NewFetcher(cfg.Fetch)
			defer func() {
				_ = fetcher.Close()
			}()

			if err := executor.New(fetcher).Run(ctx, locator, observers, maxRetries, timeout); err != nil {
				return fmt.Errorf("failed to fetch %s: %w", locator, err)
			}
			if err := writer.LastError(); err != nil {
				return fmt.Errorf("failed to write payload: %w", err)
			}
			if items != nil {
				if err := items.LastError(); err != nil {
					return fmt.Errorf("failed to store items: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxRetries, "max-retries", config.DefaultMaxRetries, "retries after the first attempt")
	cmd.Flags().DurationVar(&timeout, "timeout", config.DefaultTimeout, "timeout of each attempt")
	cmd.Flags().BoolVar(&store, "store", false, "decode the payload as a JSON array of items and save it")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the payload to a file instead of stdout")
	return cmd
}

func validateLocator(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url %q: want an absolute http or https url", raw)
	}
	return nil
}

// lazyFile creates its file on the first write, so a failed run leaves
// nothing behind.
type lazyFile struct {
	path string
	f    *os.File
}

func (l *lazyFile) Write(p []byte) (int, error) {
	if l.f == nil {
		f, err := os.Create(l.path)
		if err != nil {
			return 0, fmt.Errorf("failed to create output file: %w", err)
		}
		l.f = f
	}
	return l.f.Write(p)
}

func (l *lazyFile) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}
