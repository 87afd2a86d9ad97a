package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/fetcher/internal/health"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of every scheduled job of a running server",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, addr+"/health/detailed", nil)
			if err != nil {
				return &usageError{err: err}
			}
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("failed to query server: %w", err)
			}
			defer func() {
				_ = resp.Body.Close()
			}()

			var report health.HealthReport
			if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
				return fmt.Errorf("failed to decode health report: %w", err)
			}

			names := make([]string, 0, len(report.Jobs))
			for name := range report.Jobs {
				names = append(names, name)
			}
			sort.Strings(names)

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "System: %s\n", report.SystemStatus)
			if report.Fetcher != "" {
				_, _ = fmt.Fprintf(out, "Fetcher: %s (error rate %.2f)\n", report.Fetcher, report.FetcherErrorRate)
			}
			_, _ = fmt.Fprintln(out)

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
			_, _ = fmt.Fprintln(w, "JOB\tSTATUS\tLAST RUN\tFAILURES\tLAST ERROR")
			for _, name := range names {
				job := report.Jobs[name]
				lastRun := "never"
				if !job.LastRunAt.IsZero() {
					lastRun = job.LastRunAt.Format(time.RFC3339)
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					name, job.Status, lastRun, job.ConsecutiveFailures, job.LastError)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "server address (default http://localhost:<server.port>)")
	return cmd
}
