// Command shadow_compare replays read-only list queries against a reference
// json-server and the records API and reports where they disagree.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		goBase     string
		legacyBase string
		ignore     []string
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:           "shadow_compare",
		Short:         "Compare records API responses with the reference json-server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmp := &comparer{
				client:     &http.Client{Timeout: timeout},
				goBase:     goBase,
				legacyBase: legacyBase,
				ignore:     ignore,
			}
			var results []comparison
			for _, t := range defaultTargets() {
				results = append(results, cmp.compare(t))
			}
			if breaking, _ := printReport(cmd.OutOrStdout(), results); breaking > 0 {
				return fmt.Errorf("%d breaking diffs", breaking)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&goBase, "go-base", "http://localhost:8080", "records API base URL")
	cmd.Flags().StringVar(&legacyBase, "legacy-base", "http://localhost:3001", "json-server base URL")
	cmd.Flags().StringSliceVar(&ignore, "ignore", []string{"id"}, "document fields left out of body comparison")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	return cmd
}
