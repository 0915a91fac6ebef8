// File: cmd/results.go
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/suture/api/schemas"
	"github.com/xkilldash9x/suture/internal/observability"
	"github.com/xkilldash9x/suture/internal/results"
)

func newResultsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "results [results-file]",
		Short: "Summarize and rank failing tests without changing anything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.SetHealerResultsPath(args[0])
			}

			failures, err := loadFailures(cfg.Healer(), observability.GetLogger())
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), failures, limit)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Show at most this many ranked failures (0 for all)")
	return cmd
}

func printResults(w io.Writer, failures []schemas.TestFailure, limit int) {
	fmt.Fprint(w, results.Summarize(failures).String())

	ranked := results.Prioritize(failures)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if len(ranked) == 0 {
		return
	}

	fmt.Fprintln(w)
	for i, r := range ranked {
		fmt.Fprintf(w, "%2d. [%s/%s] %s (%s)\n", i+1, r.Classification.Severity, r.Classification.Kind, r.TestName, r.FilePath)
		if r.Classification.Hint != "" {
			fmt.Fprintf(w, "    hint: %s\n", r.Classification.Hint)
		}
	}
}
