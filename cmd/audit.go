// File: cmd/audit.go
package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/suture/api/schemas"
	"github.com/xkilldash9x/suture/internal/audit"
	"github.com/xkilldash9x/suture/internal/observability"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the append-only healing audit log",
	}
	cmd.AddCommand(newAuditShowCmd())
	cmd.AddCommand(newAuditTailCmd())
	cmd.AddCommand(newAuditClearCmd())
	return cmd
}

func newAuditShowCmd() *cobra.Command {
	var action string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print every audit entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := auditLogger(cmd)
			if err != nil {
				return err
			}
			entries, err := l.Read()
			if err != nil {
				return err
			}
			if action != "" {
				entries = filterAction(entries, action)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Audit log is empty.")
				return nil
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "Only show entries with this action, e.g. HEAL_SUCCEEDED")
	return cmd
}

func newAuditTailCmd() *cobra.Command {
	var (
		lines  int
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the last audit entries, optionally following new ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := auditLogger(cmd)
			if err != nil {
				return err
			}
			entries, err := l.Read()
			if err != nil {
				return err
			}
			if lines >= 0 && len(entries) > lines {
				entries = entries[len(entries)-lines:]
			}
			out := cmd.OutOrStdout()
			printEntries(out, entries)

			if !follow {
				return nil
			}
			return l.Follow(cmd.Context(), func(e schemas.AuditLogEntry) {
				fmt.Fprintln(out, audit.FormatEntry(e))
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of existing entries to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing entries as they are appended")
	return cmd
}

func newAuditClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Truncate the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear the audit log without --yes")
			}
			l, err := auditLogger(cmd)
			if err != nil {
				return err
			}
			if err := l.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", l.Path())
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm truncation")
	return cmd
}

func auditLogger(cmd *cobra.Command) (*audit.Logger, error) {
	cfg, err := configFromContext(cmd.Context())
	if err != nil {
		return nil, err
	}
	return audit.NewLogger(cfg.Audit().LogFile, observability.GetLogger()), nil
}

func filterAction(entries []schemas.AuditLogEntry, action string) []schemas.AuditLogEntry {
	var kept []schemas.AuditLogEntry
	for _, e := range entries {
		if e.Action == action {
			kept = append(kept, e)
		}
	}
	return kept
}

func printEntries(w io.Writer, entries []schemas.AuditLogEntry) {
	for _, e := range entries {
		fmt.Fprintln(w, audit.FormatEntry(e))
	}
}
