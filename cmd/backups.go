// File: cmd/backups.go
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/suture/api/schemas"
	"github.com/xkilldash9x/suture/internal/audit"
	"github.com/xkilldash9x/suture/internal/backup"
	"github.com/xkilldash9x/suture/internal/observability"
)

func newBackupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List, prune and restore pre-fix backups",
	}
	cmd.AddCommand(newBackupsListCmd())
	cmd.AddCommand(newBackupsPruneCmd())
	cmd.AddCommand(newBackupsRestoreCmd())
	return cmd
}

func newBackupsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := backupManager(cmd)
			if err != nil {
				return err
			}
			backups, err := m.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintf(out, "No backups in %s.\n", m.Dir())
				return nil
			}
			for _, b := range backups {
				fmt.Fprintf(out, "%s  %s\n    %s\n", b.CreatedAt.Local().Format(time.DateTime), b.OriginalPath, b.BackupPath)
			}
			return nil
		},
	}
}

func newBackupsPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete backups beyond the configured age and count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := backupManager(cmd)
			if err != nil {
				return err
			}
			removed, err := m.Prune()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d backups.\n", removed)
			return nil
		},
	}
}

func newBackupsRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore a test file from its newest backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			m, err := backupManager(cmd)
			if err != nil {
				return err
			}

			b, err := m.Latest(args[0])
			if err != nil {
				return err
			}
			if err := m.Restore(*b); err != nil {
				return err
			}

			// Manual restores are mutations too.
			al := audit.NewLogger(cfg.Audit().LogFile, observability.GetLogger())
			if err := al.Log(audit.ActionFileRolledBack, b.OriginalPath, "manual restore from "+b.BackupPath, schemas.AuditSuccess); err != nil {
				observability.GetLogger().Warn("Failed to record restore in audit log.", zap.Error(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", b.OriginalPath, b.BackupPath)
			return nil
		},
	}
}

func backupManager(cmd *cobra.Command) (*backup.Manager, error) {
	cfg, err := configFromContext(cmd.Context())
	if err != nil {
		return nil, err
	}
	return backup.NewManager(cfg.Backup(), observability.GetLogger()), nil
}
