// File: cmd/backups_test.go
package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/suture/internal/audit"
	"github.com/xkilldash9x/suture/internal/backup"
	"github.com/xkilldash9x/suture/internal/config"
)

func TestBackupsCommands(t *testing.T) {
	env := newTestEnv(t)
	file := filepath.Join(env.dir, "tests", "login.spec.ts")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte("original\n"), 0o644))

	out, err := executeCommand(t, "--config", env.configPath, "backups", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No backups in")

	m := backup.NewManager(config.BackupConfig{Dir: env.backupDir, MaxCount: 1}, zaptest.NewLogger(t))
	_, err = m.Create(file)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(file, []byte("broken fix\n"), 0o644))
	_, err = m.Create(file)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(file, []byte("worse fix\n"), 0o644))

	t.Run("List", func(t *testing.T) {
		out, err := executeCommand(t, "--config", env.configPath, "backups", "list")
		require.NoError(t, err)
		assert.Contains(t, out, file)
	})

	t.Run("Restore", func(t *testing.T) {
		out, err := executeCommand(t, "--config", env.configPath, "backups", "restore", file)
		require.NoError(t, err)
		assert.Contains(t, out, "Restored "+file)

		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Equal(t, "broken fix\n", string(data), "the newest backup wins")

		entries, err := audit.NewLogger(env.auditLog, zaptest.NewLogger(t)).Read()
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, audit.ActionFileRolledBack, entries[0].Action)
	})

	t.Run("Prune", func(t *testing.T) {
		out, err := executeCommand(t, "--config", env.configPath, "backups", "prune")
		require.NoError(t, err)
		assert.Contains(t, out, "Removed 1 backups.")
	})

	t.Run("RestoreUnknown", func(t *testing.T) {
		_, err := executeCommand(t, "--config", env.configPath, "backups", "restore", filepath.Join(env.dir, "nope.ts"))
		assert.ErrorIs(t, err, backup.ErrNoBackup)
	})
}
