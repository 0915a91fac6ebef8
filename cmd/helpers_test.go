// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/suture/internal/observability"
)

// testEnv holds the paths a test config points at.
type testEnv struct {
	dir        string
	configPath string
	auditLog   string
	backupDir  string
}

// newTestEnv writes a config file whose state lives under a temp dir.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "suture.yaml"),
		auditLog:   filepath.Join(dir, "state", "audit.log"),
		backupDir:  filepath.Join(dir, "state", "backups"),
	}
	content := fmt.Sprintf(`
logger:
  level: error
healer:
  project_root: %q
audit:
  log_file: %q
backup:
  dir: %q
  max_count: 1
`, dir, env.auditLog, env.backupDir)
	require.NoError(t, os.WriteFile(env.configPath, []byte(content), 0o644))
	return env
}

// executeCommand runs a fresh command tree and captures its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	return executeCommandContext(context.Background(), t, args...)
}

func executeCommandContext(ctx context.Context, t *testing.T, args ...string) (string, error) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	root := NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return buf.String(), err
}
