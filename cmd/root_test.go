// File: cmd/root_test.go
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestVersionCmd(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "suture version "+Version)
}

func TestRootCmd_NoArgsPrintsHelp(t *testing.T) {
	out, err := executeCommand(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Suture repairs failing end-to-end tests")
	for _, sub := range []string{"heal", "results", "audit", "backups"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCmd_MissingConfigFile(t *testing.T) {
	_, err := executeCommand(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "results")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize configuration")
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_limit:\n  max_calls: 0\n"), 0o644))

	_, err := executeCommand(t, "--config", path, "results")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load or validate config")
}

func TestRootCmd_EnvOverride(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("SUTURE_HEALER_MAX_RETRIES", "-2")

	_, err := executeCommand(t, "--config", env.configPath, "results")
	require.Error(t, err, "environment values are validated like file values")
}

func TestConfigFromContext_Missing(t *testing.T) {
	_, err := configFromContext(context.Background())
	assert.EqualError(t, err, "configuration not loaded")
}
