// File: cmd/results_test.go
package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/suture/api/schemas"
)

func TestPrintResults(t *testing.T) {
	failures := []schemas.TestFailure{
		{TestName: "slow page", FilePath: "a.spec.ts", ErrorMessage: "Test timeout of 30000ms exceeded."},
		{TestName: "two buttons", FilePath: "b.spec.ts", ErrorMessage: "strict mode violation: locator('button') resolved to 2 elements"},
		{TestName: "db down", FilePath: "c.spec.ts", ErrorMessage: "connect ECONNREFUSED 127.0.0.1:5432"},
	}

	t.Run("All", func(t *testing.T) {
		var buf bytes.Buffer
		printResults(&buf, failures, 0)
		out := buf.String()

		assert.Contains(t, out, "3 failing tests")
		assert.Contains(t, out, " 1. ")
		assert.Contains(t, out, " 3. ")
		assert.Contains(t, out, "two buttons (b.spec.ts)")
	})

	t.Run("Limited", func(t *testing.T) {
		var buf bytes.Buffer
		printResults(&buf, failures, 1)
		assert.NotContains(t, buf.String(), " 2. ")
	})

	t.Run("Empty", func(t *testing.T) {
		var buf bytes.Buffer
		printResults(&buf, nil, 10)
		assert.Equal(t, 1, strings.Count(buf.String(), "\n"), "only the totals line is printed")
	})
}

func TestResultsCmd(t *testing.T) {
	env := newTestEnv(t)
	doc := filepath.Join(env.dir, "run.json")
	require.NoError(t, os.WriteFile(doc, []byte(flatResults), 0o644))

	out, err := executeCommand(t, "--config", env.configPath, "results", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "2 failing tests")
	assert.Contains(t, out, "books a room")
}
