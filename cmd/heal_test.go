// File: cmd/heal_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/suture/api/schemas"
	"github.com/xkilldash9x/suture/internal/config"
	"github.com/xkilldash9x/suture/internal/mocks"
	"github.com/xkilldash9x/suture/internal/results"
)

const flatResults = `[
  {"title": "books a room", "file": "tests/booking.spec.ts", "status": "failed", "error": "Timeout 5000ms exceeded."},
  {"title": "lists rooms", "file": "tests/booking.spec.ts", "status": "passed"},
  {"title": "cancels", "file": "tests/cancel.spec.ts", "status": "timedOut", "error": "Test timeout of 30000ms exceeded."}
]`

func healTestConfig(t *testing.T, resultsDoc string) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	root := t.TempDir()
	cfg.SetHealerProjectRoot(root)
	if resultsDoc != "" {
		path := filepath.Join(root, "test-results", "results.json")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(resultsDoc), 0o644))
	}
	return cfg
}

func summaryFor(failures []schemas.TestFailure, outcomes ...schemas.HealingOutcome) schemas.SessionSummary {
	res := make([]schemas.HealingResult, len(failures))
	for i, f := range failures {
		res[i] = schemas.HealingResult{TestName: f.TestName, FilePath: f.FilePath, Outcome: outcomes[i], Success: outcomes[i] == schemas.OutcomeVerified}
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return schemas.NewSessionSummary("session-under-test", now, now.Add(time.Second), res)
}

func TestRunHeal(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		cfg := healTestConfig(t, flatResults)
		runner := new(mocks.MockSessionRunner)
		released := false
		initFn := func(_ context.Context, _ *config.Config, _ *zap.Logger) (SessionRunner, func() error, error) {
			return runner, func() error { released = true; return nil }, nil
		}
		runner.On("Run", mock.Anything, mock.MatchedBy(func(f []schemas.TestFailure) bool {
			return len(f) == 2 && f[0].TestName == "books a room" && f[1].TestName == "cancels"
		})).Return(summaryFor([]schemas.TestFailure{{TestName: "books a room"}, {TestName: "cancels"}},
			schemas.OutcomeVerified, schemas.OutcomeRolledBack))

		var out bytes.Buffer
		err := runHeal(ctx, cfg, logger, &out, healOptions{format: "json"}, initFn)
		require.NoError(t, err)
		runner.AssertExpectations(t)
		assert.True(t, released, "healer resources must be released")

		var summary schemas.SessionSummary
		require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
		assert.Equal(t, "session-under-test", summary.SessionID)
		assert.Equal(t, 1, summary.Healed())
	})

	t.Run("NoFailuresSkipsInitialization", func(t *testing.T) {
		cfg := healTestConfig(t, `[{"title": "ok", "file": "a.spec.ts", "status": "passed"}]`)
		initFn := func(context.Context, *config.Config, *zap.Logger) (SessionRunner, func() error, error) {
			t.Fatal("initializer must not run when nothing failed")
			return nil, nil, nil
		}

		var out bytes.Buffer
		require.NoError(t, runHeal(ctx, cfg, logger, &out, healOptions{format: "text"}, initFn))
		assert.Contains(t, out.String(), "No failed tests to heal.")
	})

	t.Run("MissingResultsDocument", func(t *testing.T) {
		cfg := healTestConfig(t, "")
		err := runHeal(ctx, cfg, logger, &bytes.Buffer{}, healOptions{format: "text"}, nil)
		assert.ErrorIs(t, err, results.ErrResultsNotFound)
	})

	t.Run("InitFailure", func(t *testing.T) {
		cfg := healTestConfig(t, flatResults)
		initFn := func(context.Context, *config.Config, *zap.Logger) (SessionRunner, func() error, error) {
			return nil, nil, errors.New("no api key")
		}

		err := runHeal(ctx, cfg, logger, &bytes.Buffer{}, healOptions{format: "text"}, initFn)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize healer: no api key")
	})

	t.Run("UnsupportedFormat", func(t *testing.T) {
		cfg := healTestConfig(t, flatResults)
		err := runHeal(ctx, cfg, logger, &bytes.Buffer{}, healOptions{format: "sarif"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported output format")
	})

	t.Run("StrictReportsUnhealed", func(t *testing.T) {
		cfg := healTestConfig(t, flatResults)
		runner := new(mocks.MockSessionRunner)
		runner.On("Run", mock.Anything, mock.Anything).Return(summaryFor(
			[]schemas.TestFailure{{TestName: "a"}, {TestName: "b"}},
			schemas.OutcomeVerified, schemas.OutcomeSkipped))
		initFn := func(context.Context, *config.Config, *zap.Logger) (SessionRunner, func() error, error) {
			return runner, func() error { return nil }, nil
		}

		var out bytes.Buffer
		err := runHeal(ctx, cfg, logger, &out, healOptions{format: "text", strict: true}, initFn)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 2 failing tests were not healed")
		assert.Contains(t, out.String(), "Healed 1 of 2", "the report is written before the strict check")
	})

	t.Run("ReportToFile", func(t *testing.T) {
		cfg := healTestConfig(t, flatResults)
		runner := new(mocks.MockSessionRunner)
		runner.On("Run", mock.Anything, mock.Anything).Return(summaryFor(
			[]schemas.TestFailure{{TestName: "a"}}, schemas.OutcomeDryRun))
		initFn := func(context.Context, *config.Config, *zap.Logger) (SessionRunner, func() error, error) {
			return runner, func() error { return nil }, nil
		}
		reportPath := filepath.Join(t.TempDir(), "summary.json")

		var out bytes.Buffer
		require.NoError(t, runHeal(ctx, cfg, logger, &out, healOptions{format: "json", output: reportPath}, initFn))
		assert.Empty(t, out.String())

		data, err := os.ReadFile(reportPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"outcome": "dry_run"`)
	})

	t.Run("CancelledSession", func(t *testing.T) {
		cfg := healTestConfig(t, flatResults)
		cctx, cancel := context.WithCancel(ctx)
		runner := new(mocks.MockSessionRunner)
		runner.On("Run", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).
			Return(summaryFor([]schemas.TestFailure{{TestName: "a"}}, schemas.OutcomeSkipped))
		initFn := func(context.Context, *config.Config, *zap.Logger) (SessionRunner, func() error, error) {
			return runner, func() error { return nil }, nil
		}

		var out bytes.Buffer
		err := runHeal(cctx, cfg, logger, &out, healOptions{format: "text"}, initFn)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Contains(t, out.String(), "skipped", "the partial summary is still reported")
	})
}

func TestHealCmd_FlagsOverrideConfig(t *testing.T) {
	env := newTestEnv(t)
	_, err := executeCommand(t, "--config", env.configPath, "heal", "--max-retries", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_retries must be greater than 0")
}

func TestHealCmd_NothingToHeal(t *testing.T) {
	env := newTestEnv(t)
	doc := filepath.Join(env.dir, "results.json")
	require.NoError(t, os.WriteFile(doc, []byte(`[]`), 0o644))

	out, err := executeCommand(t, "--config", env.configPath, "heal", doc, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"results": []`)

	_, statErr := os.Stat(env.auditLog)
	assert.True(t, os.IsNotExist(statErr), "an empty session writes no audit log")
}

func TestHealFlags_ApplyOnlyChanged(t *testing.T) {
	cfg := new(mocks.MockConfig)
	cfg.On("SetHealerDryRun", true).Once()
	cfg.On("SetGitCommitFixes", false).Once()

	changed := map[string]bool{"dry-run": true, "commit": true}
	healFlags{dryRun: true, maxRetries: 9, projectRoot: "/elsewhere"}.apply(cfg, func(name string) bool { return changed[name] })

	cfg.AssertExpectations(t)
	cfg.AssertNotCalled(t, "SetHealerMaxRetries", mock.Anything)
	cfg.AssertNotCalled(t, "SetHealerProjectRoot", mock.Anything)
}
