// File: cmd/heal.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/suture/api/schemas"
	"github.com/xkilldash9x/suture/internal/audit"
	"github.com/xkilldash9x/suture/internal/autofix"
	"github.com/xkilldash9x/suture/internal/backup"
	"github.com/xkilldash9x/suture/internal/config"
	"github.com/xkilldash9x/suture/internal/llmclient"
	"github.com/xkilldash9x/suture/internal/observability"
	"github.com/xkilldash9x/suture/internal/ratelimit"
	"github.com/xkilldash9x/suture/internal/reporting"
	"github.com/xkilldash9x/suture/internal/results"
	"github.com/xkilldash9x/suture/internal/security"
)

// SessionRunner heals a list of failures and reports what happened to each.
type SessionRunner interface {
	Run(ctx context.Context, failures []schemas.TestFailure) schemas.SessionSummary
}

// HealerInitializer builds a SessionRunner and the func that releases it.
type HealerInitializer func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (SessionRunner, func() error, error)

type healOptions struct {
	format string
	output string
	strict bool
}

// healFlags are the config overrides the heal command accepts.
type healFlags struct {
	dryRun      bool
	review      bool
	commit      bool
	maxRetries  int
	projectRoot string
}

// apply copies every flag the user set onto cfg.
func (f healFlags) apply(cfg config.Interface, changed func(name string) bool) {
	if changed("dry-run") {
		cfg.SetHealerDryRun(f.dryRun)
	}
	if changed("max-retries") {
		cfg.SetHealerMaxRetries(f.maxRetries)
	}
	if changed("project-root") {
		cfg.SetHealerProjectRoot(f.projectRoot)
	}
	if changed("review") {
		cfg.SetHealerReviewFixes(f.review)
	}
	if changed("commit") {
		cfg.SetGitCommitFixes(f.commit)
	}
}

func newHealCmd() *cobra.Command {
	var (
		opts  healOptions
		flags healFlags
	)

	cmd := &cobra.Command{
		Use:   "heal [results-file]",
		Short: "Analyze failing tests, apply fixes and keep only the ones that pass",
		Long: `Reads a prior test run, asks the reasoning model for a fix for each failing
test, applies it behind a backup, re-runs the test and rolls back anything
that still fails. Without a results file the project root is searched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}

			flags.apply(cfg, cmd.Flags().Changed)
			if len(args) == 1 {
				cfg.SetHealerResultsPath(args[0])
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}

			return runHeal(cmd.Context(), cfg, observability.GetLogger(), cmd.OutOrStdout(), opts, newHealer)
		},
	}

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Analyze and validate fixes without writing them")
	cmd.Flags().BoolVar(&flags.review, "review", false, "Ask the fast model to review each fix before it is applied")
	cmd.Flags().BoolVar(&flags.commit, "commit", false, "Commit each verified fix to the enclosing git repository")
	cmd.Flags().IntVar(&flags.maxRetries, "max-retries", 3, "Reasoning attempts per test")
	cmd.Flags().StringVar(&flags.projectRoot, "project-root", ".", "Root of the test project")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Report format (text, json)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Report file (default stdout)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Exit non-zero when any test is left unhealed")
	return cmd
}

// runHeal holds the testable logic of the heal command.
func runHeal(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	out io.Writer,
	opts healOptions,
	initFn HealerInitializer,
) error {
	failures, err := loadFailures(cfg.Healer(), logger)
	if err != nil {
		return err
	}

	var rep reporting.Reporter
	if opts.output == "" {
		rep, err = reporting.NewStream(opts.format, out)
	} else {
		rep, err = reporting.New(opts.format, opts.output)
	}
	if err != nil {
		return fmt.Errorf("failed to create reporter: %w", err)
	}
	defer rep.Close()

	var summary schemas.SessionSummary
	if len(failures) == 0 {
		// Nothing to heal, so no reasoning client is needed.
		now := time.Now()
		summary = schemas.NewSessionSummary(uuid.NewString(), now, now, nil)
	} else {
		runner, release, err := initFn(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize healer: %w", err)
		}
		defer func() {
			if err := release(); err != nil {
				logger.Warn("Failed to release healer resources.", zap.Error(err))
			}
		}()

		logger.Info("Starting healing session.",
			zap.Int("failures", len(failures)),
			zap.Bool("dry_run", cfg.Healer().DryRun))
		summary = runner.Run(ctx, failures)
	}

	if err := rep.Write(summary); err != nil {
		return err
	}
	if err := rep.Close(); err != nil {
		return fmt.Errorf("failed to finalize report: %w", err)
	}

	logger.Info("Healing session finished.",
		zap.String("session_id", summary.SessionID),
		zap.Int("healed", summary.Healed()),
		zap.Int("total", len(summary.Results)))

	if err := ctx.Err(); err != nil {
		return err
	}
	if opts.strict {
		if unhealed := len(summary.Results) - summary.Healed(); unhealed > 0 {
			return fmt.Errorf("%d of %d failing tests were not healed", unhealed, len(summary.Results))
		}
	}
	return nil
}

// loadFailures reads the configured results document, or discovers one under
// the project root.
func loadFailures(hc config.HealerConfig, logger *zap.Logger) ([]schemas.TestFailure, error) {
	path := hc.ResultsPath
	if path == "" {
		found, err := results.FindResultsFile(hc.ProjectRoot)
		if err != nil {
			return nil, err
		}
		path = found
	}
	return results.NewParser(logger).Parse(path)
}

// newHealer wires the production dependencies of a healing session.
func newHealer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (SessionRunner, func() error, error) {
	client, err := llmclient.NewClient(ctx, cfg.LLM(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	rl := cfg.RateLimit()
	deps := autofix.Dependencies{
		Backend:   autofix.NewLLMBackend(client, logger),
		Limiter:   ratelimit.New(rl.MaxCalls, rl.Window),
		Validator: security.New(cfg.Security()),
		Backups:   backup.NewManager(cfg.Backup(), logger),
		Audit:     audit.NewLogger(cfg.Audit().LogFile, logger),
		Runner:    autofix.NewCommandRunner(cfg.Runner(), cfg.Healer().ProjectRoot, logger),
	}

	if cfg.Git().CommitFixes {
		committer, err := autofix.NewGitCommitter(cfg.Healer().ProjectRoot, cfg.Git(), logger)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		deps.Committer = committer
	}

	healer, err := autofix.NewHealer(cfg.Healer(), deps, logger)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return healer, client.Close, nil
}
