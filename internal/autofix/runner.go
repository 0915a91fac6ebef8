// File: internal/autofix/runner.go
package autofix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/suture/internal/config"
	"github.com/xkilldash9x/suture/internal/results"
)

// FilePlaceholder in a runner command is replaced by the test file path.
const FilePlaceholder = "{file}"

const (
	maxOutputInError = 2000
	waitDelay        = 2 * time.Second
)

// CommandRunner runs a configured command for one test file.
type CommandRunner struct {
	logger  *zap.Logger
	command []string
	timeout time.Duration
	dir     string
}

// NewCommandRunner builds a runner that executes from projectRoot.
func NewCommandRunner(cfg config.RunnerConfig, projectRoot string, logger *zap.Logger) *CommandRunner {
	return &CommandRunner{
		logger:  logger.Named("runner"),
		command: append([]string(nil), cfg.Command...),
		timeout: cfg.Timeout,
		dir:     projectRoot,
	}
}

// Run executes the test file. It passes only on exit status 0 and, when
// stdout is a JSON report, when no test failed and at least one passed.
func (r *CommandRunner) Run(ctx context.Context, file string) error {
	if len(r.command) == 0 {
		return fmt.Errorf("%w: no runner command configured", ErrTestVerification)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := r.expand(file)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = r.dir
	// Child processes may outlive a killed runner and hold the pipes open.
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Info("Re-running test file.", zap.Strings("command", args))
	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: timed out after %s", ErrTestVerification, r.timeout)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrTestVerification, ctx.Err())
	}
	if err != nil {
		return fmt.Errorf("%w: %v\n%s", ErrTestVerification, err, tail(stderr.String()+stdout.String()))
	}

	if !looksLikeJSON(stdout.Bytes()) {
		return nil
	}
	if outcome, perr := results.OutcomeFromReport(stdout.Bytes()); perr == nil {
		r.logger.Debug("Runner report parsed.",
			zap.Int("passed", outcome.Passed),
			zap.Int("failed", outcome.Failed),
			zap.Int("skipped", outcome.Skipped),
			zap.Duration("elapsed", elapsed))
		if outcome.Failed > 0 {
			return fmt.Errorf("%w: %d test(s) still failing", ErrTestVerification, outcome.Failed)
		}
		if outcome.Passed == 0 {
			return fmt.Errorf("%w: report contains no passing test", ErrTestVerification)
		}
	}
	return nil
}

func (r *CommandRunner) expand(file string) []string {
	target := file
	if r.dir != "" {
		if rel, err := filepath.Rel(r.dir, file); err == nil && !strings.HasPrefix(rel, "..") {
			target = filepath.ToSlash(rel)
		}
	}
	args := make([]string, len(r.command))
	for i, a := range r.command {
		args[i] = strings.ReplaceAll(a, FilePlaceholder, target)
	}
	return args
}

func looksLikeJSON(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxOutputInError {
		return s
	}
	return "..." + s[len(s)-maxOutputInError:]
}
