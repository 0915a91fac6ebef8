// File: internal/autofix/healer.go
package autofix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/suture/api/schemas"
	"github.com/xkilldash9x/suture/internal/audit"
	"github.com/xkilldash9x/suture/internal/backup"
	"github.com/xkilldash9x/suture/internal/classifier"
	"github.com/xkilldash9x/suture/internal/config"
	"github.com/xkilldash9x/suture/internal/llmclient"
	"github.com/xkilldash9x/suture/internal/ratelimit"
	"github.com/xkilldash9x/suture/internal/security"
	"github.com/xkilldash9x/suture/internal/syntax"
)

// Dependencies are the collaborators a Healer drives. Committer is optional.
type Dependencies struct {
	Backend   ReasoningBackend
	Limiter   *ratelimit.Limiter
	Validator *security.Validator
	Backups   *backup.Manager
	Audit     *audit.Logger
	Runner    TestRunner
	Committer Committer
}

// Option configures a Healer.
type Option func(*Healer)

// WithSleeper replaces the backoff delay. Tests use it to observe scheduling
// without real timers.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(h *Healer) { h.sleep = fn }
}

// WithClock replaces the wall clock used for timestamps.
func WithClock(fn func() time.Time) Option {
	return func(h *Healer) { h.now = fn }
}

// Healer runs the per-test state machine over a list of failures, one test
// at a time in input order.
type Healer struct {
	cfg     config.HealerConfig
	logger  *zap.Logger
	deps    Dependencies
	locator StackLocator
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time
	newID   func() string
}

// NewHealer validates deps and builds a Healer.
func NewHealer(cfg config.HealerConfig, deps Dependencies, logger *zap.Logger, opts ...Option) (*Healer, error) {
	switch {
	case deps.Backend == nil:
		return nil, fmt.Errorf("healer requires a reasoning backend")
	case deps.Limiter == nil:
		return nil, fmt.Errorf("healer requires a rate limiter")
	case deps.Validator == nil:
		return nil, fmt.Errorf("healer requires a security validator")
	case deps.Backups == nil:
		return nil, fmt.Errorf("healer requires a backup manager")
	case deps.Audit == nil:
		return nil, fmt.Errorf("healer requires an audit logger")
	case deps.Runner == nil:
		return nil, fmt.Errorf("healer requires a test runner")
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}

	h := &Healer{
		cfg:    cfg,
		logger: logger.Named("healer"),
		deps:   deps,
		sleep:  sleepContext,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Run heals every failure and returns the session summary. A cancelled ctx
// stops processing; the remaining tests are reported as skipped.
func (h *Healer) Run(ctx context.Context, failures []schemas.TestFailure) schemas.SessionSummary {
	sessionID := h.newID()
	started := h.now().UTC()
	logger := h.logger.With(zap.String("session_id", sessionID))

	if len(failures) == 0 {
		logger.Info("No failing tests; nothing to heal.")
		return schemas.NewSessionSummary(sessionID, started, h.now().UTC(), nil)
	}

	if pruned, err := h.deps.Backups.Prune(); err != nil {
		logger.Warn("Backup pruning failed.", zap.Error(err))
	} else if pruned > 0 {
		h.record(audit.ActionBackupsPruned, h.deps.Backups.Dir(), fmt.Sprintf("removed %d expired backups", pruned), schemas.AuditSuccess)
	}

	h.record(audit.ActionSessionStarted, "", fmt.Sprintf("session %s: %d failing tests, dry_run=%t", sessionID, len(failures), h.cfg.DryRun), schemas.AuditSuccess)
	logger.Info("Healing session started.", zap.Int("failures", len(failures)), zap.Bool("dry_run", h.cfg.DryRun))

	results := make([]schemas.HealingResult, 0, len(failures))
	for i, f := range failures {
		if ctx.Err() != nil {
			results = append(results, h.cancelled(f))
			continue
		}
		logger.Info("Healing test.",
			zap.Int("index", i+1),
			zap.Int("total", len(failures)),
			zap.String("test", f.TestName),
			zap.String("file", f.FilePath))
		results = append(results, h.heal(ctx, f))
	}

	summary := schemas.NewSessionSummary(sessionID, started, h.now().UTC(), results)
	h.record(audit.ActionSessionFinished, "", fmt.Sprintf("session %s: %d healed of %d", sessionID, summary.Healed(), len(results)), schemas.AuditSuccess)
	logger.Info("Healing session finished.", zap.Int("healed", summary.Healed()), zap.Int("total", len(results)))
	return summary
}

// run carries the mutable state of one test through the state machine.
type run struct {
	failure schemas.TestFailure
	result  schemas.HealingResult
	state   State
	logger  *zap.Logger
	// applied is set once the test file has been overwritten and cleared
	// again once it is verified or restored.
	applied *schemas.Backup
}

func (r *run) to(s State) {
	r.logger.Debug("State transition.", zap.String("from", string(r.state)), zap.String("to", string(s)))
	r.state = s
}

func (h *Healer) heal(ctx context.Context, f schemas.TestFailure) (res schemas.HealingResult) {
	r := &run{
		failure: f,
		state:   StateDiscovered,
		logger:  h.logger.With(zap.String("test", f.TestName), zap.String("file", f.FilePath)),
		result: schemas.HealingResult{
			ID:           h.newID(),
			TestName:     f.TestName,
			FilePath:     f.FilePath,
			ErrorSummary: firstLine(classifier.StripANSI(f.ErrorMessage)),
		},
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Panic while healing test.", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			h.restoreIfApplied(r)
			res = h.finish(r, schemas.OutcomeErrored, StateErrored, fmt.Errorf("unexpected panic: %v", p))
			h.record(audit.ActionHealFailed, f.FilePath, res.Reason, schemas.AuditFailure)
		}
	}()

	return h.process(ctx, r)
}

func (h *Healer) process(ctx context.Context, r *run) schemas.HealingResult {
	f := r.failure
	path := f.FilePath

	cls := classifier.Classify(f.ErrorMessage, f.Stack)
	r.result.Classification = cls
	r.to(StateClassified)

	if sig, ok := classifier.InfrastructureSignature(f.ErrorMessage + "\n" + f.Stack); ok {
		err := fmt.Errorf("%w: %s", ErrInfrastructureSkip, sig)
		h.record(audit.ActionTestSkipped, path, err.Error(), schemas.AuditWarning)
		return h.finish(r, schemas.OutcomeSkipped, StateSkipped, err)
	}

	if matches := security.InjectionMatches(f.ErrorMessage); len(matches) > 0 {
		detail := fmt.Sprintf("%s: %s", ErrPromptInjectionFlagged, strings.Join(matches, ", "))
		h.record(audit.ActionInjectionDetected, path, detail, schemas.AuditWarning)
		r.logger.Warn("Possible prompt injection in error message.", zap.Strings("matches", matches), zap.Bool("abort", h.cfg.AbortOnInjection))
		if h.cfg.AbortOnInjection {
			err := fmt.Errorf("%w: aborted by policy", ErrPromptInjectionFlagged)
			h.record(audit.ActionTestSkipped, path, err.Error(), schemas.AuditWarning)
			return h.finish(r, schemas.OutcomeSkipped, StateSkipped, err)
		}
	}

	source, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("test file unreadable: %w", err)
		h.record(audit.ActionTestSkipped, path, err.Error(), schemas.AuditWarning)
		return h.finish(r, schemas.OutcomeSkipped, StateSkipped, err)
	}
	data := h.sanitize(r, f, cls, source)
	r.to(StateSanitized)

	analysis, attempts, err := h.analyze(ctx, r, data)
	r.result.Attempts = attempts
	if err != nil {
		h.record(audit.ActionAnalysisFailed, path, err.Error(), schemas.AuditFailure)
		return h.finish(r, schemas.OutcomeAPIFailed, StateAPIFailed, err)
	}
	r.result.Confidence = analysis.Confidence
	r.to(StateAnalyzed)

	if analysis.Code == "" {
		h.record(audit.ActionExtractionFailed, path, ErrCodeExtraction.Error(), schemas.AuditFailure)
		return h.finish(r, schemas.OutcomeExtractionFailed, StateExtractionFailed, ErrCodeExtraction)
	}
	r.to(StateCodeExtracted)

	if err := h.validateFix(ctx, path, analysis.Code); err != nil {
		h.record(audit.ActionValidationFailed, path, err.Error(), schemas.AuditFailure)
		return h.finish(r, schemas.OutcomeValidationRejected, StateValidationFailed, err)
	}
	r.to(StateValidated)
	fix := withTrailingNewline(analysis.Code)

	if h.cfg.ReviewFixes {
		h.review(ctx, r, data, analysis.Code)
	}

	if h.cfg.DryRun {
		h.record(audit.ActionDryRun, path, fmt.Sprintf("validated fix not applied (confidence %d)", analysis.Confidence), schemas.AuditSuccess)
		return h.finish(r, schemas.OutcomeDryRun, StateValidated, nil)
	}

	b, err := h.deps.Backups.Create(path)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrBackup, err)
		h.record(audit.ActionBackupFailed, path, err.Error(), schemas.AuditFailure)
		return h.finish(r, schemas.OutcomeBackupFailed, StateBackupFailed, err)
	}
	r.result.BackupPath = b.BackupPath
	h.record(audit.ActionBackupCreated, path, b.BackupPath, schemas.AuditSuccess)
	r.to(StateBackedUp)

	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := backup.WriteFileAtomic(path, []byte(fix), perm); err != nil {
		err = fmt.Errorf("%w: %v", ErrWriteVerification, err)
		h.record(audit.ActionWriteFailed, path, err.Error(), schemas.AuditFailure)
		return h.finish(r, schemas.OutcomeApplyFailed, StateApplyFailed, err)
	}
	r.applied = b
	r.result.AppliedFix = fix
	h.record(audit.ActionFileModified, path, fmt.Sprintf("applied fix (confidence %d, attempts %d)", analysis.Confidence, attempts), schemas.AuditSuccess)
	r.to(StateApplied)

	if err := h.deps.Runner.Run(ctx, path); err != nil {
		r.to(StateVerificationFailed)
		if !errors.Is(err, ErrTestVerification) {
			err = fmt.Errorf("%w: %v", ErrTestVerification, err)
		}
		r.logger.Warn("Fix did not pass verification; rolling back.", zap.Error(err))
		if !h.restoreIfApplied(r) {
			err = fmt.Errorf("%w; rollback failed, original kept at %s", err, b.BackupPath)
			h.record(audit.ActionHealFailed, path, err.Error(), schemas.AuditFailure)
			return h.finish(r, schemas.OutcomeErrored, StateVerificationFailed, err)
		}
		h.record(audit.ActionHealFailed, path, err.Error(), schemas.AuditFailure)
		return h.finish(r, schemas.OutcomeRolledBack, StateRolledBack, err)
	}
	r.applied = nil
	r.result.Success = true
	h.record(audit.ActionHealSucceeded, path, fmt.Sprintf("%s verified", f.TestName), schemas.AuditSuccess)

	if h.deps.Committer != nil {
		msg := fmt.Sprintf("test: heal %q\n\nFailure: %s\nClassification: %s", f.TestName, r.result.ErrorSummary, cls.Kind)
		if hash, err := h.deps.Committer.Commit(ctx, path, msg); err != nil {
			r.logger.Warn("Commit of verified fix failed.", zap.Error(err))
		} else {
			h.record(audit.ActionFixCommitted, path, hash, schemas.AuditSuccess)
		}
	}
	return h.finish(r, schemas.OutcomeVerified, StateVerified, nil)
}

// sanitize builds everything that will leave the process for this test.
func (h *Healer) sanitize(r *run, f schemas.TestFailure, cls schemas.ClassifiedError, source []byte) schemas.SanitizedTestData {
	v := h.deps.Validator
	line := h.locator.Locate(f.Stack, f.FilePath)
	if line == 0 {
		line = f.Line
	}
	var codeContext string
	if line > 0 {
		codeContext = h.bounded(r, "code context", v.SanitizeCode(CodeContext(string(source), line, h.cfg.ContextLines)))
	}
	return schemas.SanitizedTestData{
		ErrorType:    string(cls.Kind),
		ErrorMessage: v.SanitizeErrorMessage(classifier.StripANSI(f.ErrorMessage)),
		SourceCode:   h.bounded(r, "source code", v.SanitizeCode(string(source))),
		FilePath:     h.displayPath(f.FilePath),
		Hint:         v.SanitizeForPrompt(cls.Hint),
		CodeContext:  codeContext,
	}
}

// bounded caps outbound code at the configured code size. Oversized input is
// sent truncated, never whole.
func (h *Healer) bounded(r *run, field, code string) string {
	out, err := h.deps.Validator.ValidateCodeSize(code)
	if err != nil {
		r.logger.Warn("Outbound code truncated.", zap.String("field", field), zap.Int("bytes", len(code)), zap.Error(err))
		h.record(audit.ActionInputTruncated, r.failure.FilePath, fmt.Sprintf("%s: %v", field, err), schemas.AuditWarning)
	}
	return out
}

// displayPath is the file path as the model sees it: relative to the
// project root, or just the base name.
func (h *Healer) displayPath(path string) string {
	if h.cfg.ProjectRoot != "" {
		root, rerr := filepath.Abs(h.cfg.ProjectRoot)
		abs, aerr := filepath.Abs(path)
		if rerr == nil && aerr == nil {
			if rel, err := filepath.Rel(root, abs); err == nil && !strings.HasPrefix(rel, "..") {
				return filepath.ToSlash(rel)
			}
		}
	}
	return filepath.Base(path)
}

// analyze calls the backend until it succeeds or the attempt budget runs
// out, sleeping 2^attempt seconds after each failed attempt.
func (h *Healer) analyze(ctx context.Context, r *run, data schemas.SanitizedTestData) (*schemas.AnalysisResult, int, error) {
	var last attemptOutcome
	for n := 1; n <= h.cfg.MaxRetries; n++ {
		last = h.attempt(ctx, n, data)
		if last.ok() {
			return last.result, last.attempt, nil
		}
		r.logger.Warn("Reasoning attempt failed.", zap.Int("attempt", n), zap.Int("max", h.cfg.MaxRetries), zap.Error(last.err))
		if !retryable(ctx, last.err) || n == h.cfg.MaxRetries {
			break
		}
		if err := h.sleep(ctx, backoffDelay(n)); err != nil {
			return nil, last.attempt, fmt.Errorf("%w after %d attempts: %w", ErrAPIFailureAfterRetries, last.attempt, err)
		}
	}
	return nil, last.attempt, fmt.Errorf("%w after %d attempts: %w", ErrAPIFailureAfterRetries, last.attempt, last.err)
}

// attempt waits for a rate-limit slot, then races the backend against the
// per-attempt timeout.
func (h *Healer) attempt(ctx context.Context, n int, data schemas.SanitizedTestData) attemptOutcome {
	if err := h.deps.Limiter.Wait(ctx); err != nil {
		return attemptOutcome{attempt: n, err: fmt.Errorf("rate limiter: %w", err)}
	}

	actx, cancel := context.WithTimeout(ctx, h.cfg.APITimeout)
	defer cancel()

	type reply struct {
		result *schemas.AnalysisResult
		err    error
	}
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- reply{err: fmt.Errorf("reasoning backend panicked: %v", p)}
			}
		}()
		res, err := h.deps.Backend.AnalyzeFailure(actx, data)
		done <- reply{result: res, err: err}
	}()

	select {
	case rep := <-done:
		if rep.err == nil && rep.result == nil {
			rep.err = errors.New("reasoning backend returned no result")
		}
		if rep.err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			rep.err = fmt.Errorf("%w after %s: %v", ErrAPITimeout, h.cfg.APITimeout, rep.err)
		}
		return attemptOutcome{attempt: n, result: rep.result, err: rep.err}
	case <-actx.Done():
		if ctx.Err() != nil {
			return attemptOutcome{attempt: n, err: ctx.Err()}
		}
		return attemptOutcome{attempt: n, err: fmt.Errorf("%w after %s", ErrAPITimeout, h.cfg.APITimeout)}
	}
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, llmclient.ErrBlocked)
}

// backoffDelay is 2^attempt seconds.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// validateFix rejects code that is oversized, carries sanitizer
// placeholders, matches a dangerous signature or does not parse.
func (h *Healer) validateFix(ctx context.Context, path, code string) error {
	if _, err := h.deps.Validator.ValidateCodeSize(code); err != nil {
		return fmt.Errorf("%w: %w", ErrCodeValidation, err)
	}
	if found := security.Placeholders(code); len(found) > 0 {
		return fmt.Errorf("%w: contains sanitizer placeholders %s", ErrCodeValidation, strings.Join(found, ", "))
	}
	if v := security.ValidateGeneratedCode(code); !v.Valid {
		return fmt.Errorf("%w: %s", ErrCodeValidation, v.Error())
	}
	if err := syntax.Check(ctx, path, []byte(code)); err != nil {
		return fmt.Errorf("%w: %w", ErrCodeValidation, err)
	}
	return nil
}

func (h *Healer) review(ctx context.Context, r *run, data schemas.SanitizedTestData, code string) {
	if err := h.deps.Limiter.Wait(ctx); err != nil {
		r.logger.Warn("Fix review skipped.", zap.Error(err))
		return
	}
	rctx, cancel := context.WithTimeout(ctx, h.cfg.APITimeout)
	defer cancel()
	rv, err := h.deps.Backend.VerifyFix(rctx, data, code)
	if err != nil {
		r.logger.Warn("Fix review unavailable.", zap.Error(err))
		return
	}
	r.logger.Info("Fix reviewed.", zap.Bool("approved", rv.Approved), zap.Strings("concerns", rv.Concerns), zap.String("summary", rv.Summary))
}

// restoreIfApplied puts the original content back when the test file was
// overwritten. It reports whether the file now holds the original bytes.
func (h *Healer) restoreIfApplied(r *run) bool {
	if r.applied == nil {
		return true
	}
	b := *r.applied
	if err := h.deps.Backups.Restore(b); err != nil {
		r.logger.Error("Rollback failed.", zap.Error(err), zap.String("backup", b.BackupPath))
		h.record(audit.ActionRollbackFailed, r.failure.FilePath, fmt.Sprintf("%v; backup at %s", err, b.BackupPath), schemas.AuditFailure)
		return false
	}
	r.applied = nil
	r.result.AppliedFix = ""
	h.record(audit.ActionFileRolledBack, r.failure.FilePath, "restored from "+b.BackupPath, schemas.AuditSuccess)
	r.to(StateRolledBack)
	return true
}

func (h *Healer) cancelled(f schemas.TestFailure) schemas.HealingResult {
	r := &run{
		failure: f,
		state:   StateDiscovered,
		logger:  h.logger.With(zap.String("test", f.TestName)),
		result: schemas.HealingResult{
			ID:           h.newID(),
			TestName:     f.TestName,
			FilePath:     f.FilePath,
			ErrorSummary: firstLine(classifier.StripANSI(f.ErrorMessage)),
		},
	}
	h.record(audit.ActionTestSkipped, f.FilePath, "session cancelled", schemas.AuditWarning)
	return h.finish(r, schemas.OutcomeSkipped, StateSkipped, errors.New("session cancelled"))
}

func (h *Healer) finish(r *run, outcome schemas.HealingOutcome, final State, err error) schemas.HealingResult {
	r.to(final)
	r.result.Outcome = outcome
	r.result.FinalState = string(final)
	r.result.Timestamp = h.now().UTC()
	if err != nil {
		r.result.Reason = err.Error()
	}
	r.logger.Info("Test finished.", zap.String("outcome", string(outcome)), zap.Bool("success", r.result.Success), zap.String("reason", r.result.Reason))
	return r.result
}

// record appends to the audit log. A failing audit sink is logged but never
// stops healing.
func (h *Healer) record(action, file, detail string, status schemas.AuditStatus) {
	if err := h.deps.Audit.Log(action, file, detail, status); err != nil {
		h.logger.Error("Failed to write audit entry.", zap.String("action", action), zap.Error(err))
	}
}

func withTrailingNewline(code string) string {
	if strings.HasSuffix(code, "\n") {
		return code
	}
	return code + "\n"
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}
