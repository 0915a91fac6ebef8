// File: internal/audit/audit.go
package audit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/hpcloud/tail"
	"go.uber.org/zap"

	"github.com/xkilldash9x/suture/api/schemas"
)

// Actions recorded by the healer.
const (
	ActionSessionStarted    = "SESSION_STARTED"
	ActionSessionFinished   = "SESSION_FINISHED"
	ActionTestSkipped       = "TEST_SKIPPED"
	ActionInjectionDetected = "PROMPT_INJECTION_DETECTED"
	ActionInputTruncated    = "INPUT_TRUNCATED"
	ActionAnalysisFailed    = "ANALYSIS_FAILED"
	ActionExtractionFailed  = "CODE_EXTRACTION_FAILED"
	ActionValidationFailed  = "CODE_VALIDATION_FAILED"
	ActionBackupCreated     = "BACKUP_CREATED"
	ActionBackupFailed      = "BACKUP_FAILED"
	ActionBackupsPruned     = "BACKUPS_PRUNED"
	ActionFileModified      = "FILE_MODIFIED"
	ActionWriteFailed       = "WRITE_VERIFICATION_FAILED"
	ActionFileRolledBack    = "FILE_ROLLED_BACK"
	ActionRollbackFailed    = "ROLLBACK_FAILED"
	ActionHealSucceeded     = "HEAL_SUCCEEDED"
	ActionHealFailed        = "HEAL_FAILED"
	ActionFixCommitted      = "FIX_COMMITTED"
	ActionDryRun            = "DRY_RUN"
)

// <timestamp> [STATUS] ACTION | file | detail
var lineRegex = regexp.MustCompile(`^(\S+) \[([A-Z]+)\] (\S+) \| (.*?) \| (.*)$`)

// Logger appends entries to a text file, one line each. It never rewrites or
// removes individual entries.
type Logger struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
	now    func() time.Time
}

// NewLogger creates an audit Logger writing to path.
func NewLogger(path string, logger *zap.Logger) *Logger {
	return &Logger{
		path:   path,
		logger: logger.Named("audit"),
		now:    time.Now,
	}
}

// Path returns the audit file location.
func (l *Logger) Path() string { return l.path }

// Log appends one entry.
func (l *Logger) Log(action, filePath, detail string, status schemas.AuditStatus) error {
	entry := schemas.AuditLogEntry{
		Timestamp: l.now().UTC(),
		Action:    action,
		FilePath:  filePath,
		Detail:    detail,
		Status:    status,
	}
	return l.Append(entry)
}

// Append writes a prepared entry.
func (l *Logger) Append(entry schemas.AuditLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatEntry(entry) + "\n"); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	l.logger.Debug("Audit entry recorded.",
		zap.String("action", entry.Action),
		zap.String("status", string(entry.Status)),
		zap.String("file", entry.FilePath))
	return nil
}

// FormatEntry renders an entry as a single line.
func FormatEntry(e schemas.AuditLogEntry) string {
	return fmt.Sprintf("%s [%s] %s | %s | %s",
		e.Timestamp.Format(time.RFC3339Nano),
		strings.ToUpper(string(e.Status)),
		e.Action,
		oneLine(e.FilePath),
		oneLine(e.Detail))
}

// ParseEntry is the inverse of FormatEntry.
func ParseEntry(line string) (schemas.AuditLogEntry, error) {
	m := lineRegex.FindStringSubmatch(line)
	if m == nil {
		return schemas.AuditLogEntry{}, fmt.Errorf("malformed audit line: %q", line)
	}
	ts, err := time.Parse(time.RFC3339Nano, m[1])
	if err != nil {
		return schemas.AuditLogEntry{}, fmt.Errorf("malformed audit timestamp: %w", err)
	}
	return schemas.AuditLogEntry{
		Timestamp: ts,
		Status:    schemas.AuditStatus(strings.ToLower(m[2])),
		Action:    m[3],
		FilePath:  m[4],
		Detail:    m[5],
	}, nil
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, " | ", " / ")
}

// Read returns every well-formed entry in the log. A missing log is empty.
func (l *Logger) Read() ([]schemas.AuditLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	var entries []schemas.AuditLogEntry
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := ParseEntry(line)
		if err != nil {
			l.logger.Warn("Skipping malformed audit line.", zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Clear truncates the log. It exists for tooling and is never called during
// a healing session.
func (l *Logger) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Truncate(l.path, 0); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear audit log: %w", err)
	}
	return nil
}

// Follow streams entries appended after the call until ctx is done.
func (l *Logger) Follow(ctx context.Context, fn func(schemas.AuditLogEntry)) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	t, err := tail.TailFile(l.path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Offset: 0, Whence: 2},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to follow audit log: %w", err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				l.logger.Warn("Error reading audit log.", zap.Error(line.Err))
				continue
			}
			entry, err := ParseEntry(line.Text)
			if err != nil {
				continue
			}
			fn(entry)
		}
	}
}
