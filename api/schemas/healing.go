package schemas

import "time"

// TestFailure is one failed or timed-out test taken from a prior run.
type TestFailure struct {
	TestName     string `json:"test_name"`
	FilePath     string `json:"file_path"`
	ErrorMessage string `json:"error_message"`
	Stack        string `json:"stack,omitempty"`
	Status       string `json:"status,omitempty"`
	Line         int    `json:"line,omitempty"`
}

// ErrorKind is the classified category of a failure.
type ErrorKind string

const (
	KindTimeout              ErrorKind = "timeout"
	KindStrictMatchViolation ErrorKind = "strict-match-violation"
	KindAssertion            ErrorKind = "assertion"
	KindNotFound             ErrorKind = "not-found"
	KindSelector             ErrorKind = "selector"
	KindNavigation           ErrorKind = "navigation"
	KindNetwork              ErrorKind = "network"
	KindUnknown              ErrorKind = "unknown"
)

// Severity ranks how urgently a failure needs attention.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ErrorContext holds values pulled out of an error message. Zero values mean
// the field did not apply to the matched kind.
type ErrorContext struct {
	TimeoutMs       int    `json:"timeout_ms,omitempty"`
	ElementCount    int    `json:"element_count,omitempty"`
	Selector        string `json:"selector,omitempty"`
	AssertionTarget string `json:"assertion_target,omitempty"`
	Expected        string `json:"expected,omitempty"`
	Received        string `json:"received,omitempty"`
	URL             string `json:"url,omitempty"`
}

// ClassifiedError is the structured diagnosis of a TestFailure.
type ClassifiedError struct {
	Kind     ErrorKind    `json:"kind"`
	Category string       `json:"category"`
	Severity Severity     `json:"severity"`
	Message  string       `json:"message"`
	Hint     string       `json:"hint"`
	Context  ErrorContext `json:"context"`
}

// SanitizedTestData is everything that leaves the process for one test.
type SanitizedTestData struct {
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
	SourceCode   string `json:"source_code"`
	FilePath     string `json:"file_path"`
	Hint         string `json:"hint,omitempty"`
	CodeContext  string `json:"code_context,omitempty"`
}

// AnalysisResult is a parsed reasoning-service response. An empty Code means
// no usable block was found.
type AnalysisResult struct {
	Code        string `json:"code,omitempty"`
	Explanation string `json:"explanation"`
	Confidence  int    `json:"confidence"`
}

// Backup describes a stored copy of a file taken before mutation.
type Backup struct {
	OriginalPath string    `json:"original_path"`
	BackupPath   string    `json:"backup_path"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditStatus is the outcome recorded with an audit entry.
type AuditStatus string

const (
	AuditSuccess AuditStatus = "success"
	AuditWarning AuditStatus = "warning"
	AuditFailure AuditStatus = "failure"
)

// AuditLogEntry is one line of the audit log.
type AuditLogEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	Action    string      `json:"action"`
	FilePath  string      `json:"file_path"`
	Detail    string      `json:"detail"`
	Status    AuditStatus `json:"status"`
}

// HealingOutcome says why a test ended where it did.
type HealingOutcome string

const (
	OutcomeSkipped            HealingOutcome = "skipped"
	OutcomeAPIFailed          HealingOutcome = "api_failed"
	OutcomeExtractionFailed   HealingOutcome = "extraction_failed"
	OutcomeValidationRejected HealingOutcome = "validation_rejected"
	OutcomeBackupFailed       HealingOutcome = "backup_failed"
	OutcomeApplyFailed        HealingOutcome = "apply_failed"
	OutcomeRolledBack         HealingOutcome = "rolled_back"
	OutcomeVerified           HealingOutcome = "verified"
	OutcomeDryRun             HealingOutcome = "dry_run"
	OutcomeErrored            HealingOutcome = "errored"
)

// HealingResult is the final verdict for one test.
type HealingResult struct {
	ID             string          `json:"id"`
	TestName       string          `json:"test_name"`
	FilePath       string          `json:"file_path"`
	ErrorSummary   string          `json:"error_summary"`
	Classification ClassifiedError `json:"classification"`
	// AppliedFix is empty when no code was written.
	AppliedFix string         `json:"applied_fix,omitempty"`
	Success    bool           `json:"success"`
	Outcome    HealingOutcome `json:"outcome"`
	FinalState string         `json:"final_state"`
	Reason     string         `json:"reason,omitempty"`
	Attempts   int            `json:"attempts"`
	Confidence int            `json:"confidence"`
	BackupPath string         `json:"backup_path,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// SessionSummary aggregates the results of one healing session.
type SessionSummary struct {
	SessionID  string                 `json:"session_id"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Results    []HealingResult        `json:"results"`
	Counts     map[HealingOutcome]int `json:"counts"`
}

// NewSessionSummary tallies outcomes for results.
func NewSessionSummary(id string, started, finished time.Time, results []HealingResult) SessionSummary {
	counts := make(map[HealingOutcome]int)
	for _, r := range results {
		counts[r.Outcome]++
	}
	return SessionSummary{
		SessionID:  id,
		StartedAt:  started,
		FinishedAt: finished,
		Results:    results,
		Counts:     counts,
	}
}

// Healed returns the number of verified fixes.
func (s SessionSummary) Healed() int { return s.Counts[OutcomeVerified] }
