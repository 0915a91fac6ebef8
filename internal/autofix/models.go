// File: internal/autofix/models.go
package autofix

import "github.com/xkilldash9x/suture/api/schemas"

// State is a step of the per-test healing state machine.
type State string

const (
	StateDiscovered         State = "Discovered"
	StateClassified         State = "Classified"
	StateSkipped            State = "Skipped"
	StateSanitized          State = "Sanitized"
	StateAPIFailed          State = "APIFailed"
	StateAnalyzed           State = "Analyzed"
	StateExtractionFailed   State = "ExtractionFailed"
	StateCodeExtracted      State = "CodeExtracted"
	StateValidationFailed   State = "ValidationFailed"
	StateValidated          State = "Validated"
	StateBackupFailed       State = "BackupFailed"
	StateBackedUp           State = "BackedUp"
	StateApplyFailed        State = "ApplyFailed"
	StateApplied            State = "Applied"
	StateVerificationFailed State = "VerificationFailed"
	StateRolledBack         State = "RolledBack"
	StateVerified           State = "Verified"
	StateErrored            State = "Errored"
)

// FixReview is the model's opinion of a generated fix. It is advisory.
type FixReview struct {
	Approved bool     `json:"approved"`
	Concerns []string `json:"concerns,omitempty"`
	Summary  string   `json:"summary,omitempty"`
}

// attemptOutcome is the result of one call to the reasoning backend.
type attemptOutcome struct {
	attempt int
	result  *schemas.AnalysisResult
	err     error
}

func (o attemptOutcome) ok() bool { return o.err == nil && o.result != nil }
