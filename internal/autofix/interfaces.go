// File: internal/autofix/interfaces.go
package autofix

import (
	"context"

	"github.com/xkilldash9x/suture/api/schemas"
)

// ReasoningBackend proposes fixes for failing tests.
type ReasoningBackend interface {
	// AnalyzeFailure returns the parsed response for one failure. An empty
	// Code in the result means the response held no usable block.
	AnalyzeFailure(ctx context.Context, data schemas.SanitizedTestData) (*schemas.AnalysisResult, error)
	// VerifyFix asks for a second opinion on code before it is applied.
	VerifyFix(ctx context.Context, data schemas.SanitizedTestData, code string) (*FixReview, error)
}

// TestRunner re-executes a single test file. A nil error means every test
// in the file passed.
type TestRunner interface {
	Run(ctx context.Context, file string) error
}

// Committer records a verified fix in version control.
type Committer interface {
	Commit(ctx context.Context, file, message string) (string, error)
}
