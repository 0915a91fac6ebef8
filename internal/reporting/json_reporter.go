// File: internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/suture/api/schemas"
)

// JSONReporter writes the summary as one indented JSON document.
type JSONReporter struct {
	w io.WriteCloser
}

// NewJSONReporter creates a JSONReporter that owns w.
func NewJSONReporter(w io.WriteCloser) *JSONReporter {
	return &JSONReporter{w: w}
}

func (r *JSONReporter) Write(summary schemas.SessionSummary) error {
	if summary.Results == nil {
		summary.Results = []schemas.HealingResult{}
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session summary: %w", err)
	}
	if _, err := r.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write session summary: %w", err)
	}
	return nil
}

func (r *JSONReporter) Close() error {
	return r.w.Close()
}
