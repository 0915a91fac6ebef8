// File: internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/xkilldash9x/suture/api/schemas"
)

// Reporter writes a finished session summary to an output.
type Reporter interface {
	// Write renders the summary. It may be called once per session.
	Write(summary schemas.SessionSummary) error
	// Close releases the underlying output. Closing stdout is a no-op.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for format writing to outputPath. An empty path or
// "stdout" writes to standard output.
func New(format, outputPath string) (Reporter, error) {
	if !supported(format) {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	if outputPath == "" || outputPath == "stdout" {
		return NewStream(format, os.Stdout)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
	}
	return NewWithWriter(format, f)
}

// NewStream creates a reporter on a writer it does not own. Close leaves w
// open.
func NewStream(format string, w io.Writer) (Reporter, error) {
	return NewWithWriter(format, &nopWriteCloser{w})
}

// NewWithWriter creates a reporter that takes ownership of w.
func NewWithWriter(format string, w io.WriteCloser) (Reporter, error) {
	switch format {
	case "json":
		return NewJSONReporter(w), nil
	case "text", "":
		return NewTextReporter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

func supported(format string) bool {
	switch format {
	case "json", "text", "":
		return true
	}
	return false
}
