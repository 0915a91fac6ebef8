// File: internal/reporting/text_reporter.go
package reporting

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/xkilldash9x/suture/api/schemas"
)

const maxCellWidth = 48

var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorDim    = lipgloss.Color("240")
)

// TextReporter writes a table of results followed by outcome totals. Colors
// are only emitted when the writer is a terminal.
type TextReporter struct {
	w io.WriteCloser

	title  lipgloss.Style
	header lipgloss.Style
	cell   lipgloss.Style
	muted  lipgloss.Style
	good   lipgloss.Style
	bad    lipgloss.Style
	warn   lipgloss.Style
}

// NewTextReporter creates a TextReporter that owns w.
func NewTextReporter(w io.WriteCloser) *TextReporter {
	re := lipgloss.NewRenderer(w)
	return &TextReporter{
		w:      w,
		title:  re.NewStyle().Bold(true),
		header: re.NewStyle().Bold(true).Padding(0, 1),
		cell:   re.NewStyle().Padding(0, 1),
		muted:  re.NewStyle().Foreground(colorDim),
		good:   re.NewStyle().Foreground(colorGreen),
		bad:    re.NewStyle().Foreground(colorRed),
		warn:   re.NewStyle().Foreground(colorYellow),
	}
}

func (r *TextReporter) Write(summary schemas.SessionSummary) error {
	var sb strings.Builder

	sb.WriteString(r.title.Render("Healing session " + summary.SessionID))
	sb.WriteString("\n")
	if !summary.StartedAt.IsZero() && !summary.FinishedAt.IsZero() {
		sb.WriteString(r.muted.Render(fmt.Sprintf("duration %s", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if len(summary.Results) == 0 {
		sb.WriteString("No failed tests to heal.\n")
	} else {
		r.table(&sb, summary.Results)
	}

	sb.WriteString(r.totals(summary))
	sb.WriteString("\n")

	if _, err := io.WriteString(r.w, sb.String()); err != nil {
		return fmt.Errorf("failed to write session summary: %w", err)
	}
	return nil
}

func (r *TextReporter) Close() error {
	return r.w.Close()
}

func (r *TextReporter) table(sb *strings.Builder, results []schemas.HealingResult) {
	headers := []string{"TEST", "FILE", "OUTCOME", "ATTEMPTS", "CONFIDENCE", "REASON"}
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		rows = append(rows, []string{
			clip(res.TestName),
			clip(res.FilePath),
			string(res.Outcome),
			fmt.Sprintf("%d", res.Attempts),
			fmt.Sprintf("%d", res.Confidence),
			clip(res.Reason),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, c := range row {
			if w := lipgloss.Width(c); w > widths[i] {
				widths[i] = w
			}
		}
	}
	// Width includes the cell padding.
	for i := range widths {
		widths[i] += 2
	}

	sep := r.muted.Render("|")
	for i, h := range headers {
		sb.WriteString(r.header.Width(widths[i]).Render(h))
		if i < len(headers)-1 {
			sb.WriteString(sep)
		}
	}
	sb.WriteString("\n")

	total := len(headers) - 1
	for _, w := range widths {
		total += w
	}
	sb.WriteString(r.muted.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")

	for j, row := range rows {
		for i, c := range row {
			style := r.cell
			if i == 2 {
				style = r.outcomeStyle(results[j].Outcome).Padding(0, 1)
			}
			sb.WriteString(style.Width(widths[i]).Render(c))
			if i < len(row)-1 {
				sb.WriteString(sep)
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func (r *TextReporter) totals(summary schemas.SessionSummary) string {
	outcomes := make([]string, 0, len(summary.Counts))
	for o, n := range summary.Counts {
		if n > 0 {
			outcomes = append(outcomes, string(o))
		}
	}
	sort.Strings(outcomes)

	parts := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		n := summary.Counts[schemas.HealingOutcome(o)]
		parts = append(parts, r.outcomeStyle(schemas.HealingOutcome(o)).Render(fmt.Sprintf("%s=%d", o, n)))
	}

	line := fmt.Sprintf("Healed %d of %d", summary.Healed(), len(summary.Results))
	if len(parts) > 0 {
		line += " (" + strings.Join(parts, ", ") + ")"
	}
	return line
}

func (r *TextReporter) outcomeStyle(o schemas.HealingOutcome) lipgloss.Style {
	switch o {
	case schemas.OutcomeVerified:
		return r.good
	case schemas.OutcomeSkipped, schemas.OutcomeDryRun:
		return r.warn
	default:
		return r.bad
	}
}

func clip(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxCellWidth {
		return s
	}
	return s[:maxCellWidth-3] + "..."
}
