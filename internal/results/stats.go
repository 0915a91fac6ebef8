// File: internal/results/stats.go
package results

import (
	"fmt"
	"sort"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/suture/api/schemas"
	"github.com/xkilldash9x/suture/internal/classifier"
)

// Stats are counts derived from a failure list. They are never stored.
type Stats struct {
	Total      int                       `json:"total"`
	ByKind     map[schemas.ErrorKind]int `json:"by_kind"`
	BySeverity map[schemas.Severity]int  `json:"by_severity"`
	Infra      int                       `json:"infrastructure"`
}

// Summarize classifies every failure and tallies kind and severity.
func Summarize(failures []schemas.TestFailure) Stats {
	s := Stats{
		Total:      len(failures),
		ByKind:     make(map[schemas.ErrorKind]int),
		BySeverity: make(map[schemas.Severity]int),
	}
	for _, f := range failures {
		c := classifier.Classify(f.ErrorMessage, f.Stack)
		s.ByKind[c.Kind]++
		s.BySeverity[c.Severity]++
		if _, infra := classifier.InfrastructureSignature(f.ErrorMessage); infra {
			s.Infra++
		}
	}
	return s
}

// RankedFailure pairs a failure with its classification and priority score.
type RankedFailure struct {
	schemas.TestFailure
	Classification schemas.ClassifiedError
	Score          int
}

// Prioritize returns failures ordered by descending severity score, stable on
// ties. It is for display; healing always follows document order.
func Prioritize(failures []schemas.TestFailure) []RankedFailure {
	ranked := make([]RankedFailure, 0, len(failures))
	for _, f := range failures {
		c := classifier.Classify(f.ErrorMessage, f.Stack)
		ranked = append(ranked, RankedFailure{TestFailure: f, Classification: c, Score: classifier.SeverityScore(c.Kind)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}

// String renders the stats as a short multi-line summary.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d failing tests (%d infrastructure)\n", s.Total, s.Infra)
	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&b, "  %-24s %d\n", k, s.ByKind[schemas.ErrorKind(k)])
	}
	for _, sev := range []schemas.Severity{schemas.SeverityCritical, schemas.SeverityHigh, schemas.SeverityMedium, schemas.SeverityLow} {
		if n := s.BySeverity[sev]; n > 0 {
			fmt.Fprintf(&b, "  severity %-15s %d\n", sev, n)
		}
	}
	return b.String()
}

// RunOutcome counts passing and failing tests in a complete report.
type RunOutcome struct {
	Passed  int
	Failed  int
	Skipped int
}

// OutcomeFromReport reads per-test statuses from a nested report. A flaky
// test passed only on retry and counts as failed.
func OutcomeFromReport(data []byte) (RunOutcome, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return RunOutcome{}, fmt.Errorf("invalid report: %w", err)
	}
	var out RunOutcome
	var walk func(s suite)
	walk = func(s suite) {
		for _, sp := range s.Specs {
			for _, t := range sp.Tests {
				switch testStatus(t) {
				case "expected":
					out.Passed++
				case "skipped":
					out.Skipped++
				default:
					out.Failed++
				}
			}
		}
		for _, child := range s.Suites {
			walk(child)
		}
	}
	for _, s := range doc.Suites {
		walk(s)
	}
	return out, nil
}

func testStatus(t specTest) string {
	if t.Status != "" {
		return t.Status
	}
	if len(t.Results) == 0 {
		return "skipped"
	}
	switch t.Results[len(t.Results)-1].Status {
	case "passed":
		return "expected"
	case "skipped":
		return "skipped"
	default:
		return "unexpected"
	}
}
