// File: internal/results/parser.go
package results

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/suture/api/schemas"
	"github.com/xkilldash9x/suture/internal/classifier"
)

// Statuses a result carries when the test did not pass.
const (
	StatusFailed   = "failed"
	StatusTimedOut = "timedOut"
)

// document is the nested reporter shape. A flat document is detected
// separately and has no suites.
type document struct {
	Config *struct {
		RootDir string `json:"rootDir"`
	} `json:"config"`
	Suites []suite `json:"suites"`
}

type suite struct {
	Title  string  `json:"title"`
	File   string  `json:"file"`
	Specs  []spec  `json:"specs"`
	Suites []suite `json:"suites"`
}

type spec struct {
	Title string     `json:"title"`
	File  string     `json:"file"`
	Line  int        `json:"line"`
	Tests []specTest `json:"tests"`
}

type specTest struct {
	Status  string       `json:"status"`
	Results []testResult `json:"results"`
}

type testResult struct {
	Status string        `json:"status"`
	Error  *resultError  `json:"error"`
	Errors []resultError `json:"errors"`
}

type resultError struct {
	Message  string `json:"message"`
	Stack    string `json:"stack"`
	Location *struct {
		File string `json:"file"`
		Line int    `json:"line"`
	} `json:"location"`
}

// flatTest is one entry of the flat document shape. Error may be a plain
// string or an object with message and stack.
type flatTest struct {
	Title  string          `json:"title"`
	Name   string          `json:"name"`
	File   string          `json:"file"`
	Status string          `json:"status"`
	Error  json.RawMessage `json:"error"`
	Stack  string          `json:"stack"`
	Line   int             `json:"line"`
}

// Parser reads prior run documents into TestFailure lists.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a Parser.
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger.Named("results")}
}

// Parse reads the document at path. A missing file is not an error: it
// yields an empty list and a warning.
func (p *Parser) Parse(path string) ([]schemas.TestFailure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.logger.Warn("Results file not found; nothing to heal.", zap.String("path", path))
			return []schemas.TestFailure{}, nil
		}
		return nil, fmt.Errorf("failed to read results file %s: %w", path, err)
	}

	failures, err := p.ParseBytes(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse results file %s: %w", path, err)
	}
	p.logger.Info("Parsed results file.", zap.String("path", path), zap.Int("failures", len(failures)))
	return failures, nil
}

// ParseBytes decodes a document. Relative spec paths resolve against the
// document's config.rootDir when present, otherwise against baseDir.
func (p *Parser) ParseBytes(data []byte, baseDir string) ([]schemas.TestFailure, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return []schemas.TestFailure{}, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var tests []flatTest
		if err := json.Unmarshal(data, &tests); err != nil {
			return nil, fmt.Errorf("invalid flat results array: %w", err)
		}
		return p.fromFlat(tests, baseDir), nil
	}

	var shape struct {
		Tests  []flatTest      `json:"tests"`
		Suites json.RawMessage `json:"suites"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("invalid results document: %w", err)
	}
	if len(shape.Suites) == 0 && shape.Tests != nil {
		return p.fromFlat(shape.Tests, baseDir), nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid nested results document: %w", err)
	}
	root := baseDir
	if doc.Config != nil && doc.Config.RootDir != "" {
		root = doc.Config.RootDir
		if !filepath.IsAbs(root) {
			root = filepath.Join(baseDir, root)
		}
	}

	failures := []schemas.TestFailure{}
	for _, s := range doc.Suites {
		failures = walkSuite(s, nil, root, failures)
	}
	return failures, nil
}

func walkSuite(s suite, titles []string, root string, out []schemas.TestFailure) []schemas.TestFailure {
	// The top level suite of a file is titled with the file name.
	if s.Title != "" && s.Title != s.File {
		titles = append(append([]string(nil), titles...), s.Title)
	}

	for _, sp := range s.Specs {
		file := sp.File
		if file == "" {
			file = s.File
		}
		for _, t := range sp.Tests {
			// Only the first result is authoritative; retries are ignored.
			if len(t.Results) == 0 {
				continue
			}
			r := t.Results[0]
			if !isFailure(r.Status) {
				continue
			}
			failure := schemas.TestFailure{
				TestName: strings.Join(append(append([]string(nil), titles...), sp.Title), " > "),
				FilePath: resolve(root, file),
				Status:   r.Status,
				Line:     sp.Line,
			}
			if e := r.primaryError(); e != nil {
				failure.ErrorMessage = classifier.StripANSI(e.Message)
				failure.Stack = classifier.StripANSI(e.Stack)
				if e.Location != nil && e.Location.Line > 0 {
					failure.Line = e.Location.Line
				}
			}
			if failure.ErrorMessage == "" && r.Status == StatusTimedOut {
				failure.ErrorMessage = "Test timed out"
			}
			out = append(out, failure)
		}
	}

	for _, child := range s.Suites {
		if child.File == "" {
			child.File = s.File
		}
		out = walkSuite(child, titles, root, out)
	}
	return out
}

func (r testResult) primaryError() *resultError {
	if r.Error != nil {
		return r.Error
	}
	if len(r.Errors) > 0 {
		return &r.Errors[0]
	}
	return nil
}

func (p *Parser) fromFlat(tests []flatTest, baseDir string) []schemas.TestFailure {
	failures := []schemas.TestFailure{}
	for _, t := range tests {
		if !isFailure(t.Status) {
			continue
		}
		name := t.Title
		if name == "" {
			name = t.Name
		}
		msg, stack := decodeFlatError(t.Error)
		if stack == "" {
			stack = t.Stack
		}
		failures = append(failures, schemas.TestFailure{
			TestName:     name,
			FilePath:     resolve(baseDir, t.File),
			ErrorMessage: classifier.StripANSI(msg),
			Stack:        classifier.StripANSI(stack),
			Status:       t.Status,
			Line:         t.Line,
		})
	}
	return failures
}

func decodeFlatError(raw json.RawMessage) (string, string) {
	if len(raw) == 0 {
		return "", ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, ""
	}
	var e resultError
	if err := json.Unmarshal(raw, &e); err == nil {
		return e.Message, e.Stack
	}
	return string(raw), ""
}

func isFailure(status string) bool {
	return status == StatusFailed || status == StatusTimedOut
}

func resolve(root, file string) string {
	if file == "" || filepath.IsAbs(file) || root == "" {
		return file
	}
	return filepath.Join(root, file)
}
