// File: internal/results/discover.go
package results

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrResultsNotFound is returned when no results document can be located.
var ErrResultsNotFound = errors.New("no test results file found")

// ConventionalPaths are checked, in order, before any directory walk.
var ConventionalPaths = []string{
	filepath.Join("test-results", "results.json"),
	"results.json",
	filepath.Join("playwright-report", "results.json"),
}

const maxSearchDepth = 3

var skippedDirs = map[string]bool{
	"node_modules":     true,
	"vendor":           true,
	"bower_components": true,
	".pnpm-store":      true,
}

// FindResultsFile locates a results document under baseDir. The fallback
// search stops at depth 3 and skips hidden and dependency-cache directories.
func FindResultsFile(baseDir string) (string, error) {
	for _, rel := range ConventionalPaths {
		candidate := filepath.Join(baseDir, rel)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	var found string
	errStop := errors.New("stop")
	err := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(baseDir, path)
		if relErr != nil {
			return nil
		}
		depth := 0
		if rel != "." {
			depth = len(strings.Split(rel, string(filepath.Separator)))
		}

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || skippedDirs[name] || depth > maxSearchDepth {
				return fs.SkipDir
			}
			return nil
		}
		if d.Name() == "results.json" && depth <= maxSearchDepth+1 {
			found = path
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return "", fmt.Errorf("failed to search %s: %w", baseDir, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w under %s", ErrResultsNotFound, baseDir)
	}
	return found, nil
}
