// File: internal/autofix/locator.go
package autofix

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Matches V8 frames: "at fn (/abs/path/login.spec.ts:12:7)" or
// "at /abs/path/login.spec.ts:12:7", and the bare "login.spec.ts:12:7" form
// Playwright prints above a code frame.
var frameRegex = regexp.MustCompile(`(?:\(|\s|^)((?:[A-Za-z]:)?[^\s():]+\.(?:[cm]?[jt]sx?)):(\d+)(?::\d+)?\)?`)

// StackLocator finds the failing line of a test file in a stack trace.
type StackLocator struct{}

// Locate returns the first line number the stack reports for file, or 0.
// Frames inside node_modules are ignored.
func (StackLocator) Locate(stack, file string) int {
	if stack == "" || file == "" {
		return 0
	}
	target := filepath.ToSlash(filepath.Clean(file))
	base := filepath.Base(target)

	for _, line := range strings.Split(stack, "\n") {
		for _, m := range frameRegex.FindAllStringSubmatch(line, -1) {
			framePath := filepath.ToSlash(m[1])
			if strings.Contains(framePath, "node_modules/") {
				continue
			}
			if framePath != target && !strings.HasSuffix(target, "/"+strings.TrimPrefix(framePath, "./")) && filepath.Base(framePath) != base {
				continue
			}
			if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

// CodeContext renders size lines of source centred on lineNum, numbered, with
// the failing line marked "->". It returns "" when lineNum is out of range.
func CodeContext(source string, lineNum, size int) string {
	lines := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if lineNum <= 0 || lineNum > len(lines) || size <= 0 {
		return ""
	}

	start := lineNum - size/2 - 1
	if start < 0 {
		start = 0
	}
	end := start + size
	if end > len(lines) {
		end = len(lines)
		start = end - size
		if start < 0 {
			start = 0
		}
	}

	width := len(strconv.Itoa(end))
	out := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		prefix := "  "
		if i+1 == lineNum {
			prefix = "->"
		}
		out = append(out, fmt.Sprintf("%s %*d | %s", prefix, width, i+1, lines[i]))
	}
	return strings.Join(out, "\n")
}
