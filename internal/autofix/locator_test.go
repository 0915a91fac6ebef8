// File: internal/autofix/locator_test.go
package autofix

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStackLocator(t *testing.T) {
	var loc StackLocator
	file := "/repo/tests/login.spec.ts"

	tests := []struct {
		name  string
		stack string
		want  int
	}{
		{"v8 frame with function", "Error: boom\n    at Context.<anonymous> (/repo/tests/login.spec.ts:12:7)", 12},
		{"bare frame", "    at /repo/tests/login.spec.ts:33:1", 33},
		{"playwright header", "  login.spec.ts:8:20 › signs in", 8},
		{"skips node_modules", "    at x (/repo/node_modules/playwright/lib/login.spec.ts:90:1)\n    at /repo/tests/login.spec.ts:4:2", 4},
		{"other file only", "    at /repo/tests/other.spec.ts:5:5", 0},
		{"empty", "", 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, loc.Locate(tt.stack, file))
		})
	}
}

func TestCodeContext(t *testing.T) {
	source := "l1\nl2\nl3\nl4\nl5\nl6\nl7\nl8\nl9\nl10\n"

	got := CodeContext(source, 5, 4)
	assert.Equal(t, "   3 | l3\n   4 | l4\n-> 5 | l5\n   6 | l6", got)

	// Windows near the start and end are shifted, not shrunk.
	assert.Equal(t, "-> 1 | l1\n   2 | l2\n   3 | l3", CodeContext(source, 1, 3))
	assert.Equal(t, "    8 | l8\n    9 | l9\n-> 10 | l10", CodeContext(source, 10, 3))

	assert.Empty(t, CodeContext(source, 0, 3))
	assert.Empty(t, CodeContext(source, 11, 3))
	assert.Empty(t, CodeContext("", 1, 3))
}
