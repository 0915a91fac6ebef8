// File: internal/syntax/syntax_test.go
package syntax

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validTS = `import { test, expect } from '@playwright/test';

test('books a room', async ({ page }) => {
  await page.goto('/rooms');
  const button: string = 'Book';
  await page.getByRole('button', { name: button }).first().click();
  await expect(page.getByText('Booking confirmed')).toBeVisible();
});
`

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		code     string
		wantErr  bool
	}{
		{"valid typescript", "booking.spec.ts", validTS, false},
		{"valid javascript", "booking.spec.js", "const { test } = require('@playwright/test');\ntest('x', async () => {});\n", false},
		{"valid tsx", "widget.spec.tsx", "const el = <div className=\"x\">hi</div>;\n", false},
		{"unbalanced braces", "booking.spec.ts", "test('x', async () => {\n  await page.click('a');\n", true},
		{"garbage", "booking.spec.ts", "test(( => ]]", true},
		{"empty", "booking.spec.ts", "   \n", true},
		{"type annotation in javascript", "booking.spec.js", "const x: number = 1;\n", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Check(context.Background(), tt.filename, []byte(tt.code))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformed))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCheckReportsLocation(t *testing.T) {
	code := "const a = 1;\nconst b = ;\n"
	err := Check(context.Background(), "a.ts", []byte(code))
	require.Error(t, err)

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 2, se.Line)
	assert.Contains(t, err.Error(), "line 2")
}
