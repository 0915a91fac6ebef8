// File: internal/llmutil/parser_test.go
package llmutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFencedBlocks(t *testing.T) {
	response := "Here is the fix.\n\n```typescript\nimport { test } from '@playwright/test';\ntest('a', async () => {});\n```\n\nAnd a note:\n```\nplain\n```\n```js\nunterminated"

	blocks := ExtractFencedBlocks(response)
	require.Len(t, blocks, 2)
	assert.Equal(t, "typescript", blocks[0].Lang)
	assert.Equal(t, "import { test } from '@playwright/test';\ntest('a', async () => {});", blocks[0].Body)
	assert.Equal(t, "", blocks[1].Lang)
	assert.Equal(t, "plain", blocks[1].Body)
}

func TestExtractFencedBlocksCRLF(t *testing.T) {
	blocks := ExtractFencedBlocks("```ts\r\nconst a = 1;\r\n```\r\n")
	require.Len(t, blocks, 1)
	assert.Equal(t, "const a = 1;", blocks[0].Body)
}

func TestExtractFencedBlocksNone(t *testing.T) {
	assert.Empty(t, ExtractFencedBlocks("no code here"))
	assert.Empty(t, ExtractFencedBlocks(""))
}

type review struct {
	Approved bool     `json:"approved"`
	Concerns []string `json:"concerns"`
}

func TestParseJSONResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"bare", `{"approved": true, "concerns": ["flaky wait"]}`},
		{"fenced", "```json\n{\"approved\": true, \"concerns\": [\"flaky wait\"]}\n```"},
		{"conversational", "Sure! {\"approved\": true, \"concerns\": [\"flaky wait\"]} Hope that helps."},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSONResponse[review](tt.response)
			require.NoError(t, err)
			assert.True(t, got.Approved)
			assert.Equal(t, []string{"flaky wait"}, got.Concerns)
		})
	}

	_, err := ParseJSONResponse[review]("not json at all")
	assert.Error(t, err)
}
