// File: internal/llmutil/parser.go
package llmutil

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
)

var (
	// \x60 is a backtick; raw strings cannot hold one.
	jsonObjectRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")
	fenceOpenRegex  = regexp.MustCompile("^\\s*\x60\x60\x60+\\s*([A-Za-z0-9_+.-]*)\\s*$")
	fenceCloseRegex = regexp.MustCompile("^\\s*\x60\x60\x60+\\s*$")
)

// FencedBlock is one fenced code block from a model response.
type FencedBlock struct {
	Lang string
	Body string
}

// ExtractFencedBlocks returns every closed fenced block in text, in order.
// An unterminated trailing block is ignored.
func ExtractFencedBlocks(text string) []FencedBlock {
	var (
		blocks []FencedBlock
		inside bool
		lang   string
		body   []string
	)
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if !inside {
			if m := fenceOpenRegex.FindStringSubmatch(line); m != nil {
				inside, lang, body = true, strings.ToLower(m[1]), nil
			}
			continue
		}
		if fenceCloseRegex.MatchString(line) {
			blocks = append(blocks, FencedBlock{Lang: lang, Body: strings.Join(body, "\n")})
			inside = false
			continue
		}
		body = append(body, line)
	}
	return blocks
}

// ParseJSONResponse decodes a model response into T, tolerating a markdown
// fence or conversational text around the JSON object.
func ParseJSONResponse[T any](response string) (*T, error) {
	response = strings.TrimSpace(response)
	candidate := response

	if strings.HasPrefix(response, "```") {
		if m := jsonObjectRegex.FindStringSubmatch(response); len(m) > 1 {
			candidate = m[1]
		}
	} else if !strings.HasPrefix(response, "{") {
		first := strings.Index(response, "{")
		last := strings.LastIndex(response, "}")
		if first != -1 && last > first {
			candidate = response[first : last+1]
		}
	}

	var result T
	if err := json.Unmarshal([]byte(candidate), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal LLM JSON response: %w. Extracted JSON (truncated): %s", err, truncateString(candidate, 500))
	}
	return &result, nil
}

func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
