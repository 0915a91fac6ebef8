// File: internal/autofix/backend.go
package autofix

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/suture/api/schemas"
	"github.com/xkilldash9x/suture/internal/llmutil"
)

const (
	baseConfidence        = 40
	codeBlockBonus        = 25
	longExplanationBonus  = 15
	longExplanationLength = 200
	idiomBonus            = 5
	maxIdiomBonus         = 20
)

var (
	importMarker    = regexp.MustCompile(`(?m)^\s*import\s|\brequire\(\s*['"]`)
	testDeclMarker  = regexp.MustCompile(`\b(?:test|it)(?:\.(?:only|skip|describe|step))?\s*\(`)
	assertionMarker = regexp.MustCompile(`\bexpect(?:\.soft)?\s*\(`)

	// Interaction idioms a competent fix tends to use.
	idioms = []*regexp.Regexp{
		regexp.MustCompile(`\.getBy(?:Role|Text|Label|TestId|Placeholder|AltText|Title)\(`),
		regexp.MustCompile(`\.locator\(`),
		regexp.MustCompile(`\.waitFor(?:Selector|URL|LoadState|Response)?\(`),
		regexp.MustCompile(`\.to(?:BeVisible|BeHidden|HaveText|ContainText|HaveURL|HaveCount|HaveValue|BeEnabled)\(`),
		regexp.MustCompile(`\.(?:first|last|nth)\(`),
		regexp.MustCompile(`\.(?:click|fill|press|check|selectOption|hover)\(`),
		regexp.MustCompile(`\bpage\.goto\(`),
	}
)

const systemPrompt = `You repair failing end-to-end browser tests. You receive a classified error, the failing test file and the lines around the failure. Produce the smallest change that makes the test pass against the application as it behaves now. Prefer resilient locators (roles, labels, test ids) and web-first assertions over fixed waits. Never weaken an assertion to make it pass. Return the COMPLETE corrected file in exactly one fenced code block, followed by a short explanation.`

// LLMBackend is the ReasoningBackend backed by a hosted model.
type LLMBackend struct {
	logger *zap.Logger
	client schemas.LLMClient
}

// NewLLMBackend wraps client.
func NewLLMBackend(client schemas.LLMClient, logger *zap.Logger) *LLMBackend {
	return &LLMBackend{
		logger: logger.Named("reasoning"),
		client: client,
	}
}

// AnalyzeFailure asks the model for a corrected test file.
func (b *LLMBackend) AnalyzeFailure(ctx context.Context, data schemas.SanitizedTestData) (*schemas.AnalysisResult, error) {
	req := schemas.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   BuildPrompt(data),
		Tier:         schemas.TierPowerful,
		Options: schemas.GenerationOptions{
			Temperature: 0.1,
		},
	}

	response, err := b.client.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	result := ParseAnalysis(response)
	b.logger.Debug("Model response parsed.",
		zap.String("file", data.FilePath),
		zap.Bool("has_code", result.Code != ""),
		zap.Int("confidence", result.Confidence))
	return result, nil
}

// VerifyFix asks the fast tier whether code plausibly fixes the failure.
func (b *LLMBackend) VerifyFix(ctx context.Context, data schemas.SanitizedTestData, code string) (*FixReview, error) {
	req := schemas.GenerationRequest{
		SystemPrompt: `You review proposed fixes to end-to-end tests. Answer in JSON: {"approved": bool, "concerns": [string], "summary": string}.`,
		UserPrompt:   buildReviewPrompt(data, code),
		Tier:         schemas.TierFast,
		Options: schemas.GenerationOptions{
			ForceJSONFormat: true,
			Temperature:     0.0,
		},
	}

	response, err := b.client.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM review failed: %w", err)
	}
	return llmutil.ParseJSONResponse[FixReview](response)
}

// BuildPrompt renders the analysis prompt. Every field of data is expected
// to be sanitized already.
func BuildPrompt(data schemas.SanitizedTestData) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "A Playwright test in %s is failing.\n\n", data.FilePath)
	fmt.Fprintf(&sb, "**Error type:** %s\n", data.ErrorType)
	if data.Hint != "" {
		fmt.Fprintf(&sb, "**Hint:** %s\n", data.Hint)
	}
	sb.WriteString("\n**Error message:**\n")
	sb.WriteString(indent(data.ErrorMessage))
	sb.WriteString("\n")
	if data.CodeContext != "" {
		sb.WriteString("\n**Lines around the failure (-> marks the failing line):**\n")
		sb.WriteString(indent(data.CodeContext))
		sb.WriteString("\n")
	}
	sb.WriteString("\n**Current test file:**\n```typescript\n")
	sb.WriteString(data.SourceCode)
	sb.WriteString("\n```\n\n")
	sb.WriteString("Return the complete corrected file in ONE fenced ```typescript code block. Keep every test that is not failing unchanged. After the block, explain the root cause and the fix in a few sentences.\n")
	return sb.String()
}

func buildReviewPrompt(data schemas.SanitizedTestData, code string) string {
	return fmt.Sprintf("Error type: %s\nError message:\n%s\n\nProposed file:\n```typescript\n%s\n```\n\nDoes the proposed file address the error without weakening assertions?",
		data.ErrorType, indent(data.ErrorMessage), code)
}

// indent keeps untrusted text visibly inside its prompt section.
func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}

// ParseAnalysis extracts the fix and scores the response.
func ParseAnalysis(response string) *schemas.AnalysisResult {
	code := ExtractCode(response)
	return &schemas.AnalysisResult{
		Code:        code,
		Explanation: response,
		Confidence:  ScoreConfidence(response, code != ""),
	}
}

// ExtractCode returns the longest fenced block that looks like test code:
// it imports something, declares a test or makes an assertion.
func ExtractCode(response string) string {
	var best string
	for _, block := range llmutil.ExtractFencedBlocks(response) {
		body := strings.TrimSpace(block.Body)
		if !looksLikeTestCode(body) {
			continue
		}
		if len(body) > len(best) {
			best = body
		}
	}
	return best
}

func looksLikeTestCode(code string) bool {
	return importMarker.MatchString(code) ||
		testDeclMarker.MatchString(code) ||
		assertionMarker.MatchString(code)
}

// ScoreConfidence is informational. It never gates a fix.
func ScoreConfidence(response string, hasCode bool) int {
	score := baseConfidence
	if hasCode {
		score += codeBlockBonus
	}
	if len(explanationText(response)) > longExplanationLength {
		score += longExplanationBonus
	}
	bonus := 0
	for _, idiom := range idioms {
		if idiom.MatchString(response) {
			bonus += idiomBonus
		}
	}
	if bonus > maxIdiomBonus {
		bonus = maxIdiomBonus
	}
	score += bonus
	if score > 100 {
		score = 100
	}
	return score
}

// explanationText is the response with fenced blocks removed.
func explanationText(response string) string {
	var sb strings.Builder
	inside := false
	for _, line := range strings.Split(response, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inside = !inside
			continue
		}
		if !inside {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String())
}
