// File: internal/security/validate.go
package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrCodeTooLarge is returned by ValidateCodeSize when code exceeds the ceiling.
var ErrCodeTooLarge = errors.New("generated code exceeds maximum size")

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bignore\s+(?:all\s+)?(?:the\s+)?(?:previous|prior|above|earlier)\s+instructions\b`),
	regexp.MustCompile(`(?i)\bdisregard\s+(?:all\s+)?(?:the\s+)?(?:previous|prior|above)\s+(?:instructions|prompts?)\b`),
	regexp.MustCompile(`(?i)\bforget\s+(?:all\s+)?(?:your|previous|prior)\s+instructions\b`),
	regexp.MustCompile(`(?i)\bact\s+as\b`),
	regexp.MustCompile(`(?i)\bpretend\s+(?:to\s+be|you\s+are)\b`),
	regexp.MustCompile(`(?i)\bbypass\s+(?:the\s+)?(?:security|safety|restrictions|filters?)\b`),
	regexp.MustCompile(`(?i)\bwithout\s+(?:any\s+)?restrictions\b`),
	regexp.MustCompile(`(?i)\b(?:reveal|print|show)\s+(?:your\s+)?(?:system\s+prompt|instructions)\b`),
	regexp.MustCompile(`(?i)\bnew\s+instructions\s*:`),
	regexp.MustCompile(`(?i)\b(?:jailbreak|developer\s+mode)\b`),
}

// DetectPromptInjection reports whether text contains any known injection
// phrase. The result is advisory.
func DetectPromptInjection(text string) bool {
	for _, p := range injectionPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// InjectionMatches returns every injection phrase found in text.
func InjectionMatches(text string) []string {
	var found []string
	for _, p := range injectionPatterns {
		if m := p.FindString(text); m != "" {
			found = append(found, m)
		}
	}
	return found
}

type dangerousSignature struct {
	name    string
	pattern *regexp.Regexp
}

var dangerousSignatures = []dangerousSignature{
	{"filesystem deletion", regexp.MustCompile(`\b(?:fs|fsp|fse|fsExtra|promises)\.(?:rm|rmSync|rmdir|rmdirSync|unlink|unlinkSync|remove|removeSync|emptyDir)\s*\(`)},
	{"filesystem deletion", regexp.MustCompile(`\brimraf\b|\brm\s+-rf\b`)},
	{"process execution", regexp.MustCompile(`['"](?:node:)?child_process['"]`)},
	{"process execution", regexp.MustCompile(`(?:^|[^.\w$])(?:exec|execSync|execFile|execFileSync|spawn|spawnSync|fork)\s*\(`)},
	{"dynamic evaluation", regexp.MustCompile(`(?:^|[^.\w$])eval\s*\(`)},
	{"dynamic evaluation", regexp.MustCompile(`\bnew\s+Function\s*\(`)},
	{"process termination", regexp.MustCompile(`\bprocess\.(?:exit|kill|abort)\s*\(`)},
}

// CodeValidation lists every dangerous signature found in generated code.
type CodeValidation struct {
	Valid  bool
	Issues []string
}

// Error joins the issues into one message.
func (c CodeValidation) Error() string {
	return strings.Join(c.Issues, "; ")
}

// ValidateGeneratedCode screens code for dangerous operations.
func ValidateGeneratedCode(code string) CodeValidation {
	result := CodeValidation{Valid: true}
	for _, sig := range dangerousSignatures {
		for _, m := range sig.pattern.FindAllString(code, -1) {
			result.Valid = false
			result.Issues = append(result.Issues, fmt.Sprintf("%s: %s", sig.name, strings.TrimSpace(m)))
		}
	}
	return result
}

// ValidateCodeSize returns code unchanged when it fits, or a truncated
// fallback together with ErrCodeTooLarge.
func (v *Validator) ValidateCodeSize(code string) (string, error) {
	if v.maxCodeSize <= 0 || len(code) <= v.maxCodeSize {
		return code, nil
	}
	truncated := v.truncate(code, v.maxCodeSize)
	return truncated, fmt.Errorf("%w: %d bytes, limit %d", ErrCodeTooLarge, len(code), v.maxCodeSize)
}
