// File: internal/classifier/classifier.go
package classifier

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/xkilldash9x/suture/api/schemas"
)

const (
	// DefaultTimeoutMs is reported when a timeout message carries no number.
	DefaultTimeoutMs = 5000
	// DefaultElementCount is reported when a strict-mode message omits the count.
	DefaultElementCount = 2

	maxMessageLength = 500
)

var (
	ansiRegex = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

	timeoutRegex     = regexp.MustCompile(`(?i)\btime(?:d)?\s?out`)
	timeoutMsRegex   = regexp.MustCompile(`(?i)(\d+)\s*ms\b`)
	strictRegex      = regexp.MustCompile(`(?i)strict mode violation`)
	resolvedToRegex  = regexp.MustCompile(`(?i)resolved to (\d+) elements?`)
	assertionRegex   = regexp.MustCompile(`(?i)(expect\(|assertionerror|\bexpected\b[\s\S]*\breceived\b|\bto(?:Be|Equal|Have|Contain|Match)\w*\b)`)
	matcherRegex     = regexp.MustCompile(`expect\(([^)]*)\)\.(?:not\.)?(to\w+)`)
	expectedRegex    = regexp.MustCompile(`(?m)^\s*Expected(?: string| value| pattern| substring)?:\s*(.+)$`)
	receivedRegex    = regexp.MustCompile(`(?m)^\s*Received(?: string| value)?:\s*(.+)$`)
	notFoundRegex    = regexp.MustCompile(`(?i)(not found|no (?:such )?element|resolved to 0 elements|unable to find|could not find|element is not attached)`)
	selectorRegex    = regexp.MustCompile(`(?i)(invalid selector|malformed selector|not a valid selector|failed to parse selector|unexpected token .*selector|unknown engine)`)
	networkRegex     = regexp.MustCompile(`(?i)(net::ERR_\w+|ECONNRESET|ETIMEDOUT|socket hang up|fetch failed|request failed|network error)`)
	navigationRegex  = regexp.MustCompile(`(?i)(page\.goto|navigation|navigating to|frame was detached|target page, context or browser has been closed|page\.waitForURL)`)
	locatorArgRegex  = regexp.MustCompile(`(?:locator|getBy\w+|waitForSelector)\((['"\x60])(.+?)(['"\x60])`)
	selectorArgRegex = regexp.MustCompile(`(?i)selector\s*["'\x60](.+?)["'\x60]`)
	urlRegex         = regexp.MustCompile(`https?://[^\s"'\x60)]+`)
)

// rule is one entry in the ordered classification table. Rules are evaluated
// top to bottom and the first matching rule wins.
type rule struct {
	kind     schemas.ErrorKind
	category string
	severity schemas.Severity
	match    func(msg string) bool
	extract  func(msg string) schemas.ErrorContext
}

var rules = []rule{
	{
		kind:     schemas.KindTimeout,
		category: "timing",
		severity: schemas.SeverityHigh,
		match:    timeoutRegex.MatchString,
		extract:  extractTimeout,
	},
	{
		kind:     schemas.KindStrictMatchViolation,
		category: "locator",
		severity: schemas.SeverityCritical,
		match:    strictRegex.MatchString,
		extract:  extractStrict,
	},
	{
		kind:     schemas.KindAssertion,
		category: "assertion",
		severity: schemas.SeverityMedium,
		match:    assertionRegex.MatchString,
		extract:  extractAssertion,
	},
	{
		kind:     schemas.KindNotFound,
		category: "locator",
		severity: schemas.SeverityHigh,
		match:    notFoundRegex.MatchString,
		extract:  func(msg string) schemas.ErrorContext { return schemas.ErrorContext{Selector: extractSelector(msg)} },
	},
	{
		kind:     schemas.KindSelector,
		category: "locator",
		severity: schemas.SeverityHigh,
		match:    selectorRegex.MatchString,
		extract:  func(msg string) schemas.ErrorContext { return schemas.ErrorContext{Selector: extractSelector(msg)} },
	},
	{
		kind:     schemas.KindNetwork,
		category: "environment",
		severity: schemas.SeverityLow,
		match:    networkRegex.MatchString,
		extract:  func(msg string) schemas.ErrorContext { return schemas.ErrorContext{URL: urlRegex.FindString(msg)} },
	},
	{
		kind:     schemas.KindNavigation,
		category: "navigation",
		severity: schemas.SeverityMedium,
		match:    navigationRegex.MatchString,
		extract:  func(msg string) schemas.ErrorContext { return schemas.ErrorContext{URL: urlRegex.FindString(msg)} },
	},
}

// Classify maps a raw runner error and optional stack to a ClassifiedError.
// It never panics. The stack is consulted only when the message itself
// matches no rule.
func Classify(message, stack string) schemas.ClassifiedError {
	msg := StripANSI(message)
	if r, ok := firstMatch(msg); ok {
		return build(r, msg, msg)
	}
	if st := StripANSI(stack); st != "" {
		if r, ok := firstMatch(st); ok {
			return build(r, msg, st)
		}
	}
	return schemas.ClassifiedError{
		Kind:     schemas.KindUnknown,
		Category: "unknown",
		Severity: schemas.SeverityMedium,
		Message:  summarize(msg),
		Hint:     Hint(schemas.KindUnknown, schemas.ErrorContext{}),
	}
}

func firstMatch(text string) (rule, bool) {
	for _, r := range rules {
		if r.match(text) {
			return r, true
		}
	}
	return rule{}, false
}

func build(r rule, msg, matched string) schemas.ClassifiedError {
	ctx := r.extract(matched)
	return schemas.ClassifiedError{
		Kind:     r.kind,
		Category: r.category,
		Severity: r.severity,
		Message:  summarize(msg),
		Hint:     Hint(r.kind, ctx),
		Context:  ctx,
	}
}

func extractTimeout(msg string) schemas.ErrorContext {
	ctx := schemas.ErrorContext{TimeoutMs: DefaultTimeoutMs, Selector: extractSelector(msg)}
	if m := timeoutMsRegex.FindStringSubmatch(msg); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			ctx.TimeoutMs = n
		}
	}
	return ctx
}

func extractStrict(msg string) schemas.ErrorContext {
	ctx := schemas.ErrorContext{ElementCount: DefaultElementCount, Selector: extractSelector(msg)}
	if m := resolvedToRegex.FindStringSubmatch(msg); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			ctx.ElementCount = n
		}
	}
	return ctx
}

func extractAssertion(msg string) schemas.ErrorContext {
	ctx := schemas.ErrorContext{Selector: extractSelector(msg)}
	if m := matcherRegex.FindStringSubmatch(msg); m != nil {
		ctx.AssertionTarget = m[2]
	}
	if m := expectedRegex.FindStringSubmatch(msg); m != nil {
		ctx.Expected = strings.TrimSpace(m[1])
	}
	if m := receivedRegex.FindStringSubmatch(msg); m != nil {
		ctx.Received = strings.TrimSpace(m[1])
	}
	return ctx
}

func extractSelector(msg string) string {
	if m := locatorArgRegex.FindStringSubmatch(msg); m != nil {
		return m[2]
	}
	if m := selectorArgRegex.FindStringSubmatch(msg); m != nil {
		return m[1]
	}
	return ""
}

// summarize keeps the first non-empty line, bounded in length.
func summarize(msg string) string {
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > maxMessageLength {
			return line[:maxMessageLength] + "..."
		}
		return line
	}
	return ""
}

// StripANSI removes terminal color sequences that runners embed in messages.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}
