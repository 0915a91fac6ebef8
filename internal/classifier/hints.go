// File: internal/classifier/hints.go
package classifier

import (
	"fmt"
	"regexp"

	"github.com/xkilldash9x/suture/api/schemas"
)

// severityScores ranks kinds for prioritization, 0 to 100.
var severityScores = map[schemas.ErrorKind]int{
	schemas.KindStrictMatchViolation: 95,
	schemas.KindTimeout:              80,
	schemas.KindNotFound:             75,
	schemas.KindSelector:             70,
	schemas.KindAssertion:            60,
	schemas.KindNavigation:           50,
	schemas.KindNetwork:              40,
	schemas.KindUnknown:              30,
}

// SeverityScore returns the static priority score for kind.
func SeverityScore(kind schemas.ErrorKind) int {
	if s, ok := severityScores[kind]; ok {
		return s
	}
	return severityScores[schemas.KindUnknown]
}

// Hint renders the remediation hint for kind using extracted context.
func Hint(kind schemas.ErrorKind, ctx schemas.ErrorContext) string {
	target := "the target element"
	if ctx.Selector != "" {
		target = fmt.Sprintf("%q", ctx.Selector)
	}

	switch kind {
	case schemas.KindTimeout:
		return fmt.Sprintf("The step waited %dms for %s. Wait for an explicit state with a web-first assertion instead of a fixed delay, and confirm the locator still matches the page.", ctx.TimeoutMs, target)
	case schemas.KindStrictMatchViolation:
		return fmt.Sprintf("The locator %s matched %d elements where one was required. Narrow it with a role, accessible name, test id or .first()/.nth() when order is stable.", target, ctx.ElementCount)
	case schemas.KindAssertion:
		if ctx.Expected != "" || ctx.Received != "" {
			return fmt.Sprintf("The %s assertion expected %s but received %s. Check whether the application behavior or the expectation changed.", orDefault(ctx.AssertionTarget, "value"), orDefault(ctx.Expected, "a different value"), orDefault(ctx.Received, "something else"))
		}
		return "An assertion failed. Check whether the application behavior or the expected value changed."
	case schemas.KindNotFound:
		return fmt.Sprintf("No element matched %s. The markup may have changed; prefer role or text based locators over brittle CSS paths.", target)
	case schemas.KindSelector:
		return fmt.Sprintf("The selector %s is not valid. Fix its syntax or replace it with a getByRole/getByText locator.", target)
	case schemas.KindNavigation:
		if ctx.URL != "" {
			return fmt.Sprintf("Navigation to %s did not complete. Wait for the expected URL or load state before interacting.", ctx.URL)
		}
		return "A navigation did not complete. Wait for the expected URL or load state before interacting."
	case schemas.KindNetwork:
		return "A network request failed during the test. Mock or wait for the request explicitly if the test depends on it."
	default:
		return "The failure did not match a known pattern. Review the error and the surrounding test steps."
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// infrastructureSignatures are failures that editing test code cannot fix.
var infrastructureSignatures = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"connection-refused", regexp.MustCompile(`(?i)(ECONNREFUSED|net::ERR_CONNECTION_REFUSED|connection refused)`)},
	{"dns-failure", regexp.MustCompile(`(?i)(ENOTFOUND|net::ERR_NAME_NOT_RESOLVED|getaddrinfo|EAI_AGAIN)`)},
	{"certificate-error", regexp.MustCompile(`(?i)(net::ERR_CERT_\w+|certificate has expired|self[- ]signed certificate|unable to verify the first certificate|CERT_HAS_EXPIRED)`)},
	{"port-in-use", regexp.MustCompile(`(?i)(EADDRINUSE|address already in use|port \d+ is (?:already )?in use)`)},
	{"server-not-running", regexp.MustCompile(`(?i)(server is not running|webServer.*(?:exited|timed out|failed)|Process from config\.webServer)`)},
}

// InfrastructureSignature reports whether msg is an environment failure and
// which signature matched.
func InfrastructureSignature(msg string) (string, bool) {
	msg = StripANSI(msg)
	for _, sig := range infrastructureSignatures {
		if sig.pattern.MatchString(msg) {
			return sig.name, true
		}
	}
	return "", false
}
