// File: internal/security/sanitize.go
package security

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/xkilldash9x/suture/internal/config"
)

// Placeholder tokens substituted for sensitive substrings.
const (
	TruncatedMarker  = "[TRUNCATED]"
	PlaceholderPath  = "[PATH]"
	PlaceholderHome  = "[HOME]"
	PlaceholderEmail = "[EMAIL]"
	PlaceholderIP    = "[IP]"
	PlaceholderURL   = "[URL]"
	PlaceholderToken = "[REDACTED_TOKEN]"
	PlaceholderPort  = "[PORT]"
)

var (
	fileURLPattern     = regexp.MustCompile(`(?i)\bfile://[^\s"'<>()\x60]*`)
	urlPattern         = regexp.MustCompile(`(?i)\b(?:https?|wss?|ftp)://[^\s"'<>()\x60]+`)
	emailPattern       = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	// Directory segments may hold single spaces; the last segment may not.
	windowsPathPattern = regexp.MustCompile(`\b[A-Za-z]:\\(?:[^\\\s"'<>|*?()]+(?: [^\\\s"'<>|*?()]+)*\\)*[^\\\s"'<>|*?()]*`)
	homePathPattern    = regexp.MustCompile(`(?:/home|/Users)/[^/\s"'()\x60]+`)
	unixPathPattern    = regexp.MustCompile(`(^|[\s"'(=\x60])/(?:[\w.\-@]+/)+[\w.\-@]*`)
	ipv4Pattern        = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

	bearerPattern      = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9\-._~+/]+=*`)
	jwtPattern         = regexp.MustCompile(`eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]+`)
	longTokenPattern   = regexp.MustCompile(`\b[A-Za-z0-9_\-]{40,}\b`)
	localhostPortRegex = regexp.MustCompile(`(?i)\b(localhost|127\.0\.0\.1|0\.0\.0\.0):\d{2,5}\b`)
)

var loopbackHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"0.0.0.0":   true,
	"::1":       true,
}

// Validator holds the sanitization ceilings and the resolved home directory.
// It is safe for concurrent use.
type Validator struct {
	maxInputLength int
	maxCodeSize    int
	home           string
}

// New creates a Validator from the security configuration.
func New(cfg config.SecurityConfig) *Validator {
	home, _ := homedir.Dir()
	// A root home would mask every absolute path as [HOME].
	if len(home) <= 1 {
		home = ""
	}
	return &Validator{
		maxInputLength: cfg.MaxInputLength,
		maxCodeSize:    cfg.MaxCodeSize,
		home:           home,
	}
}

// SanitizeForPrompt prepares free text for inclusion in an outbound prompt.
func (v *Validator) SanitizeForPrompt(text string) string {
	text = v.truncate(text, v.maxInputLength)
	text = v.maskLocations(text, true)
	return neutralizeDelimiters(text)
}

// SanitizeErrorMessage is SanitizeForPrompt plus credential and port masking.
func (v *Validator) SanitizeErrorMessage(text string) string {
	text = v.truncate(text, v.maxInputLength)
	text = maskCredentials(text)
	text = v.maskLocations(text, true)
	text = localhostPortRegex.ReplaceAllString(text, "${1}:"+PlaceholderPort)
	return neutralizeDelimiters(text)
}

// SanitizeCode masks locations and credentials in source code. Quotes and
// generic absolute paths are kept so that routes like page.goto('/rooms/1')
// survive and the model sees code that still parses.
func (v *Validator) SanitizeCode(code string) string {
	code = maskCredentials(code)
	code = v.maskLocations(code, false)
	return strings.ReplaceAll(code, "```", "'''")
}

func (v *Validator) truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	cut := limit
	// Do not split a multi-byte rune.
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n" + TruncatedMarker
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

func (v *Validator) maskLocations(text string, absolutePaths bool) string {
	text = fileURLPattern.ReplaceAllString(text, PlaceholderPath)
	text = urlPattern.ReplaceAllStringFunc(text, func(raw string) string {
		if isLoopbackURL(raw) {
			return raw
		}
		return PlaceholderURL
	})
	text = emailPattern.ReplaceAllString(text, PlaceholderEmail)
	text = windowsPathPattern.ReplaceAllString(text, PlaceholderPath)
	if v.home != "" {
		text = strings.ReplaceAll(text, v.home, PlaceholderHome)
	}
	text = homePathPattern.ReplaceAllString(text, PlaceholderHome)
	if absolutePaths {
		text = unixPathPattern.ReplaceAllString(text, "${1}"+PlaceholderPath)
	}
	text = ipv4Pattern.ReplaceAllStringFunc(text, func(ip string) string {
		if loopbackHosts[ip] {
			return ip
		}
		return PlaceholderIP
	})
	return text
}

func maskCredentials(text string) string {
	text = bearerPattern.ReplaceAllString(text, "Bearer "+PlaceholderToken)
	text = jwtPattern.ReplaceAllString(text, PlaceholderToken)
	return longTokenPattern.ReplaceAllString(text, PlaceholderToken)
}

func isLoopbackURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return loopbackHosts[strings.ToLower(u.Hostname())]
}

// neutralizeDelimiters stops sanitized text from closing the prompt section
// it is embedded in.
func neutralizeDelimiters(text string) string {
	text = strings.ReplaceAll(text, "```", "'''")
	return strings.ReplaceAll(text, `"`, `\"`)
}

var placeholders = []string{
	PlaceholderPath, PlaceholderHome, PlaceholderEmail, PlaceholderIP,
	PlaceholderURL, PlaceholderToken, PlaceholderPort, TruncatedMarker,
}

// Placeholders returns the placeholder tokens present in text. Generated code
// that still carries one would write a masked value back into the test.
func Placeholders(text string) []string {
	var found []string
	for _, p := range placeholders {
		if strings.Contains(text, p) {
			found = append(found, p)
		}
	}
	return found
}
