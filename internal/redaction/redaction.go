// Package redaction scrubs secrets out of captured network headers and
// console messages before they reach the store, so a leaked API key or
// session cookie in a dev session never ends up persisted in the ring or
// broadcast to /events subscribers. Adapted from the teacher's MCP
// tool-response redaction engine (internal/redaction/redaction.go);
// RE2 patterns and the Luhn check are carried over verbatim, the JSON
// tool-result walking is replaced with a types.Event walk.
package redaction

import (
	"regexp"
	"strings"

	"github.com/devlens/devlens/internal/types"
)

// compiledPattern holds a pre-compiled regex and its replacement string.
type compiledPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
	validate    func(match string) bool
}

// Engine applies a set of compiled patterns to captured event text. Safe
// for concurrent use after construction.
type Engine struct {
	patterns []compiledPattern
}

var builtinPatterns = []struct {
	name     string
	pattern  string
	validate func(string) bool
}{
	{name: "aws-key", pattern: `AKIA[0-9A-Z]{16}`},
	{name: "bearer-token", pattern: `Bearer [A-Za-z0-9\-._~+/]+=*`},
	{name: "basic-auth", pattern: `Basic [A-Za-z0-9+/]+=*`},
	{name: "jwt", pattern: `eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]+`},
	{name: "github-pat", pattern: `(ghp_[A-Za-z0-9]{36,}|github_pat_[A-Za-z0-9_]{36,})`},
	{name: "private-key", pattern: `-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`},
	{name: "credit-card", pattern: `\b([0-9]{4}[- ]?[0-9]{4}[- ]?[0-9]{4}[- ]?[0-9]{4})\b`, validate: luhnValid},
	{name: "ssn", pattern: `\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`},
	{name: "api-key", pattern: `(?i)(api[_-]?key|apikey|secret[_-]?key)\s*[:=]\s*\S+`},
	{name: "session-cookie", pattern: `(?i)(session|sid|token)\s*=\s*[A-Za-z0-9+/=_-]{16,}`},
}

// headerNames are request/response header keys redacted unconditionally,
// regardless of pattern match, since their values are secrets by convention.
var headerNames = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,
	"x-api-key":     true,
}

// New builds an Engine with the built-in pattern set.
func New() *Engine {
	e := &Engine{}
	for _, bp := range builtinPatterns {
		re, err := regexp.Compile(bp.pattern)
		if err != nil {
			continue // unreachable for the built-ins, kept defensive for future additions
		}
		e.patterns = append(e.patterns, compiledPattern{
			name:        bp.name,
			regex:       re,
			replacement: "[redacted:" + bp.name + "]",
			validate:    bp.validate,
		})
	}
	return e
}

// Redact applies every pattern to input and returns the scrubbed result.
func (e *Engine) Redact(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, p := range e.patterns {
		if p.validate != nil {
			result = p.regex.ReplaceAllStringFunc(result, func(match string) string {
				if p.validate(match) {
					return p.replacement
				}
				return match
			})
		} else {
			result = p.regex.ReplaceAllString(result, p.replacement)
		}
	}
	return result
}

// ScrubEvent redacts secrets in place within a network or console event
// body. Other event kinds are left untouched.
func (e *Engine) ScrubEvent(evt *types.Event) {
	switch evt.Tag {
	case types.TagNetwork:
		if evt.Network == nil {
			return
		}
		evt.Network.RequestHeaders = e.scrubHeaders(evt.Network.RequestHeaders)
		evt.Network.ResponseHeaders = e.scrubHeaders(evt.Network.ResponseHeaders)
	case types.TagConsole:
		if evt.Console == nil {
			return
		}
		evt.Console.Message = e.Redact(evt.Console.Message)
		for i, arg := range evt.Console.Args {
			evt.Console.Args[i] = e.Redact(arg)
		}
	}
}

func (e *Engine) scrubHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	for k, v := range headers {
		if headerNames[strings.ToLower(k)] {
			headers[k] = "[redacted]"
			continue
		}
		headers[k] = e.Redact(v)
	}
	return headers
}

// luhnValid reports whether a numeric string passes the Luhn checksum,
// used to keep the credit-card pattern from firing on arbitrary 16-digit
// numbers (trace ids, phone numbers).
func luhnValid(number string) bool {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	sum := 0
	alt := false
	for i := len(digits) - 1; i >= 0; i-- {
		n := int(digits[i] - '0')
		if alt {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		alt = !alt
	}
	return sum%10 == 0
}
