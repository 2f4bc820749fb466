// Package degrade narrows downstream behavior for strict-mode requests:
// claimy copy is neutralized and rendering falls back to safe HTML instead
// of blocking the request outright.
package degrade

import (
	"regexp"
	"strings"

	"github.com/supgate-ai/supgate/internal/policy"
)

// Hint names understood by downstream handlers.
const (
	HintNeutralizeClaims = "neutralize-claims"
	HintNoJS             = "no-js"
	HintShadow           = "shadow"
)

const maxLineLen = 280

var (
	superlativeRe = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(#\s?1|no\.?\s*1|number\s*one|top|best|leading|largest)(?:[^a-z0-9]|$)`)
	percentRe     = regexp.MustCompile(`(?i)\b\d+(?:,\d{3})*(?:\.\d+)?\s?(?:%|percent\b)`)
	multiplierRe  = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*x(?:[^\w]|$)`)
	comparativeRe = regexp.MustCompile(`(?i)\b(?:better|faster|cheaper|lighter|stronger|smarter)\b`)
	spacesRe      = regexp.MustCompile(`\s{2,}`)
)

// Hints derives degrade hints from decision reasons.
func Hints(reasons []string) []string {
	var hints []string
	seen := make(map[string]struct{})
	add := func(h string) {
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		hints = append(hints, h)
	}

	for _, r := range reasons {
		switch {
		case r == policy.ReasonUnprovenClaims || r == policy.ReasonLowEvidence || r == policy.ReasonPromptRisk:
			add(HintNeutralizeClaims)
		case r == policy.ReasonHighCLS || r == policy.ReasonSlowLCP || r == policy.ReasonLQRLow:
			add(HintNoJS)
		case strings.HasPrefix(r, "abuse:"):
			add(HintShadow)
		}
	}
	return hints
}

// NeutralizeCopy rewrites claimy strings in a copy payload into neutral
// phrasing. Non-string values pass through untouched.
func NeutralizeCopy(copy map[string]any) map[string]any {
	out := make(map[string]any, len(copy))
	for k, v := range copy {
		if s, ok := v.(string); ok {
			out[k] = NeutralizeLine(s)
			continue
		}
		out[k] = v
	}
	return out
}

// NeutralizeLine strips or softens claim language in a single line.
func NeutralizeLine(s string) string {
	out := s
	out = superlativeRe.ReplaceAllString(out, " trusted ")
	out = percentRe.ReplaceAllString(out, " ")
	out = multiplierRe.ReplaceAllString(out, " improved ")
	out = comparativeRe.ReplaceAllString(out, " designed ")
	out = spacesRe.ReplaceAllString(out, " ")
	out = strings.TrimSpace(out)
	if len(out) > maxLineLen {
		out = out[:maxLineLen]
	}
	return out
}
