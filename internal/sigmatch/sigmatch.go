// Package sigmatch detects known abuse phrases and structural attack
// patterns in prompt and copy text. Honeypot hits surface as honey:<slug>,
// structural hits as sig:<name>.
package sigmatch

import (
	"regexp"
	"strings"
)

// MaxReasons caps the union of matched codes per scan.
const MaxReasons = 10

// Matcher holds the compiled rule tables.
type Matcher struct {
	honeypots  []Rule
	structures []Rule
}

// New compiles the built-in rule tables.
func New() *Matcher {
	hp := honeypotDefs()
	st := structureDefs()
	for i := range st {
		st[i].re = regexp.MustCompile(st[i].Pattern)
	}
	return &Matcher{honeypots: hp, structures: st}
}

// Scan runs both matchers over the combined text and returns the
// deduplicated union of reason codes, capped at MaxReasons.
func (m *Matcher) Scan(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	lc := strings.ToLower(text)
	seen := make(map[string]struct{})
	var codes []string

	add := func(code string) bool {
		if len(codes) >= MaxReasons {
			return false
		}
		if _, ok := seen[code]; ok {
			return true
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
		return true
	}

	for _, r := range m.honeypots {
		if strings.Contains(lc, r.Phrase) {
			if !add("honey:" + r.Name) {
				return codes
			}
		}
	}
	for _, r := range m.structures {
		if r.re.MatchString(text) {
			if !add("sig:" + r.Name) {
				return codes
			}
		}
	}

	return codes
}

// Weight sums the score bumps for a set of matched codes.
func (m *Matcher) Weight(codes []string) float64 {
	var total float64
	for _, code := range codes {
		name := code
		if i := strings.IndexByte(code, ':'); i >= 0 {
			name = code[i+1:]
		}
		for _, r := range m.honeypots {
			if r.Name == name {
				total += r.Weight
			}
		}
		for _, r := range m.structures {
			if r.Name == name {
				total += r.Weight
			}
		}
	}
	return total
}
