package claims

import (
	"regexp"
	"strings"
)

// Kind is one category of marketing claim found in generated copy.
type Kind string

const (
	KindSuperlative Kind = "superlative"
	KindPercent     Kind = "percent"
	KindMultiplier  Kind = "multiplier"
	KindComparative Kind = "comparative"
	KindFactual     Kind = "factual"
	KindTestimonial Kind = "testimonial"
)

// Kinds lists every claim kind in a stable order.
var Kinds = []Kind{
	KindSuperlative,
	KindPercent,
	KindMultiplier,
	KindComparative,
	KindFactual,
	KindTestimonial,
}

// Counts holds per-kind claim tallies for one classification pass.
type Counts struct {
	Total  int          `json:"total"`
	ByKind map[Kind]int `json:"byKind"`
}

// claimRule pairs a claim kind with the pattern that detects it. New kinds
// are added as rows here, not as new branches in Classify.
type claimRule struct {
	kind Kind
	re   *regexp.Regexp
}

var claimRules = []claimRule{
	{KindSuperlative, regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(#\s?1|no\.?\s*1|number\s*one|top|best|leading|largest)(?:[^a-z0-9]|$)`)},
	{KindPercent, regexp.MustCompile(`(?i)\b\d+(?:,\d{3})*(?:\.\d+)?\s?(?:%|percent\b)`)},
	{KindMultiplier, regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*x(?:[^\w]|$)|\b\d+(?:\.\d+)?\s+times\s+(?:faster|better|more|higher|greater)\b`)},
	{KindComparative, regexp.MustCompile(`(?i)\b(?:better|worse|more|less|faster|slower|higher|lower)\s+than\b`)},
	{KindTestimonial, regexp.MustCompile(`(?i)\b(?:i|my|we|our)\b.*\b(?:use|love|recommend|trust)\b`)},
}

var (
	digitRe     = regexp.MustCompile(`\d`)
	referenceRe = regexp.MustCompile(`(?i)\b(?:according to|study|report|benchmark)\b`)
	chunkSplit  = regexp.MustCompile(`[\n\r]+`)
)

// Classify returns the claim kinds present in a single chunk of text.
// Kinds are non-exclusive: one chunk may match several.
func Classify(text string) []Kind {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil
	}

	var kinds []Kind
	for _, r := range claimRules {
		if r.re.MatchString(t) {
			kinds = append(kinds, r.kind)
		}
	}

	// "factual" is a soft catch-all: numeric statements not already
	// covered, or text that cites an external reference.
	if referenceRe.MatchString(t) || (digitRe.MatchString(t) && len(kinds) == 0) {
		kinds = append(kinds, KindFactual)
	}

	return kinds
}

// CountText splits text into line chunks and tallies claim kinds per chunk.
func CountText(text string) Counts {
	c := newCounts()
	for _, chunk := range chunkSplit.Split(text, -1) {
		for _, k := range Classify(chunk) {
			c.ByKind[k]++
			c.Total++
		}
	}
	return c
}

// CountCopy walks an arbitrarily nested copy structure (strings, slices,
// maps), flattens it to a text list and tallies claims across all of it.
func CountCopy(copy any) Counts {
	c := newCounts()
	for _, txt := range FlattenText(copy) {
		for _, chunk := range chunkSplit.Split(txt, -1) {
			for _, k := range Classify(chunk) {
				c.ByKind[k]++
				c.Total++
			}
		}
	}
	return c
}

// FlattenText collects every string reachable in a nested copy value.
func FlattenText(value any) []string {
	var texts []string
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			texts = append(texts, t)
		case []any:
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			for _, item := range t {
				walk(item)
			}
		}
	}
	walk(value)
	return texts
}

func newCounts() Counts {
	byKind := make(map[Kind]int, len(Kinds))
	for _, k := range Kinds {
		byKind[k] = 0
	}
	return Counts{ByKind: byKind}
}
