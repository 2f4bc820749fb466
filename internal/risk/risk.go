// Package risk composes detection signals into the structured risk vector
// consumed by the decision engine. Computation is pure: no I/O, no shared
// state.
package risk

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/supgate-ai/supgate/internal/claims"
	"github.com/supgate-ai/supgate/internal/sigmatch"
)

// CopyClaims is the legacy per-field claim accounting path.
type CopyClaims struct {
	Superlative         int `json:"superlative"`
	Percent             int `json:"percent"`
	Multiplier          int `json:"multiplier"`
	Comparative         int `json:"comparative"`
	Factual             int `json:"factual"`
	Testimonial         int `json:"testimonial"`
	MissingProof        int `json:"missing_proof"`
	EvidenceCoveragePct int `json:"evidence_coverage_pct"`
}

// Perf carries composition-pipeline performance estimates, null-safe.
type Perf struct {
	CLSEst   *float64 `json:"cls_est"`
	LCPEstMs *int     `json:"lcp_est_ms"`
}

// A11y carries the accessibility verdict, null when not audited.
type A11y struct {
	Pass *bool `json:"pass"`
}

// PII flags detected personally-identifiable information.
type PII struct {
	Present bool `json:"present"`
}

// Abuse carries the signature-matcher outcome.
type Abuse struct {
	Sketchy bool     `json:"sketchy"`
	Reasons []string `json:"reasons"`
}

// UX carries the layout-quality audit, null score when not audited.
type UX struct {
	Score  *float64 `json:"score"`
	Issues []string `json:"issues,omitempty"`
}

// Vector is the composed risk object. Two claim-accounting paths coexist:
// CopyClaims.MissingProof checks allow-listed fields against per-field
// evidence, while ClaimTotal/EvidenceCoverage tally all copy text against
// the aggregate proof counts. Both feed the decision engine independently.
type Vector struct {
	PromptRisk       bool               `json:"prompt_risk"`
	CopyClaims       CopyClaims         `json:"copy_claims"`
	ClaimTotal       int                `json:"claim_total"`
	ClaimKinds       map[claims.Kind]int `json:"claim_kinds"`
	EvidenceCoverage float64            `json:"evidence_coverage"`
	DevicePerf       Perf               `json:"device_perf"`
	A11y             A11y               `json:"a11y"`
	PII              PII                `json:"pii"`
	AbuseSignals     Abuse              `json:"abuse_signals"`
	UX               UX                 `json:"ux"`
}

// Input is everything the builder consumes for one request.
type Input struct {
	Prompt   string
	Copy     map[string]any
	Proof    *claims.Proof
	Perf     *Perf
	UX       *UX
	A11yPass *bool
}

// Copy fields allowed to carry claims only when evidenced.
var claimyKeys = map[string]struct{}{
	"HEADLINE":     {},
	"HERO_SUBHEAD": {},
	"TAGLINE":      {},
	"FEATURE_1":    {},
	"FEATURE_2":    {},
	"FEATURE_3":    {},
	"CTA_HEAD":     {},
}

var (
	promptRiskRe = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(#\s?1|no\.?\s*1|number\s*one|top|best|leading|largest)(?:[^a-z0-9]|$)|\b\d+(?:,\d{3})*(?:\.\d+)?\s?(?:%|percent\b)|\b\d+(?:\.\d+)?\s*x(?:[^\w]|$)`)

	emailRe = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)
	phoneRe = regexp.MustCompile(`\b(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	ccRe    = regexp.MustCompile(`\b(?:4\d{3}|5[1-5]\d{2}|3[47]\d{2}|6(?:011|5\d{2}))[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)

	factualRe     = regexp.MustCompile(`(?i)\b(?:according to|study|report|data|benchmark|research)\b`)
	testimonialRe = regexp.MustCompile(`(?i)\b(?:customer|client|user|i|we)\b.*\b(?:said|says|review|testimonial|love|recommend|trust)\b`)

	scamLangRe   = regexp.MustCompile(`(?i)free\s*money|guaranteed\s*profit|pump\s*and\s*dump`)
	abuseTermsRe = regexp.MustCompile(`(?i)\b(?:deepfake|impersonate|bypass|jailbreak)\b`)
)

// Builder computes risk vectors with a shared signature matcher.
type Builder struct {
	matcher *sigmatch.Matcher
}

func NewBuilder(m *sigmatch.Matcher) *Builder {
	if m == nil {
		m = sigmatch.New()
	}
	return &Builder{matcher: m}
}

// Compute assembles the risk vector for one request.
func (b *Builder) Compute(in Input) Vector {
	prompt := in.Prompt
	allText := combinedText(prompt, in.Copy)

	// Legacy per-field accounting.
	var cc CopyClaims
	for key, value := range in.Copy {
		fieldText := strings.Join(claims.FlattenText(value), "\n")
		counts := claims.CountText(fieldText)
		cc.Superlative += counts.ByKind[claims.KindSuperlative]
		cc.Percent += counts.ByKind[claims.KindPercent]
		cc.Multiplier += counts.ByKind[claims.KindMultiplier]
		cc.Comparative += counts.ByKind[claims.KindComparative]

		if factualRe.MatchString(fieldText) {
			cc.Factual++
		}
		if testimonialRe.MatchString(fieldText) {
			cc.Testimonial++
		}

		if _, claimy := claimyKeys[key]; claimy {
			unresolved := counts.ByKind[claims.KindSuperlative]+counts.ByKind[claims.KindPercent]+
				counts.ByKind[claims.KindMultiplier]+counts.ByKind[claims.KindComparative] > 0
			if unresolved && !fieldEvidenced(in.Proof, key) {
				cc.MissingProof++
			}
		}
	}
	cc.EvidenceCoveragePct = coveragePct(in.Proof)

	// Global accounting path, independent of the per-field one.
	global := claims.CountCopy(asAny(in.Copy))
	coverage := claims.EstimateCoverage(global.Total, in.Proof)

	// Abuse: cheap language heuristics plus the signature matcher.
	var abuseReasons []string
	if scamLangRe.MatchString(allText) {
		abuseReasons = append(abuseReasons, "scam_lang")
	}
	if abuseTermsRe.MatchString(allText) {
		abuseReasons = append(abuseReasons, "abuse_terms")
	}
	abuseReasons = append(abuseReasons, b.matcher.Scan(allText)...)

	v := Vector{
		PromptRisk:       promptRiskRe.MatchString(prompt),
		CopyClaims:       cc,
		ClaimTotal:       global.Total,
		ClaimKinds:       global.ByKind,
		EvidenceCoverage: coverage,
		A11y:             A11y{Pass: in.A11yPass},
		PII:              PII{Present: hasPII(allText)},
		AbuseSignals:     Abuse{Sketchy: len(abuseReasons) > 0, Reasons: abuseReasons},
	}
	if in.Perf != nil {
		v.DevicePerf = *in.Perf
	}
	if in.UX != nil {
		v.UX = *in.UX
	}
	return v
}

func fieldEvidenced(proof *claims.Proof, key string) bool {
	if proof == nil {
		return false
	}
	fp, ok := proof.Fields[key]
	return ok && fp.Status == claims.StatusEvidenced
}

func coveragePct(proof *claims.Proof) int {
	if proof == nil || len(proof.Fields) == 0 {
		return 0
	}
	return int(math.Round(float64(proof.EvidencedCount()) / float64(len(proof.Fields)) * 100))
}

func hasPII(text string) bool {
	return emailRe.MatchString(text) || phoneRe.MatchString(text) || ccRe.MatchString(text)
}

func combinedText(prompt string, copy map[string]any) string {
	parts := []string{prompt}
	for _, v := range copy {
		parts = append(parts, claims.FlattenText(v)...)
	}
	return strings.Join(parts, " ")
}

func asAny(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// String renders a short diagnostic summary, used in logs only.
func (v Vector) String() string {
	return fmt.Sprintf("risk{prompt=%t claims=%d missing_proof=%d coverage=%.2f pii=%t abuse=%d}",
		v.PromptRisk, v.ClaimTotal, v.CopyClaims.MissingProof, v.EvidenceCoverage, v.PII.Present, len(v.AbuseSignals.Reasons))
}
