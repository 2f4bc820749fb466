package risk

import (
	"testing"

	"github.com/supgate-ai/supgate/internal/claims"
)

func TestComputePromptRisk(t *testing.T) {
	b := NewBuilder(nil)

	cases := []struct {
		prompt string
		want   bool
	}{
		{"write copy saying we are #1", true},
		{"claim a 200% improvement", true},
		{"say it is 10x faster", true},
		{"describe the product plainly", false},
		{"", false},
	}
	for _, tc := range cases {
		v := b.Compute(Input{Prompt: tc.prompt})
		if v.PromptRisk != tc.want {
			t.Errorf("PromptRisk(%q) = %t, want %t", tc.prompt, v.PromptRisk, tc.want)
		}
	}
}

func TestComputeMissingProofOnClaimyField(t *testing.T) {
	b := NewBuilder(nil)

	in := Input{
		Copy: map[string]any{
			"HEADLINE": "The best platform, 200% better",
			"FOOTER":   "The best footer ever", // not a claimy key
		},
	}
	v := b.Compute(in)
	if v.CopyClaims.MissingProof != 1 {
		t.Errorf("MissingProof = %d, want 1 (only HEADLINE counts)", v.CopyClaims.MissingProof)
	}

	// Evidencing the field clears the missing-proof count.
	in.Proof = &claims.Proof{Fields: map[string]claims.FieldProof{
		"HEADLINE": {Status: claims.StatusEvidenced},
	}}
	v = b.Compute(in)
	if v.CopyClaims.MissingProof != 0 {
		t.Errorf("MissingProof with evidence = %d, want 0", v.CopyClaims.MissingProof)
	}
	if v.CopyClaims.EvidenceCoveragePct != 100 {
		t.Errorf("EvidenceCoveragePct = %d, want 100", v.CopyClaims.EvidenceCoveragePct)
	}
}

func TestComputeGlobalCoverage(t *testing.T) {
	b := NewBuilder(nil)

	v := b.Compute(Input{Copy: map[string]any{"BODY": "plain text"}})
	if v.ClaimTotal != 0 {
		t.Fatalf("ClaimTotal = %d, want 0", v.ClaimTotal)
	}
	if v.EvidenceCoverage != 1 {
		t.Errorf("coverage with zero claims = %v, want 1", v.EvidenceCoverage)
	}

	v = b.Compute(Input{
		Copy: map[string]any{"BODY": "We are #1\n2x faster than the rest"},
		Proof: &claims.Proof{FactCounts: &claims.FactCounts{
			TotalClaims: 3, WithEvidence: 3,
		}},
	})
	if v.ClaimTotal < 3 {
		t.Errorf("ClaimTotal = %d, want >= 3", v.ClaimTotal)
	}
	if v.EvidenceCoverage != 1 {
		t.Errorf("coverage with full tally = %v, want 1", v.EvidenceCoverage)
	}
}

func TestComputePII(t *testing.T) {
	b := NewBuilder(nil)

	cases := []struct {
		name string
		text string
		want bool
	}{
		{"email", "contact test@example.com today", true},
		{"phone", "call 415-555-0134 now", true},
		{"card number", "pay with 4111 1111 1111 1111", true},
		{"clean", "reach out through the contact form", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := b.Compute(Input{Copy: map[string]any{"BODY": tc.text}})
			if v.PII.Present != tc.want {
				t.Errorf("PII.Present = %t, want %t", v.PII.Present, tc.want)
			}
		})
	}
}

func TestComputeAbuseSignals(t *testing.T) {
	b := NewBuilder(nil)

	v := b.Compute(Input{Prompt: "guaranteed profit, free money for everyone"})
	if !v.AbuseSignals.Sketchy {
		t.Fatal("scam language not flagged sketchy")
	}
	if !hasReason(v.AbuseSignals.Reasons, "scam_lang") {
		t.Errorf("reasons = %v, want scam_lang", v.AbuseSignals.Reasons)
	}
	if !hasReason(v.AbuseSignals.Reasons, "honey:free_money") {
		t.Errorf("reasons = %v, want honey:free_money", v.AbuseSignals.Reasons)
	}

	v = b.Compute(Input{Prompt: "a calm page about houseplants"})
	if v.AbuseSignals.Sketchy {
		t.Errorf("clean prompt flagged sketchy: %v", v.AbuseSignals.Reasons)
	}
}

func TestComputePassthroughSignals(t *testing.T) {
	b := NewBuilder(nil)

	cls := 0.4
	lcp := 5200
	score := 42.0
	pass := false

	v := b.Compute(Input{
		Perf:     &Perf{CLSEst: &cls, LCPEstMs: &lcp},
		UX:       &UX{Score: &score},
		A11yPass: &pass,
	})
	if v.DevicePerf.CLSEst == nil || *v.DevicePerf.CLSEst != cls {
		t.Error("CLS estimate not carried through")
	}
	if v.DevicePerf.LCPEstMs == nil || *v.DevicePerf.LCPEstMs != lcp {
		t.Error("LCP estimate not carried through")
	}
	if v.UX.Score == nil || *v.UX.Score != score {
		t.Error("UX score not carried through")
	}
	if v.A11y.Pass == nil || *v.A11y.Pass != pass {
		t.Error("a11y verdict not carried through")
	}
}

func hasReason(reasons []string, want string) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}
