package proof

import (
	"encoding/hex"
	"testing"

	"github.com/supgate-ai/supgate/internal/risk"
)

func TestSignDeterministic(t *testing.T) {
	s := NewSigner("secret")
	v := risk.Vector{PromptRisk: true, ClaimTotal: 2, EvidenceCoverage: 0.5}

	a, err := s.Sign("page-1", "2.0.0", v)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	b, err := s.Sign("page-1", "2.0.0", v)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if a != b {
		t.Errorf("same payload produced different signatures: %s vs %s", a, b)
	}
	if _, err := hex.DecodeString(a); err != nil {
		t.Errorf("signature is not hex: %q", a)
	}
	if len(a) != 64 {
		t.Errorf("signature length = %d, want 64 hex chars", len(a))
	}
}

func TestSignVariesWithInputs(t *testing.T) {
	s := NewSigner("secret")
	v := risk.Vector{ClaimTotal: 1}

	base, _ := s.Sign("page-1", "2.0.0", v)

	if other, _ := s.Sign("page-2", "2.0.0", v); other == base {
		t.Error("pageId change did not change the signature")
	}
	if other, _ := s.Sign("page-1", "2.1.0", v); other == base {
		t.Error("policy version change did not change the signature")
	}
	v2 := v
	v2.ClaimTotal = 9
	if other, _ := s.Sign("page-1", "2.0.0", v2); other == base {
		t.Error("risk vector change did not change the signature")
	}
	if other, _ := NewSigner("other-secret").Sign("page-1", "2.0.0", v); other == base {
		t.Error("secret change did not change the signature")
	}
}

func TestVerify(t *testing.T) {
	s := NewSigner("secret")
	p := Payload{PageID: "page-1", PolicyVersion: "2.0.0", Risk: risk.Vector{ClaimTotal: 1}}

	sig, err := s.SignPayload(p)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ok, err := s.Verify(p, sig)
	if err != nil || !ok {
		t.Errorf("Verify(valid) = %t, %v; want true, nil", ok, err)
	}

	tampered := "0" + sig[1:]
	if tampered == sig {
		tampered = "1" + sig[1:]
	}
	ok, err = s.Verify(p, tampered)
	if err != nil || ok {
		t.Errorf("Verify(tampered) = %t, %v; want false, nil", ok, err)
	}

	p.PageID = "page-2"
	ok, _ = s.Verify(p, sig)
	if ok {
		t.Error("Verify accepted signature for a different payload")
	}
}
