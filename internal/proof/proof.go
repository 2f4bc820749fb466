// Package proof produces the tamper-evident attestation over a gate
// decision: an HMAC-SHA256 signature of the canonical JSON serialization of
// {pageId, policy_version, risk}.
package proof

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/supgate-ai/supgate/internal/risk"
)

// Payload is the signed message. Field order is fixed by the struct, and
// map keys inside the risk vector serialize sorted, so the serialization is
// canonical: same inputs always produce the same bytes.
type Payload struct {
	PageID        string      `json:"pageId"`
	PolicyVersion string      `json:"policy_version"`
	Risk          risk.Vector `json:"risk"`
}

// Signer holds the process-wide secret, fixed for the process lifetime.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the hex HMAC over the canonical payload serialization.
func (s *Signer) Sign(pageID, policyVersion string, v risk.Vector) (string, error) {
	return s.SignPayload(Payload{PageID: pageID, PolicyVersion: policyVersion, Risk: v})
}

// SignPayload signs an already-assembled payload.
func (s *Signer) SignPayload(p Payload) (string, error) {
	msg, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal proof payload: %w", err)
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the signature and compares in constant time.
func (s *Signer) Verify(p Payload, signature string) (bool, error) {
	want, err := s.SignPayload(p)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(want), []byte(signature)), nil
}
