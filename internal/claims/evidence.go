package claims

import "encoding/json"

// Evidence statuses supplied by the citation subsystem.
const (
	StatusEvidenced = "evidenced"
	StatusRedacted  = "redacted"
	StatusNeutral   = "neutral"
)

// FieldProof is the per-copy-field evidence verdict.
type FieldProof struct {
	Status string `json:"status"`
}

// FactCounts is the aggregate evidence tally some callers send instead of
// (or alongside) per-field verdicts.
type FactCounts struct {
	TotalClaims  int `json:"total_claims"`
	WithEvidence int `json:"with_evidence"`
}

// Proof is the evidence map attached to a request. The wire form is a JSON
// object whose "fact_counts" key carries the aggregate tally and whose
// remaining keys map copy fields to their verdicts.
type Proof struct {
	Fields     map[string]FieldProof
	FactCounts *FactCounts
}

// UnmarshalJSON splits the aggregate tally from the per-field entries.
// Malformed entries are dropped rather than failing the whole request.
func (p *Proof) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Fields = make(map[string]FieldProof, len(raw))
	for key, msg := range raw {
		if key == "fact_counts" {
			var fc FactCounts
			if err := json.Unmarshal(msg, &fc); err == nil {
				p.FactCounts = &fc
			}
			continue
		}
		var fp FieldProof
		if err := json.Unmarshal(msg, &fp); err == nil {
			p.Fields[key] = fp
		}
	}
	return nil
}

// MarshalJSON restores the wire form.
func (p Proof) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Fields)+1)
	for k, v := range p.Fields {
		out[k] = v
	}
	if p.FactCounts != nil {
		out["fact_counts"] = p.FactCounts
	}
	return json.Marshal(out)
}

// EvidencedCount returns how many per-field entries carry evidence.
func (p *Proof) EvidencedCount() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, fp := range p.Fields {
		if fp.Status == StatusEvidenced {
			n++
		}
	}
	return n
}

// EstimateCoverage turns a claim total and a proof object into a coverage
// score in [0,1]:
//   - zero claims means there is nothing to prove, coverage is 1.0
//   - a structured fact_counts tally yields with_evidence/total_claims,
//     clamped to [0,1]
//   - claims with no structured tally are entirely unproven, coverage 0.0
func EstimateCoverage(totalClaims int, proof *Proof) float64 {
	if totalClaims == 0 {
		return 1
	}
	if proof != nil && proof.FactCounts != nil {
		tc := proof.FactCounts.TotalClaims
		if tc < 1 {
			tc = 1
		}
		we := proof.FactCounts.WithEvidence
		if we < 0 {
			we = 0
		}
		cov := float64(we) / float64(tc)
		if cov > 1 {
			cov = 1
		}
		return cov
	}
	return 0
}
