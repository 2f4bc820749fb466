// Package policy maps (endpoint, risk vector) to a ternary gate decision.
// The engine is a deterministic state machine: same input, same output.
package policy

import (
	"strings"

	"github.com/supgate-ai/supgate/internal/config"
	"github.com/supgate-ai/supgate/internal/risk"
)

// Mode is the terminal decision for a request.
type Mode string

const (
	ModeAllow  Mode = "allow"
	ModeStrict Mode = "strict"
	ModeBlock  Mode = "block"
)

// GateMode is the per-endpoint aggressiveness setting.
type GateMode string

const (
	GateOff    GateMode = "off"
	GateOn     GateMode = "on"
	GateStrict GateMode = "strict"
)

// Reason codes appended by the threshold checks.
const (
	ReasonHighCLS          = "high_cls"
	ReasonSlowLCP          = "slow_lcp"
	ReasonUnprovenClaims   = "unproven_claims"
	ReasonLowEvidence      = "low_evidence_coverage"
	ReasonA11yFail         = "a11y_fail"
	ReasonLQRLow           = "lqr_low"
	ReasonPromptRisk       = "prompt_risk"
	ReasonPIIPresent       = "pii_present"
	ReasonInternalError    = "sup_internal_error"
	abusePrefix            = "abuse:"
	ReasonAbuseScamLang    = abusePrefix + "scam_lang"
	ReasonAbuseVelocity    = abusePrefix + "velocity"
)

// Decision is the engine output: a mode plus ordered, deduplicated reasons.
type Decision struct {
	Mode    Mode     `json:"mode"`
	Reasons []string `json:"reasons"`
}

// Engine evaluates risk vectors against configured gates and thresholds.
type Engine struct {
	gates       map[string]GateMode
	defaultGate GateMode
	cfg         config.PolicyConfig
}

// New builds an engine from policy config. Unknown gate values fall back
// to "on".
func New(cfg config.PolicyConfig) *Engine {
	gates := make(map[string]GateMode, len(cfg.Gates))
	for endpoint, mode := range cfg.Gates {
		gates[endpoint] = parseGate(mode)
	}
	defaultGate := GateOn
	if g, ok := gates["default"]; ok {
		defaultGate = g
	}
	return &Engine{gates: gates, defaultGate: defaultGate, cfg: cfg}
}

func parseGate(s string) GateMode {
	switch GateMode(strings.ToLower(strings.TrimSpace(s))) {
	case GateOff:
		return GateOff
	case GateStrict:
		return GateStrict
	default:
		return GateOn
	}
}

// GateFor returns the configured gate mode for an endpoint.
func (e *Engine) GateFor(endpoint string) GateMode {
	if g, ok := e.gates[endpoint]; ok {
		return g
	}
	return e.defaultGate
}

// Decide resolves the gate mode for the endpoint against the risk vector.
func (e *Engine) Decide(endpoint string, v risk.Vector) Decision {
	gate := e.GateFor(endpoint)
	if gate == GateOff {
		return Decision{Mode: ModeAllow, Reasons: []string{}}
	}

	reasons := e.collectReasons(v)

	if gate == GateStrict {
		if len(reasons) > 0 {
			return Decision{Mode: ModeBlock, Reasons: reasons}
		}
		return Decision{Mode: ModeStrict, Reasons: reasons}
	}

	// gate == on
	switch {
	case has(reasons, ReasonAbuseScamLang) || has(reasons, ReasonPIIPresent):
		return Decision{Mode: ModeBlock, Reasons: reasons}
	case hasPrefix(reasons, abusePrefix):
		return Decision{Mode: ModeStrict, Reasons: reasons}
	case has(reasons, ReasonUnprovenClaims) || has(reasons, ReasonLowEvidence) || has(reasons, ReasonPromptRisk):
		return Decision{Mode: ModeStrict, Reasons: reasons}
	case has(reasons, ReasonHighCLS) || has(reasons, ReasonSlowLCP):
		return Decision{Mode: ModeStrict, Reasons: reasons}
	default:
		// Non-escalating codes (a11y, lqr) stay internal; an allowed
		// response advertises no reasons.
		return Decision{Mode: ModeAllow, Reasons: []string{}}
	}
}

// collectReasons runs every threshold check unconditionally, in a fixed
// order, deduplicating as it goes.
func (e *Engine) collectReasons(v risk.Vector) []string {
	reasons := []string{}
	seen := make(map[string]struct{})
	add := func(code string) {
		if _, ok := seen[code]; ok {
			return
		}
		seen[code] = struct{}{}
		reasons = append(reasons, code)
	}

	if v.DevicePerf.CLSEst != nil && *v.DevicePerf.CLSEst > e.cfg.CLSMax {
		add(ReasonHighCLS)
	}
	if v.DevicePerf.LCPEstMs != nil && *v.DevicePerf.LCPEstMs > e.cfg.LCPMsMax {
		add(ReasonSlowLCP)
	}
	if v.CopyClaims.MissingProof >= e.cfg.ClaimsBlockStrict {
		add(ReasonUnprovenClaims)
	}
	if v.ClaimTotal > 0 && v.EvidenceCoverage < 0.5 {
		add(ReasonLowEvidence)
	}
	if e.cfg.RequireA11y && v.A11y.Pass != nil && !*v.A11y.Pass {
		add(ReasonA11yFail)
	}
	if v.UX.Score != nil && *v.UX.Score < e.cfg.LQRMin {
		add(ReasonLQRLow)
	}
	if v.PromptRisk {
		add(ReasonPromptRisk)
	}
	if e.cfg.BlockPIIStrict && v.PII.Present {
		add(ReasonPIIPresent)
	}
	for _, r := range v.AbuseSignals.Reasons {
		add(abusePrefix + r)
	}

	return reasons
}

func has(reasons []string, code string) bool {
	for _, r := range reasons {
		if r == code {
			return true
		}
	}
	return false
}

func hasPrefix(reasons []string, prefix string) bool {
	for _, r := range reasons {
		if strings.HasPrefix(r, prefix) {
			return true
		}
	}
	return false
}
