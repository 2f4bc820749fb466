// Package guard is the HTTP enforcement layer: it scores each request,
// resolves the gate decision, stamps the response headers and records the
// audit row. Scoring failures degrade to strict instead of failing open.
package guard

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"hash"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/supgate-ai/supgate/internal/audit"
	"github.com/supgate-ai/supgate/internal/claims"
	"github.com/supgate-ai/supgate/internal/config"
	"github.com/supgate-ai/supgate/internal/degrade"
	"github.com/supgate-ai/supgate/internal/ledger"
	"github.com/supgate-ai/supgate/internal/policy"
	"github.com/supgate-ai/supgate/internal/proof"
	"github.com/supgate-ai/supgate/internal/redact"
	"github.com/supgate-ai/supgate/internal/risk"
	"github.com/supgate-ai/supgate/internal/sigmatch"
	"github.com/supgate-ai/supgate/internal/ux"
)

const maxBodyBytes = 1 << 20 // request bodies beyond this are not scored

// Endpoints that receive the block envelope instead of a pass-through when
// the decision is block.
var hotEndpoints = map[string]bool{
	"/act/compose":  true,
	"/act/retrieve": true,
	"/instant":      true,
}

// Envelope is the scoreable request body. Unknown fields are ignored and a
// body that fails to parse scores as empty.
type Envelope struct {
	PageID      string         `json:"pageId"`
	Prompt      string         `json:"prompt"`
	Copy        map[string]any `json:"copy"`
	Proof       *claims.Proof  `json:"proof"`
	Perf        *risk.Perf     `json:"perf"`
	UX          *risk.UX       `json:"ux"`
	A11yPass    *bool          `json:"a11yPass"`
	PreviewHTML string         `json:"previewHtml"`
}

// Verdict is what the guard attaches to the request context for handlers.
type Verdict struct {
	Decision policy.Decision
	Envelope *Envelope
	Hints    []string
}

type ctxKey struct{}

// FromContext returns the verdict the guard attached, if any.
func FromContext(ctx context.Context) (*Verdict, bool) {
	v, ok := ctx.Value(ctxKey{}).(*Verdict)
	return v, ok
}

// Guard wires the scoring pipeline into an http middleware.
type Guard struct {
	cfg     *config.Config
	engine  *policy.Engine
	builder *risk.Builder
	matcher *sigmatch.Matcher
	ledger  *ledger.Ledger
	signer  *proof.Signer
	auditor *audit.Writer

	// decide is the engine call, injectable for failure testing.
	decide func(endpoint string, v risk.Vector) policy.Decision
}

// New assembles a guard from already-constructed collaborators. A nil
// auditor disables the trail.
func New(cfg *config.Config, eng *policy.Engine, led *ledger.Ledger, auditor *audit.Writer) *Guard {
	m := sigmatch.New()
	g := &Guard{
		cfg:     cfg,
		engine:  eng,
		builder: risk.NewBuilder(m),
		matcher: m,
		ledger:  led,
		signer:  proof.NewSigner(cfg.Proof.Secret),
		auditor: auditor,
	}
	g.decide = eng.Decide
	return g
}

// Wrap applies the gate to next. The endpoint key selects the gate mode and
// the hot-path block behavior.
func (g *Guard) Wrap(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.bypassed(r) {
			w.Header().Set("X-SUP-Mode", string(policy.ModeAllow))
			w.Header().Set("X-SUP-Policy-Version", g.cfg.Policy.Version)
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()

		id := identityFrom(r)
		key := ledger.KeyFor(id)
		out := g.ledger.Check(key, r.Header.Get("User-Agent"))
		if !out.Allowed {
			retrySecs := int(out.RetryAfter / time.Second)
			if retrySecs < 1 {
				retrySecs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retrySecs))
			w.Header().Set("X-SUP-Policy-Version", g.cfg.Policy.Version)
			w.Header().Set("X-SUP-Quota-Remaining", "0")
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"ok":    false,
				"error": "rate_limited",
			})
			return
		}

		env, rawBody := g.readEnvelope(r)

		dec, vec, hints := g.score(endpoint, env, out)

		// Signature hits raise the abuse score after the quota check so the
		// next request from this identity pays for them.
		if codes := sigCodes(vec.AbuseSignals.Reasons); len(codes) > 0 {
			g.ledger.Penalize(key, g.matcher.Weight(codes))
		}

		h := w.Header()
		h.Set("X-SUP-Mode", string(dec.Mode))
		if len(dec.Reasons) > 0 {
			h.Set("X-SUP-Reasons", strings.Join(dec.Reasons, ","))
		}
		h.Set("X-SUP-Policy-Version", g.cfg.Policy.Version)
		h.Set("X-SUP-Quota-Remaining", strconv.Itoa(out.Remaining))
		if id.Workspace != "" {
			h.Set("X-SUP-Workspace", id.Workspace)
		}
		if sig, err := g.signer.Sign(env.PageID, g.cfg.Policy.Version, vec); err == nil {
			h.Set("X-SUP-Signature", sig)
		} else {
			redact.Logf("guard: sign failed: %v", err)
		}
		if dec.Mode == policy.ModeStrict && len(hints) > 0 {
			h.Set("X-SUP-Degrade", strings.Join(hints, ","))
		}
		if vec.AbuseSignals.Sketchy {
			h.Set("X-SUP-Challenge", "1")
		}

		if dec.Mode == policy.ModeBlock && hotEndpoints[endpoint] {
			writeJSON(w, http.StatusOK, blockEnvelope(dec))
			g.record(endpoint, env, dec, vec, http.StatusOK, start, rawBody, "", id.Workspace)
			return
		}

		verdict := &Verdict{Decision: dec, Envelope: env, Hints: hints}
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, verdict))

		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		g.record(endpoint, env, dec, vec, rec.status, start, rawBody, rec.bodyHash(), id.Workspace)
	})
}

// bypassed reports whether the request skips the gate entirely: test
// traffic, prewarm probes, and the abuse intake route.
func (g *Guard) bypassed(r *http.Request) bool {
	if r.Header.Get("X-Test") == "1" {
		return true
	}
	if tok := g.cfg.Quota.PrewarmToken; tok != "" && r.Header.Get("X-Prewarm-Token") == tok {
		return true
	}
	if r.Method == http.MethodPost && r.URL.Path == "/abuse/report" {
		return true
	}
	return false
}

// readEnvelope consumes up to maxBodyBytes of the body, restores it for the
// inner handler and parses the scoreable fields. Any parse problem yields an
// empty envelope.
func (g *Guard) readEnvelope(r *http.Request) (*Envelope, []byte) {
	env := &Envelope{}
	if r.Body == nil {
		return env, nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return env, raw
	}
	if err := json.Unmarshal(raw, env); err != nil {
		return &Envelope{}, raw
	}
	return env, raw
}

// score computes the risk vector and decision. A panic anywhere inside the
// scoring path resolves to strict with sup_internal_error so enforcement
// fails closed but the request still reaches its handler.
func (g *Guard) score(endpoint string, env *Envelope, out ledger.Outcome) (dec policy.Decision, vec risk.Vector, hints []string) {
	defer func() {
		if rec := recover(); rec != nil {
			redact.Logf("guard: scoring panic on %s: %v", endpoint, rec)
			dec = policy.Decision{Mode: policy.ModeStrict, Reasons: []string{policy.ReasonInternalError}}
			vec = risk.Vector{}
			hints = []string{degrade.HintNeutralizeClaims}
		}
	}()

	in := risk.Input{
		Prompt:   env.Prompt,
		Copy:     env.Copy,
		Proof:    env.Proof,
		Perf:     env.Perf,
		UX:       env.UX,
		A11yPass: env.A11yPass,
	}

	// When the caller sent preview HTML but no precomputed ux score, audit
	// the markup ourselves.
	if env.UX == nil && env.PreviewHTML != "" {
		a := ux.AuditHTML(env.PreviewHTML)
		in.UX = &risk.UX{Score: &a.Score, Issues: a.Issues}
		if in.A11yPass == nil {
			in.A11yPass = &a.A11yPass
		}
	}

	vec = g.builder.Compute(in)

	if out.Velocity {
		vec.AbuseSignals.Sketchy = true
		vec.AbuseSignals.Reasons = append(vec.AbuseSignals.Reasons, "velocity")
	}

	dec = g.decide(endpoint, vec)
	hints = degrade.Hints(dec.Reasons)
	return dec, vec, hints
}

// record enqueues the audit row after the response is complete. The auditor
// is fire-and-forget; a nil auditor means no trail.
func (g *Guard) record(endpoint string, env *Envelope, dec policy.Decision, vec risk.Vector, status int, start time.Time, rawBody []byte, resHash, workspace string) {
	if g.auditor == nil {
		return
	}
	var perf *risk.Perf
	if vec.DevicePerf.CLSEst != nil || vec.DevicePerf.LCPEstMs != nil {
		p := vec.DevicePerf
		perf = &p
	}
	row := &audit.Row{
		TS:            time.Now().UTC(),
		Endpoint:      endpoint,
		PageID:        env.PageID,
		PolicyVersion: g.cfg.Policy.Version,
		Mode:          string(dec.Mode),
		Reasons:       dec.Reasons,
		Status:        status,
		Ms:            time.Since(start).Milliseconds(),
		ReqHash:       audit.HashContent(string(rawBody)),
		ResHash:       resHash,
		WorkspaceID:   workspace,
		Perf:          perf,
		UXLQR:         vec.UX.Score,
	}
	g.auditor.Append(row)
}

// identityFrom extracts the composite ledger identity from request headers.
// Only the first X-Forwarded-For hop counts.
func identityFrom(r *http.Request) ledger.Identity {
	ip := r.Header.Get("X-Forwarded-For")
	if i := strings.IndexByte(ip, ','); i >= 0 {
		ip = ip[:i]
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = r.RemoteAddr
		if i := strings.LastIndexByte(ip, ':'); i >= 0 {
			ip = ip[:i]
		}
	}
	return ledger.Identity{
		IP:        ip,
		Session:   r.Header.Get("X-Session-ID"),
		APIKey:    r.Header.Get("X-API-Key"),
		Workspace: r.Header.Get("X-Workspace-ID"),
	}
}

// sigCodes filters the abuse reasons down to matcher hits.
func sigCodes(reasons []string) []string {
	var codes []string
	for _, r := range reasons {
		if strings.HasPrefix(r, "honey:") || strings.HasPrefix(r, "sig:") {
			codes = append(codes, r)
		}
	}
	return codes
}

// blockEnvelope is the structured refusal hot endpoints return in place of
// generated content.
func blockEnvelope(dec policy.Decision) map[string]any {
	code := "sup_block"
	if len(dec.Reasons) > 0 {
		code = "sup_block." + dec.Reasons[0]
	}
	return map[string]any{
		"ok": true,
		"result": map[string]any{
			"error": "sup_block",
			"sup": map[string]any{
				"mode":    string(dec.Mode),
				"reasons": dec.Reasons,
			},
			"fallback": map[string]any{
				"status": "fallback",
				"code":   code,
				"title":  "Content unavailable",
				"body":   "This content did not pass policy review.",
			},
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		redact.Logf("guard: write response: %v", err)
	}
}

// statusRecorder captures the downstream status code and an incremental
// hash of the response body for the audit row.
type statusRecorder struct {
	http.ResponseWriter
	status int
	hasher hash.Hash
	wrote  bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK, hasher: sha256.New()}
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wrote = true
	s.hasher.Write(b)
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) bodyHash() string {
	if !s.wrote {
		return ""
	}
	return hex.EncodeToString(s.hasher.Sum(nil))
}
