// Package server wires the gate middleware, the content endpoints and the
// operator surface into one HTTP server.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/supgate-ai/supgate/internal/audit"
	"github.com/supgate-ai/supgate/internal/config"
	"github.com/supgate-ai/supgate/internal/degrade"
	"github.com/supgate-ai/supgate/internal/guard"
	"github.com/supgate-ai/supgate/internal/ledger"
	"github.com/supgate-ai/supgate/internal/metrics"
	"github.com/supgate-ai/supgate/internal/policy"
	"github.com/supgate-ai/supgate/internal/redact"
)

// Server owns the HTTP surface and its collaborators.
type Server struct {
	cfg     *config.Config
	guard   *guard.Guard
	auditor *audit.Writer

	abuseLimiter *rate.Limiter

	httpServer *http.Server
}

// New builds the full server. The audit writer starts its workers here and
// is drained on Shutdown.
func New(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}

	// An audit path of "-" sends the trail to stdout instead of a file.
	var sink audit.Sink
	if cfg.Audit.Path == "-" {
		sink = audit.NewStdoutSink()
	} else {
		fileSink, err := audit.NewFileSink(cfg.Audit.Path)
		if err != nil {
			return nil, err
		}
		sink = fileSink
	}
	auditor := audit.NewWriter(audit.WriterConfig{
		QueueSize: cfg.Audit.QueueSize,
		Workers:   cfg.Audit.Workers,
	}, []audit.Sink{sink})

	eng := policy.New(cfg.Policy)
	led := ledger.New(cfg.Quota, nil)
	g := guard.New(cfg, eng, led, auditor)

	s := &Server{
		cfg:          cfg,
		guard:        g,
		auditor:      auditor,
		abuseLimiter: rate.NewLimiter(rate.Limit(cfg.Abuse.IntakePerSec), cfg.Abuse.IntakeBurst),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/act/compose", g.Wrap("/act/compose", http.HandlerFunc(s.handleCompose)))
	mux.Handle("/act/retrieve", g.Wrap("/act/retrieve", http.HandlerFunc(s.handleRetrieve)))
	mux.Handle("/instant", g.Wrap("/instant", http.HandlerFunc(s.handleInstant)))
	mux.Handle("/review", g.Wrap("/review", http.HandlerFunc(s.handleReview)))
	mux.HandleFunc("/sup/metrics", s.handleMetrics)
	mux.HandleFunc("/abuse/report", s.handleAbuseReport)

	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler exposes the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	log.Printf("sup gate listening on %s (policy %s)", s.cfg.Server.Addr, s.cfg.Policy.Version)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener and drains the audit queue.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.auditor.Close(ctx)
	return err
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "policy_version": s.cfg.Policy.Version})
}

// handleCompose returns the generated copy for a page. Under a strict
// decision with the neutralize-claims hint the copy is scrubbed before it
// leaves the server.
func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method_not_allowed"})
		return
	}

	v, ok := guard.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": map[string]any{}})
		return
	}

	copyOut := v.Envelope.Copy
	if v.Decision.Mode == policy.ModeStrict && hasHint(v.Hints, degrade.HintNeutralizeClaims) {
		copyOut = degrade.NeutralizeCopy(copyOut)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"result": map[string]any{
			"pageId": v.Envelope.PageID,
			"copy":   copyOut,
			"sup": map[string]any{
				"mode":    string(v.Decision.Mode),
				"reasons": v.Decision.Reasons,
			},
		},
	})
}

// handleRetrieve echoes the scored retrieval request back with the verdict.
// The gate has already refused blocked hot traffic before this runs.
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method_not_allowed"})
		return
	}
	v, ok := guard.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": map[string]any{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"result": map[string]any{
			"pageId": v.Envelope.PageID,
			"sup": map[string]any{
				"mode":    string(v.Decision.Mode),
				"reasons": v.Decision.Reasons,
			},
		},
	})
}

func (s *Server) handleInstant(w http.ResponseWriter, r *http.Request) {
	s.handleRetrieve(w, r)
}

// handleReview is annotate-only: decisions surface in headers and the body
// passes through even on block.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	v, ok := guard.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"mode":    string(v.Decision.Mode),
		"reasons": v.Decision.Reasons,
	})
}

// handleMetrics summarizes the audit trail plus the writer's own delivery
// counters.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method_not_allowed"})
		return
	}
	// A stdout trail has no file to summarize; serve queue counters only.
	sum := &metrics.Summary{
		ByMode:     map[string]int{},
		ByEndpoint: map[string]int{},
		TopReasons: []metrics.ReasonCount{},
	}
	if s.cfg.Audit.Path != "-" {
		var err error
		sum, err = metrics.Summarize(s.cfg.Audit.Path)
		if err != nil {
			redact.Logf("server: metrics summarize: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "metrics_unavailable"})
			return
		}
	}
	m := s.auditor.MetricsSnapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"summary": sum,
		"audit_queue": map[string]any{
			"enqueued": m.Enqueued(),
			"dropped":  m.Dropped(),
		},
	})
}

// abuseReport is the ledger-bypassing intake body.
type abuseReport struct {
	PageID  string `json:"pageId"`
	Kind    string `json:"kind"`
	Details string `json:"details"`
}

// handleAbuseReport accepts user abuse reports. The route bypasses the
// quota ledger so a throttled user can still report, with its own token
// bucket to keep the intake from becoming a write amplifier.
func (s *Server) handleAbuseReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method_not_allowed"})
		return
	}
	if !s.abuseLimiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"ok": false, "error": "rate_limited"})
		return
	}

	var rep abuseReport
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad_request"})
		return
	}

	if err := s.appendAbuseReport(rep); err != nil {
		redact.Logf("server: abuse report append: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "intake_failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// appendAbuseReport writes one JSONL line per report, one file per day.
func (s *Server) appendAbuseReport(rep abuseReport) error {
	if err := os.MkdirAll(s.cfg.Abuse.LogDir, 0o755); err != nil {
		return err
	}
	name := filepath.Join(s.cfg.Abuse.LogDir, time.Now().UTC().Format("2006-01-02")+".jsonl")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := json.Marshal(map[string]any{
		"ts":      time.Now().UTC().Format(time.RFC3339),
		"pageId":  rep.PageID,
		"kind":    rep.Kind,
		"details": redact.String(rep.Details),
	})
	if err != nil {
		return err
	}
	_, err = f.Write(append(line, '\n'))
	return err
}

func hasHint(hints []string, hint string) bool {
	for _, h := range hints {
		if h == hint {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		redact.Logf("server: write response: %v", err)
	}
}
