// Package ledger implements the per-identity sliding-window request quota
// with a decaying abuse score. It is the gate's only throttling device.
package ledger

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/supgate-ai/supgate/internal/config"
)

// Identity is the composite request identity the ledger keys on.
type Identity struct {
	IP        string
	Session   string
	APIKey    string
	Workspace string
}

// KeyFor concatenates the identity parts into the ledger key. Each part is
// length-capped so hostile headers cannot bloat the store.
func KeyFor(id Identity) string {
	clip := func(s string) string {
		s = strings.TrimSpace(s)
		if len(s) > 100 {
			s = s[:100]
		}
		return s
	}
	return clip(id.IP) + "|" + clip(id.Session) + "|" + clip(id.APIKey) + "|" + clip(id.Workspace)
}

// Outcome reports the ledger verdict for one request.
type Outcome struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // only set when !Allowed, never below 1s
	Score      float64
	Velocity   bool // score crossed the velocity threshold
}

var (
	suspiciousUARe = regexp.MustCompile(`(?i)curl|wget|python-requests|go-http-client|libwww`)
	headlessUARe   = regexp.MustCompile(`(?i)headlesschrome|phantomjs|puppeteer|playwright|selenium|slimerjs`)
)

// Ledger tracks request counts and abuse scores per identity. Records are
// mutated under a single lock; every update is O(1).
type Ledger struct {
	mu        sync.Mutex
	store     Store
	window    time.Duration
	decay     time.Duration
	maxBurst  int
	sweepN    int
	processed int
	now       func() time.Time
}

// New builds a ledger from quota config. A nil store gets the in-process
// go-cache default with a TTL of six decay windows.
func New(cfg config.QuotaConfig, store Store) *Ledger {
	if store == nil {
		store = NewMemoryStore(6*cfg.Decay, cfg.Decay)
	}
	return &Ledger{
		store:    store,
		window:   cfg.Window,
		decay:    cfg.Decay,
		maxBurst: cfg.MaxBurst,
		sweepN:   cfg.SweepEvery,
		now:      time.Now,
	}
}

// Check records one request for the identity key and reports whether it is
// within budget. The user agent feeds the heuristic score bumps.
func (l *Ledger) Check(key, userAgent string) Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	rec, ok := l.store.Get(key)
	if !ok {
		rec = &Record{WindowStart: now}
	}

	elapsed := now.Sub(rec.WindowStart)
	if elapsed >= l.window {
		// Decay proportionally to how long the identity was quiet,
		// measured before the window resets.
		rec.Score = decayScore(rec.Score, elapsed, l.decay)
		rec.Hits = 0
		rec.WindowStart = now
		elapsed = 0
	}

	rec.Hits++

	ua := strings.ToLower(userAgent)
	if suspiciousUARe.MatchString(ua) {
		rec.Score += 0.1
	}
	if rec.Hits > l.maxBurst/2 {
		rec.Score += 0.5
	}
	if headlessUARe.MatchString(ua) {
		rec.Score += 0.5
	}

	l.store.Set(key, rec, 6*l.decay)
	l.maybeSweep(now)

	remaining := l.maxBurst - rec.Hits
	if remaining < 0 {
		remaining = 0
	}

	if rec.Hits > l.maxBurst {
		retry := l.window - elapsed
		if retry < time.Second {
			retry = time.Second
		}
		return Outcome{Allowed: false, Remaining: 0, RetryAfter: retry, Score: rec.Score, Velocity: rec.Score >= 1}
	}

	return Outcome{Allowed: true, Remaining: remaining, Score: rec.Score, Velocity: rec.Score >= 1}
}

// Penalize bumps the identity's score for abuse-signature hits found after
// the quota check. Returns the updated score.
func (l *Ledger) Penalize(key string, weight float64) float64 {
	if weight <= 0 {
		return l.score(key)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.store.Get(key)
	if !ok {
		rec = &Record{WindowStart: l.now()}
	}
	rec.Score += weight
	l.store.Set(key, rec, 6*l.decay)
	return rec.Score
}

func (l *Ledger) score(key string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.store.Get(key); ok {
		return rec.Score
	}
	return 0
}

// decayScore reduces the score proportionally to idle time relative to the
// decay window; a full window of silence clears it entirely.
func decayScore(score float64, elapsed, decay time.Duration) float64 {
	if score <= 0 || decay <= 0 {
		return 0
	}
	if elapsed >= decay {
		return 0
	}
	return score * (1 - float64(elapsed)/float64(decay))
}

// maybeSweep deletes entries idle longer than six decay windows, every Nth
// processed request, bounding memory under many distinct identities.
func (l *Ledger) maybeSweep(now time.Time) {
	l.processed++
	if l.sweepN <= 0 || l.processed%l.sweepN != 0 {
		return
	}
	cutoff := now.Add(-6 * l.decay)
	for key, rec := range l.store.Items() {
		if rec.WindowStart.Before(cutoff) {
			l.store.Delete(key)
		}
	}
}
