// Package audit appends one immutable record per completed request to an
// append-only JSONL trail. Writes are best-effort and never block or fail
// the request path.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/supgate-ai/supgate/internal/risk"
)

// Row is one decision record. Created once per completed request, never
// mutated.
type Row struct {
	TS            time.Time  `json:"ts"`
	Endpoint      string     `json:"endpoint"`
	PageID        string     `json:"pageId"`
	PolicyVersion string     `json:"policy_version"`
	Mode          string     `json:"mode"`
	Reasons       []string   `json:"reasons"`
	Status        int        `json:"status"`
	Ms            int64      `json:"ms"`
	ReqHash       string     `json:"req_hash"`
	ResHash       string     `json:"res_hash,omitempty"`
	WorkspaceID   string     `json:"workspace_id,omitempty"`
	Perf          *risk.Perf `json:"perf,omitempty"`
	UXLQR         *float64   `json:"ux_lqr,omitempty"`
}

// HashContent returns the SHA-256 of the normalized text, hex-encoded.
func HashContent(s string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(s)))
	return hex.EncodeToString(sum[:])
}
