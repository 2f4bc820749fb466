// Package metrics summarizes the audit trail for the operator endpoint.
package metrics

import (
	"bufio"
	"encoding/json"
	"os"
	"sort"

	"github.com/supgate-ai/supgate/internal/audit"
)

// Summary aggregates one pass over an audit JSONL file.
type Summary struct {
	Total      int            `json:"total"`
	ByMode     map[string]int `json:"by_mode"`
	ByEndpoint map[string]int `json:"by_endpoint"`
	TopReasons []ReasonCount  `json:"top_reasons"`
	P50Ms      int64          `json:"p50_ms"`
	P95Ms      int64          `json:"p95_ms"`
	Malformed  int            `json:"malformed"`
}

type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

const maxTopReasons = 10

// Summarize reads the JSONL audit file at path. A missing file yields an
// empty summary; malformed lines are counted and skipped so a partially
// written tail never breaks the endpoint.
func Summarize(path string) (*Summary, error) {
	s := &Summary{
		ByMode:     map[string]int{},
		ByEndpoint: map[string]int{},
		TopReasons: []ReasonCount{},
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	defer f.Close()

	reasons := map[string]int{}
	var durations []int64

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var row audit.Row
		if err := json.Unmarshal(line, &row); err != nil {
			s.Malformed++
			continue
		}
		s.Total++
		s.ByMode[row.Mode]++
		s.ByEndpoint[row.Endpoint]++
		for _, r := range row.Reasons {
			reasons[r]++
		}
		durations = append(durations, row.Ms)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	for r, n := range reasons {
		s.TopReasons = append(s.TopReasons, ReasonCount{Reason: r, Count: n})
	}
	sort.Slice(s.TopReasons, func(i, j int) bool {
		if s.TopReasons[i].Count != s.TopReasons[j].Count {
			return s.TopReasons[i].Count > s.TopReasons[j].Count
		}
		return s.TopReasons[i].Reason < s.TopReasons[j].Reason
	})
	if len(s.TopReasons) > maxTopReasons {
		s.TopReasons = s.TopReasons[:maxTopReasons]
	}

	if len(durations) > 0 {
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
		s.P50Ms = percentile(durations, 0.50)
		s.P95Ms = percentile(durations, 0.95)
	}
	return s, nil
}

func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
