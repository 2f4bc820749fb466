package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestHashContent(t *testing.T) {
	a := HashContent("hello")
	b := HashContent("  hello  \n")
	if a != b {
		t.Errorf("whitespace changed the hash: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	if HashContent("hello") == HashContent("other") {
		t.Error("distinct content produced the same hash")
	}
}

func TestWriterDeliversToFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("file sink: %v", err)
	}
	w := NewWriter(WriterConfig{QueueSize: 16, Workers: 1}, []Sink{sink})

	for i := 0; i < 3; i++ {
		w.Append(&Row{
			TS:            time.Now().UTC(),
			Endpoint:      "/act/compose",
			PageID:        "p-1",
			PolicyVersion: "2.0.0",
			Mode:          "strict",
			Reasons:       []string{"unproven_claims"},
			Status:        200,
			Ms:            12,
			ReqHash:       HashContent("body"),
		})
	}
	w.Close(context.Background())

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open trail: %v", err)
	}
	defer f.Close()

	var rows []Row
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Row
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("bad JSONL line %q: %v", sc.Text(), err)
		}
		rows = append(rows, r)
	}
	if len(rows) != 3 {
		t.Fatalf("trail has %d rows, want 3", len(rows))
	}
	if rows[0].Endpoint != "/act/compose" || rows[0].Mode != "strict" {
		t.Errorf("row = %+v", rows[0])
	}

	m := w.MetricsSnapshot()
	if m.Enqueued() != 3 {
		t.Errorf("enqueued = %d, want 3", m.Enqueued())
	}
	if m.Dropped() != 0 {
		t.Errorf("dropped = %d, want 0", m.Dropped())
	}
}

func TestFileSinkRotatesDaily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("file sink: %v", err)
	}
	defer sink.Close(context.Background())

	clock := time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)
	sink.now = func() time.Time { return clock }
	sink.day = clock.Format(dayLayout)

	if err := sink.Deliver(context.Background(), &Row{PageID: "day-one"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	clock = clock.Add(2 * time.Minute) // crosses into the next UTC day
	if err := sink.Deliver(context.Background(), &Row{PageID: "day-two"}); err != nil {
		t.Fatalf("deliver after rotation: %v", err)
	}

	rotated, err := os.ReadFile(path + ".2026-08-31")
	if err != nil {
		t.Fatalf("rotated trail missing: %v", err)
	}
	if !strings.Contains(string(rotated), "day-one") {
		t.Errorf("rotated trail = %q, want day-one row", rotated)
	}

	current, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("current trail missing: %v", err)
	}
	if !strings.Contains(string(current), "day-two") {
		t.Errorf("current trail = %q, want day-two row", current)
	}
	if strings.Contains(string(current), "day-one") {
		t.Errorf("current trail still holds the rotated row: %q", current)
	}
}

func TestWriterDropsWhenClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("file sink: %v", err)
	}
	w := NewWriter(WriterConfig{QueueSize: 4, Workers: 1}, []Sink{sink})
	w.Close(context.Background())

	w.Append(&Row{Endpoint: "/x"}) // must not panic
	if m := w.MetricsSnapshot(); m.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", m.Dropped())
	}
}

func TestWriterNilSafety(t *testing.T) {
	var w *Writer
	w.Append(&Row{})
	w.Close(context.Background())
	_ = w.MetricsSnapshot()
}
