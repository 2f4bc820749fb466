package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const dayLayout = "2006-01-02"

// FileSink appends audit rows to a JSONL trail and rotates it daily: when
// the UTC day changes, the current file moves to <path>.<day> and a fresh
// file opens at the canonical path, so the trail at <path> always covers
// the current day only.
type FileSink struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	day    string
	mu     sync.Mutex
	now    func() time.Time
}

func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !os.IsExist(err) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	s := &FileSink{path: path, now: time.Now}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSink) open() error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	s.file = f
	s.writer = bufio.NewWriter(f)
	s.day = s.now().UTC().Format(dayLayout)
	return nil
}

// rotateIfNeeded moves a stale day's trail aside and reopens the canonical
// path. Caller holds the lock.
func (s *FileSink) rotateIfNeeded() error {
	day := s.now().UTC().Format(dayLayout)
	if day == s.day {
		return nil
	}
	_ = s.writer.Flush()
	_ = s.file.Close()
	if err := os.Rename(s.path, s.path+"."+s.day); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rotate trail: %w", err)
	}
	return s.open()
}

func (s *FileSink) Name() string { return "file_jsonl:" + s.path }

func (s *FileSink) Deliver(_ context.Context, row *Row) error {
	if row == nil {
		return nil
	}
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rotateIfNeeded(); err != nil {
		return err
	}
	if _, err := s.writer.Write(data); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func (s *FileSink) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer != nil {
		_ = s.writer.Flush()
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
