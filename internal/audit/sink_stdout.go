package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// StdoutSink prints rows as JSON lines, useful for local runs.
type StdoutSink struct{}

func NewStdoutSink() *StdoutSink { return &StdoutSink{} }

func (s *StdoutSink) Name() string { return "stdout" }

func (s *StdoutSink) Deliver(_ context.Context, row *Row) error {
	if row == nil {
		return nil
	}
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}

func (s *StdoutSink) Close(context.Context) error { return nil }
