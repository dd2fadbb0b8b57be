// Package filelog writes one JSON document per evaluation into a directory.
package filelog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"routing-arena/internal/app"
)

// Sink stores records as <dir>/evaluation_<timestamp>.json. Two evaluations in
// the same second share a file and the later one wins.
type Sink struct {
	dir string
}

func New(dir string) *Sink {
	return &Sink{dir: dir}
}

// Path returns the file a record with timestamp is written to.
func (s *Sink) Path(timestamp string) string {
	return filepath.Join(s.dir, "evaluation_"+timestamp+".json")
}

// Record writes rec. It ignores ctx so degraded evaluations from cancelled
// requests are still logged.
func (s *Sink) Record(_ context.Context, rec app.EvaluationRecord) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode evaluation record: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".evaluation-*")
	if err != nil {
		return fmt.Errorf("create temp log: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write evaluation log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close evaluation log: %w", err)
	}
	return os.Rename(tmp.Name(), s.Path(rec.Timestamp))
}
