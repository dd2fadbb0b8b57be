package memory

import (
	"context"
	"sync"

	"routing-arena/internal/app"
)

// EvaluationLog keeps evaluation records keyed by timestamp, like the file sink.
// A bounded log evicts the oldest timestamps first.
type EvaluationLog struct {
	mu      sync.RWMutex
	records map[string]app.EvaluationRecord
	order   []string
	limit   int
	writes  int
}

// NewEvaluationLog returns an unbounded log.
func NewEvaluationLog() *EvaluationLog {
	return NewBoundedEvaluationLog(0)
}

// NewBoundedEvaluationLog keeps at most limit records; limit <= 0 means no bound.
func NewBoundedEvaluationLog(limit int) *EvaluationLog {
	return &EvaluationLog{records: make(map[string]app.EvaluationRecord), limit: limit}
}

func (l *EvaluationLog) Record(_ context.Context, rec app.EvaluationRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[rec.Timestamp]; !ok {
		l.order = append(l.order, rec.Timestamp)
	}
	l.records[rec.Timestamp] = rec
	l.writes++
	for l.limit > 0 && len(l.order) > l.limit {
		delete(l.records, l.order[0])
		l.order = l.order[1:]
	}
	return nil
}

// Get returns the record stored under timestamp.
func (l *EvaluationLog) Get(timestamp string) (app.EvaluationRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[timestamp]
	return rec, ok
}

// Len returns the number of records held.
func (l *EvaluationLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Writes returns the number of Record calls.
func (l *EvaluationLog) Writes() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.writes
}
