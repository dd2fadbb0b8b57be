package memory

import (
	"context"
	"testing"

	"routing-arena/internal/app"
)

func TestBoundedEvaluationLogEvictsOldest(t *testing.T) {
	evalLog := NewBoundedEvaluationLog(2)
	for _, ts := range []string{"20250101_120000", "20250101_120001", "20250101_120001", "20250101_120002"} {
		if err := evalLog.Record(context.Background(), app.EvaluationRecord{Timestamp: ts}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if evalLog.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", evalLog.Len())
	}
	if _, ok := evalLog.Get("20250101_120000"); ok {
		t.Fatalf("expected oldest record evicted")
	}
	for _, ts := range []string{"20250101_120001", "20250101_120002"} {
		if _, ok := evalLog.Get(ts); !ok {
			t.Fatalf("expected %s retained", ts)
		}
	}
	if evalLog.Writes() != 4 {
		t.Fatalf("expected 4 writes, got %d", evalLog.Writes())
	}
}
