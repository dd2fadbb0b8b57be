package filelog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"routing-arena/internal/app"
	"routing-arena/internal/domain"
	"routing-arena/internal/oracle"
)

func TestRecordWritesIndentedJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	sink := New(dir)
	rec := app.EvaluationRecord{
		Timestamp: "20250101_120000",
		InputText: "Du er en ruter. Æøå.",
		Score:     1,
		Results: map[string]domain.QuestionResult{
			"0": {Question: "Q1", Classification: domain.LabelSticos, Correct: true},
		},
	}
	if err := sink.Record(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "evaluation_20250101_120000.json"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var got app.EvaluationRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	if got.InputText != rec.InputText || got.Score != 1 || !got.Results["0"].Correct {
		t.Fatalf("unexpected record %+v", got)
	}
	if data[0] != '{' || data[1] != '\n' {
		t.Fatalf("expected indented JSON, got %q", data[:10])
	}
}

func TestSameSecondOverwrites(t *testing.T) {
	dir := t.TempDir()
	sink := New(dir)
	for _, score := range []int{3, 5} {
		rec := app.EvaluationRecord{Timestamp: "20250101_120000", Score: score}
		if err := sink.Record(context.Background(), rec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one file, got %d", len(entries))
	}
	data, _ := os.ReadFile(sink.Path("20250101_120000"))
	var got app.EvaluationRecord
	json.Unmarshal(data, &got)
	if got.Score != 5 {
		t.Fatalf("expected later record to win, got score %d", got.Score)
	}
}

func TestCancelledEvaluationIsStillLogged(t *testing.T) {
	dir := t.TempDir()
	sink := New(dir)
	now := time.Date(2025, 3, 1, 12, 30, 45, 0, time.UTC)
	engine := app.NewEngineWithClock(oracle.StaticOracle{}, sink, nil, func() time.Time { return now })
	bank := domain.NewQuestionBank(domain.Question{Text: "Q1", ExpectedLabel: domain.LabelSticos})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := engine.Evaluate(ctx, "Sticos", bank)
	if res.Score != 0 {
		t.Fatalf("expected degraded score 0, got %d", res.Score)
	}

	data, err := os.ReadFile(sink.Path("20250301_123045"))
	if err != nil {
		t.Fatalf("expected evaluation log file: %v", err)
	}
	var got app.EvaluationRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	if got.Results["Q1"].Classification != domain.LabelUnknown {
		t.Fatalf("expected fallback result in log, got %+v", got.Results)
	}
}
