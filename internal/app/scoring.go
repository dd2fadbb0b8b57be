package app

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"
	"unicode/utf8"

	"routing-arena/internal/domain"
)

const (
	// maxLoggedInput bounds the copy of the submission kept in the evaluation log.
	maxLoggedInput = 500
	truncationMark = "..."
	logKeyLayout   = "20060102_150405"
)

// Engine scores a text against a question bank by asking the oracle about each question.
type Engine struct {
	oracle   Oracle
	log      EvaluationLog
	recorder Recorder
	now      func() time.Time
}

func NewEngine(oracle Oracle, evalLog EvaluationLog, recorder Recorder) *Engine {
	return NewEngineWithClock(oracle, evalLog, recorder, time.Now)
}

// NewEngineWithClock allows deterministic log keys in tests.
func NewEngineWithClock(oracle Oracle, evalLog EvaluationLog, recorder Recorder, now func() time.Time) *Engine {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Engine{oracle: oracle, log: evalLog, recorder: recorder, now: now}
}

// Evaluate classifies every question in bank order, one call at a time. If any
// call fails the whole evaluation degrades: every question is reported with an
// unknown classification and the score is zero.
func (e *Engine) Evaluate(ctx context.Context, text string, bank domain.QuestionBank) domain.EvaluationResult {
	start := e.now()
	questions := bank.Questions()

	attempts, err := e.classifyAll(ctx, text, questions)
	var result domain.EvaluationResult
	if err != nil {
		log.Printf("evaluate: %v; scoring all %d questions as unknown", err, len(questions))
		result = fallbackResult(questions)
	} else {
		result = reconcile(attempts)
	}

	e.recorder.ObserveEvaluation(result.Score, err != nil, e.now().Sub(start))
	e.writeLog(ctx, text, result)
	return result
}

func (e *Engine) classifyAll(ctx context.Context, text string, questions []domain.Question) ([]domain.ClassificationAttempt, error) {
	attempts := make([]domain.ClassificationAttempt, 0, len(questions))
	for i, q := range questions {
		label, err := e.oracle.Classify(ctx, text, q.Text)
		if err == nil && !label.Valid() {
			err = fmt.Errorf("%w: unexpected label %q", domain.ErrOracleUnavailable, label)
		}
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		attempts = append(attempts, domain.ClassificationAttempt{Question: q, Observed: label, Succeeded: true})
	}
	return attempts, nil
}

func reconcile(attempts []domain.ClassificationAttempt) domain.EvaluationResult {
	result := domain.EvaluationResult{Results: make(map[string]domain.QuestionResult, len(attempts))}
	for i, a := range attempts {
		correct := a.Observed == a.Question.Expected()
		if correct {
			result.Score++
		}
		result.Results[strconv.Itoa(i)] = domain.QuestionResult{
			Question:       a.Question.Text,
			Classification: a.Observed,
			Correct:        correct,
		}
	}
	return result
}

// fallbackResult keys entries by question text.
func fallbackResult(questions []domain.Question) domain.EvaluationResult {
	result := domain.EvaluationResult{Results: make(map[string]domain.QuestionResult, len(questions))}
	for _, q := range questions {
		result.Results[q.Text] = domain.QuestionResult{
			Question:       q.Text,
			Classification: domain.LabelUnknown,
			Correct:        false,
		}
	}
	return result
}

func (e *Engine) writeLog(ctx context.Context, text string, result domain.EvaluationResult) {
	if e.log == nil {
		return
	}
	rec := EvaluationRecord{
		Timestamp: e.now().Format(logKeyLayout),
		InputText: truncateInput(text),
		Score:     result.Score,
		Results:   result.Results,
	}
	if err := e.log.Record(context.WithoutCancel(ctx), rec); err != nil {
		log.Printf("evaluate: write evaluation log: %v", err)
	}
}

// truncateInput keeps at most maxLoggedInput characters, marking truncation.
func truncateInput(text string) string {
	if utf8.RuneCountInString(text) <= maxLoggedInput {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxLoggedInput-len(truncationMark)]) + truncationMark
}
