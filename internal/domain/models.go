package domain

import (
	"strings"
	"time"
)

// Label is a classification outcome assigned by the oracle or by ground truth.
type Label string

const (
	LabelSticos    Label = "Sticos"
	LabelSupportAI Label = "SupportAI"
	LabelOther     Label = "Other"
	// LabelUnknown is only ever an observed label, used when the oracle could not be reached.
	LabelUnknown Label = "?"
)

// OracleLabels is the closed set of answers the oracle may give.
var OracleLabels = []Label{LabelSticos, LabelSupportAI, LabelOther}

// TwoClassLabels is the label set used for generated question banks.
var TwoClassLabels = []Label{LabelSupportAI, LabelSticos}

// Valid reports whether l is one of the oracle labels.
func (l Label) Valid() bool {
	for _, o := range OracleLabels {
		if l == o {
			return true
		}
	}
	return false
}

// Question is a reference question with its expected label.
type Question struct {
	Text          string `json:"question"`
	ExpectedLabel Label  `json:"classification"`
}

// Expected returns the ground-truth label with surrounding whitespace trimmed.
func (q Question) Expected() Label {
	return Label(strings.TrimSpace(string(q.ExpectedLabel)))
}

// QuestionBank is an ordered set of questions keyed by their text.
type QuestionBank struct {
	questions []Question
	index     map[string]int
}

// NewQuestionBank builds a bank from questions in order. A repeated text
// overwrites the label of its first occurrence and keeps that position.
func NewQuestionBank(questions ...Question) QuestionBank {
	b := QuestionBank{index: make(map[string]int, len(questions))}
	for _, q := range questions {
		b.put(q)
	}
	return b
}

func (b *QuestionBank) put(q Question) {
	if b.index == nil {
		b.index = make(map[string]int)
	}
	if i, ok := b.index[q.Text]; ok {
		b.questions[i] = q
		return
	}
	b.index[q.Text] = len(b.questions)
	b.questions = append(b.questions, q)
}

// Len returns the number of distinct questions.
func (b QuestionBank) Len() int { return len(b.questions) }

// Questions returns a copy of the questions in bank order.
func (b QuestionBank) Questions() []Question {
	out := make([]Question, len(b.questions))
	copy(out, b.questions)
	return out
}

// Lookup returns the question stored under text.
func (b QuestionBank) Lookup(text string) (Question, bool) {
	i, ok := b.index[text]
	if !ok {
		return Question{}, false
	}
	return b.questions[i], true
}

// ClassificationAttempt is the outcome of asking the oracle about one question.
type ClassificationAttempt struct {
	Question  Question
	Observed  Label
	Succeeded bool
}

// QuestionResult is one reconciled entry of an evaluation.
type QuestionResult struct {
	Question       string `json:"question"`
	Classification Label  `json:"classification"`
	Correct        bool   `json:"correct"`
}

// EvaluationResult is the outcome of scoring one text against one bank.
type EvaluationResult struct {
	Results map[string]QuestionResult `json:"results"`
	Score   int                       `json:"score"`
}

// TimestampLayout matches the ISO-8601 form stored for submissions; it sorts lexicographically.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// Submission is an append-only record of one scored attempt.
type Submission struct {
	ID         int64  `json:"id"`
	Identity   string `json:"name"`
	Solution   string `json:"solution"`
	Timestamp  string `json:"timestamp"`
	Tries      int    `json:"tries"`
	Score      int    `json:"score"`
	FinalScore *int   `json:"finalScore,omitempty"`
}

// SubmissionInput carries the columns written by Append.
type SubmissionInput struct {
	Identity  string
	Solution  string
	Score     int
	Timestamp string
	Tries     int
}

// LeaderboardEntry is an aggregated view over submissions.
type LeaderboardEntry struct {
	Identity  string `json:"name"`
	Score     int    `json:"score"`
	Timestamp string `json:"timestamp"`
}

// SubmitOutcome is returned to a participant after a scored submission.
type SubmitOutcome struct {
	Score   int                       `json:"score"`
	Results map[string]QuestionResult `json:"results"`
	NumUses int                       `json:"num_uses"`
}
