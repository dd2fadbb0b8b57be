package app

import (
	"context"
	"time"

	"routing-arena/internal/domain"
)

// Oracle classifies one question under the policy described by contextPrompt.
type Oracle interface {
	Classify(ctx context.Context, contextPrompt, question string) (domain.Label, error)
}

// SubmissionStore is the persistence boundary for submissions.
type SubmissionStore interface {
	Append(ctx context.Context, in domain.SubmissionInput) (int64, error)
	LatestFor(ctx context.Context, identity string) (domain.Submission, bool, error)
	LatestPerIdentity(ctx context.Context) ([]domain.Submission, error)
	UpdateFinalScore(ctx context.Context, identity, solution string, score int) error
	// RankByFinalScore groups by identity: max(final score) desc, then max(timestamp) desc.
	RankByFinalScore(ctx context.Context) ([]domain.LeaderboardEntry, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	TopDistinct(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// BankSource returns question banks by name.
type BankSource interface {
	Bank(ctx context.Context, name string) (domain.QuestionBank, error)
}

// Locker serializes work per key. The returned function releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Authenticator checks an identity's secret and returns the authenticated identity.
type Authenticator interface {
	Authenticate(identity, secret string) (string, error)
}

// EvaluationRecord is the structured log entry written for each evaluation.
type EvaluationRecord struct {
	Timestamp string                           `json:"timestamp"`
	InputText string                           `json:"input_text"`
	Score     int                              `json:"score"`
	Results   map[string]domain.QuestionResult `json:"results"`
}

// EvaluationLog stores evaluation records. Records with the same timestamp may overwrite each other.
type EvaluationLog interface {
	Record(ctx context.Context, rec EvaluationRecord) error
}

// Board names a published standings view.
type Board string

const (
	// BoardLeaderboard is the top submissions by check-bank score.
	BoardLeaderboard Board = "leaderboard"
	// BoardWinners is the ranking produced by a recomputation.
	BoardWinners Board = "winners"
)

// LeaderboardPublisher is notified whenever standings may have changed.
type LeaderboardPublisher interface {
	Publish(board Board, entries []domain.LeaderboardEntry)
}

// Publishers fans a publication out to every member.
type Publishers []LeaderboardPublisher

func (ps Publishers) Publish(board Board, entries []domain.LeaderboardEntry) {
	for _, p := range ps {
		if p != nil {
			p.Publish(board, entries)
		}
	}
}

// Recorder receives operational measurements.
type Recorder interface {
	ObserveEvaluation(score int, degraded bool, elapsed time.Duration)
	ObserveSubmission(outcome string)
	ObserveRecompute(identities int, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveEvaluation(int, bool, time.Duration) {}
func (nopRecorder) ObserveSubmission(string) {}
func (nopRecorder) ObserveRecompute(int, time.Duration, error) {}

type nopPublisher struct{}

func (nopPublisher) Publish(Board, []domain.LeaderboardEntry) {}
