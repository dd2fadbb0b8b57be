package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"routing-arena/internal/domain"
)

// Leaderboard sizes served to participants.
const (
	DefaultLeaderboardLimit = 10
	TopLimit                = 3
)

// SubmissionService wires authentication, the try limiter and the scoring engine
// for live submissions against the check bank.
type SubmissionService struct {
	auth      Authenticator
	limiter   *Limiter
	engine    *Engine
	banks     BankSource
	bankName  string
	store     SubmissionStore
	publisher LeaderboardPublisher
	recorder  Recorder
	now       func() time.Time
}

func NewSubmissionService(auth Authenticator, limiter *Limiter, engine *Engine, banks BankSource, bankName string, store SubmissionStore, publisher LeaderboardPublisher, recorder Recorder) *SubmissionService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &SubmissionService{
		auth:      auth,
		limiter:   limiter,
		engine:    engine,
		banks:     banks,
		bankName:  bankName,
		store:     store,
		publisher: publisher,
		recorder:  recorder,
		now:       time.Now,
	}
}

// SetClock is used by tests to control submission timestamps.
func (s *SubmissionService) SetClock(now func() time.Time) { s.now = now }

// Login checks the shared secret and returns the identity.
func (s *SubmissionService) Login(identity, secret string) (string, error) {
	return s.auth.Authenticate(identity, secret)
}

// Submit scores solution for identity against the check bank and records it.
func (s *SubmissionService) Submit(ctx context.Context, identity, secret, solution string) (domain.SubmitOutcome, error) {
	name, err := s.auth.Authenticate(identity, secret)
	if err != nil {
		s.recorder.ObserveSubmission("unauthorized")
		return domain.SubmitOutcome{}, err
	}

	var outcome domain.SubmitOutcome
	err = s.limiter.Do(ctx, name, func(next int) error {
		bank, err := s.banks.Bank(ctx, s.bankName)
		if err != nil {
			return err
		}
		result := s.engine.Evaluate(ctx, solution, bank)
		if _, err := s.store.Append(ctx, domain.SubmissionInput{
			Identity:  name,
			Solution:  solution,
			Score:     result.Score,
			Timestamp: domain.FormatTimestamp(s.now()),
			Tries:     next,
		}); err != nil {
			return fmt.Errorf("save submission: %w", err)
		}
		outcome = domain.SubmitOutcome{Score: result.Score, Results: result.Results, NumUses: next}
		return nil
	})
	switch {
	case errors.Is(err, domain.ErrTriesExceeded):
		s.recorder.ObserveSubmission("rejected")
		return domain.SubmitOutcome{}, err
	case err != nil:
		s.recorder.ObserveSubmission("error")
		return domain.SubmitOutcome{}, err
	}
	s.recorder.ObserveSubmission("accepted")

	if lb, err := s.store.Leaderboard(ctx, DefaultLeaderboardLimit); err != nil {
		log.Printf("submit: refresh leaderboard: %v", err)
	} else {
		s.publisher.Publish(BoardLeaderboard, lb)
	}
	return outcome, nil
}

// Leaderboard returns the highest scoring submissions.
func (s *SubmissionService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	return s.store.Leaderboard(ctx, limit)
}

// TopThree returns the three best identities by their best submission score.
func (s *SubmissionService) TopThree(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	return s.store.TopDistinct(ctx, TopLimit)
}
