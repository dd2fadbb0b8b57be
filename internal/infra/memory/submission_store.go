package memory

import (
	"context"
	"sort"
	"sync"

	"routing-arena/internal/domain"
)

// SubmissionStore is an in-memory implementation of app.SubmissionStore.
type SubmissionStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   []domain.Submission
}

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{nextID: 1}
}

func (s *SubmissionStore) Append(_ context.Context, in domain.SubmissionInput) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.rows = append(s.rows, domain.Submission{
		ID:        id,
		Identity:  in.Identity,
		Solution:  in.Solution,
		Timestamp: in.Timestamp,
		Tries:     in.Tries,
		Score:     in.Score,
	})
	return id, nil
}

func (s *SubmissionStore) LatestFor(_ context.Context, identity string) (domain.Submission, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest, ok := s.latestLocked()[identity]
	if !ok {
		return domain.Submission{}, false, nil
	}
	return copySubmission(*latest), true, nil
}

func (s *SubmissionStore) LatestPerIdentity(_ context.Context) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := s.latestLocked()
	out := make([]domain.Submission, 0, len(latest))
	for _, identity := range s.identitiesLocked() {
		out = append(out, copySubmission(*latest[identity]))
	}
	return out, nil
}

func (s *SubmissionStore) UpdateFinalScore(_ context.Context, identity, solution string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].Identity == identity && s.rows[i].Solution == solution {
			v := score
			s.rows[i].FinalScore = &v
		}
	}
	return nil
}

func (s *SubmissionStore) RankByFinalScore(_ context.Context) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byIdentity := make(map[string]*domain.LeaderboardEntry)
	for _, row := range s.rows {
		e, ok := byIdentity[row.Identity]
		if !ok {
			e = &domain.LeaderboardEntry{Identity: row.Identity}
			byIdentity[row.Identity] = e
		}
		if row.FinalScore != nil && *row.FinalScore > e.Score {
			e.Score = *row.FinalScore
		}
		if row.Timestamp > e.Timestamp {
			e.Timestamp = row.Timestamp
		}
	}
	return sortEntries(byIdentity, 0), nil
}

func (s *SubmissionStore) Leaderboard(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]domain.LeaderboardEntry, 0, len(s.rows))
	for _, row := range s.rows {
		entries = append(entries, domain.LeaderboardEntry{Identity: row.Identity, Score: row.Score, Timestamp: row.Timestamp})
	}
	sortByScore(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *SubmissionStore) TopDistinct(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	best := make(map[string]*domain.LeaderboardEntry)
	for _, row := range s.rows {
		e, ok := best[row.Identity]
		if !ok || row.Score > e.Score || (row.Score == e.Score && row.Timestamp > e.Timestamp) {
			best[row.Identity] = &domain.LeaderboardEntry{Identity: row.Identity, Score: row.Score, Timestamp: row.Timestamp}
		}
	}
	return sortEntries(best, limit), nil
}

// latestLocked maps identity to its submission with the greatest timestamp;
// equal timestamps resolve to the later insert.
func (s *SubmissionStore) latestLocked() map[string]*domain.Submission {
	latest := make(map[string]*domain.Submission)
	for i := range s.rows {
		row := &s.rows[i]
		if cur, ok := latest[row.Identity]; !ok || row.Timestamp >= cur.Timestamp {
			latest[row.Identity] = row
		}
	}
	return latest
}

func (s *SubmissionStore) identitiesLocked() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, row := range s.rows {
		if _, ok := seen[row.Identity]; ok {
			continue
		}
		seen[row.Identity] = struct{}{}
		out = append(out, row.Identity)
	}
	return out
}

func sortEntries(m map[string]*domain.LeaderboardEntry, limit int) []domain.LeaderboardEntry {
	out := make([]domain.LeaderboardEntry, 0, len(m))
	for _, e := range m {
		out = append(out, *e)
	}
	sortByScore(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// sortByScore orders by score desc, then timestamp desc, then identity.
func sortByScore(entries []domain.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].Timestamp != entries[j].Timestamp {
			return entries[i].Timestamp > entries[j].Timestamp
		}
		return entries[i].Identity < entries[j].Identity
	})
}

func copySubmission(s domain.Submission) domain.Submission {
	if s.FinalScore != nil {
		v := *s.FinalScore
		s.FinalScore = &v
	}
	return s
}
