package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"routing-arena/internal/domain"
)

// SubmissionStore keeps submissions in the submissions table.
type SubmissionStore struct {
	pool *pgxpool.Pool
}

func NewSubmissionStore(pool *pgxpool.Pool) *SubmissionStore {
	return &SubmissionStore{pool: pool}
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}

func (s *SubmissionStore) Append(ctx context.Context, in domain.SubmissionInput) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO submissions (name, score, solution, timestamp, tries) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		in.Identity, in.Score, in.Solution, in.Timestamp, in.Tries).Scan(&id)
	if err != nil {
		return 0, persistence("insert submission", err)
	}
	return id, nil
}

const submissionColumns = `id, name, solution, timestamp, tries, score, final_score`

func scanSubmission(row pgx.Row) (domain.Submission, error) {
	var sub domain.Submission
	err := row.Scan(&sub.ID, &sub.Identity, &sub.Solution, &sub.Timestamp, &sub.Tries, &sub.Score, &sub.FinalScore)
	return sub, err
}

func (s *SubmissionStore) LatestFor(ctx context.Context, identity string) (domain.Submission, bool, error) {
	sub, err := scanSubmission(s.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE name = $1 ORDER BY timestamp DESC, id DESC LIMIT 1`,
		identity))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, false, nil
	}
	if err != nil {
		return domain.Submission{}, false, persistence("latest submission", err)
	}
	return sub, true, nil
}

func (s *SubmissionStore) LatestPerIdentity(ctx context.Context) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+submissionColumns+` FROM (
			SELECT *,
				ROW_NUMBER() OVER (PARTITION BY name ORDER BY timestamp DESC, id DESC) AS rn,
				MIN(id) OVER (PARTITION BY name) AS first_id
			FROM submissions
		) AS ranked WHERE rn = 1 ORDER BY first_id`)
	if err != nil {
		return nil, persistence("latest per identity", err)
	}
	defer rows.Close()

	var out []domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, persistence("latest per identity", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("latest per identity", err)
	}
	return out, nil
}

func (s *SubmissionStore) UpdateFinalScore(ctx context.Context, identity, solution string, score int) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE submissions SET final_score = $1 WHERE name = $2 AND solution = $3`,
		score, identity, solution); err != nil {
		return persistence("update final score", err)
	}
	return nil
}

func (s *SubmissionStore) RankByFinalScore(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	return s.entries(ctx, "rank final scores", `
		SELECT name, COALESCE(MAX(final_score), 0) AS best, MAX(timestamp) AS latest
		FROM submissions
		GROUP BY name
		ORDER BY best DESC, latest DESC, name ASC`)
}

func (s *SubmissionStore) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return s.entries(ctx, "leaderboard", `
		SELECT name, score, timestamp FROM submissions
		ORDER BY score DESC, timestamp DESC, name ASC
		LIMIT $1`, sqlLimit(limit))
}

func (s *SubmissionStore) TopDistinct(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return s.entries(ctx, "top distinct", `
		SELECT name, score, timestamp FROM (
			SELECT name, score, timestamp,
				ROW_NUMBER() OVER (PARTITION BY name ORDER BY score DESC, timestamp DESC, id ASC) AS rn
			FROM submissions
		) AS best WHERE rn = 1
		ORDER BY score DESC, timestamp DESC, name ASC
		LIMIT $1`, sqlLimit(limit))
}

// sqlLimit maps "no limit" to NULL, which Postgres reads as LIMIT ALL.
func sqlLimit(limit int) *int64 {
	if limit <= 0 {
		return nil
	}
	v := int64(limit)
	return &v
}

func (s *SubmissionStore) entries(ctx context.Context, op, query string, args ...interface{}) ([]domain.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, persistence(op, err)
	}
	defer rows.Close()

	out := []domain.LeaderboardEntry{}
	for rows.Next() {
		var (
			e     domain.LeaderboardEntry
			score int32
		)
		if err := rows.Scan(&e.Identity, &score, &e.Timestamp); err != nil {
			return nil, persistence(op, err)
		}
		e.Score = int(score)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(op, err)
	}
	return out, nil
}
