// Package sqlite stores submissions in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"routing-arena/internal/domain"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS scores (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	score INTEGER NOT NULL,
	solution TEXT NOT NULL DEFAULT '',
	timestamp TEXT NOT NULL,
	tries INTEGER NOT NULL DEFAULT 0,
	final_score INTEGER
);
CREATE INDEX IF NOT EXISTS scores_name_timestamp ON scores (name, timestamp);
`

// Store implements app.SubmissionStore on database/sql.
type Store struct {
	db *sql.DB
}

// Open creates the database file if needed and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer keeps the try counter consistent across connections.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	for _, p := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database file is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}

func (s *Store) Append(ctx context.Context, in domain.SubmissionInput) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (name, score, solution, timestamp, tries) VALUES (?, ?, ?, ?, ?)`,
		in.Identity, in.Score, in.Solution, in.Timestamp, in.Tries)
	if err != nil {
		return 0, persistence("insert submission", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, persistence("insert submission", err)
	}
	return id, nil
}

const submissionColumns = `id, name, solution, timestamp, tries, score, final_score`

func scanSubmission(row interface{ Scan(...any) error }) (domain.Submission, error) {
	var (
		sub   domain.Submission
		final sql.NullInt64
	)
	if err := row.Scan(&sub.ID, &sub.Identity, &sub.Solution, &sub.Timestamp, &sub.Tries, &sub.Score, &final); err != nil {
		return domain.Submission{}, err
	}
	if final.Valid {
		v := int(final.Int64)
		sub.FinalScore = &v
	}
	return sub, nil
}

func (s *Store) LatestFor(ctx context.Context, identity string) (domain.Submission, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM scores WHERE name = ? ORDER BY timestamp DESC, id DESC LIMIT 1`,
		identity)
	sub, err := scanSubmission(row)
	if err == sql.ErrNoRows {
		return domain.Submission{}, false, nil
	}
	if err != nil {
		return domain.Submission{}, false, persistence("latest submission", err)
	}
	return sub, true, nil
}

func (s *Store) LatestPerIdentity(ctx context.Context) ([]domain.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+submissionColumns+` FROM (
			SELECT *,
				ROW_NUMBER() OVER (PARTITION BY name ORDER BY timestamp DESC, id DESC) AS rn,
				MIN(id) OVER (PARTITION BY name) AS first_id
			FROM scores
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

func (s *Store) UpdateFinalScore(ctx context.Context, identity, solution string, score int) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE scores SET final_score = ? WHERE name = ? AND solution = ?`,
		score, identity, solution); err != nil {
		return persistence("update final score", err)
	}
	return nil
}

func (s *Store) RankByFinalScore(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	return s.entries(ctx, "rank final scores", `
		SELECT name, COALESCE(MAX(final_score), 0) AS best, MAX(timestamp) AS latest
		FROM scores
		GROUP BY name
		ORDER BY best DESC, latest DESC, name ASC`)
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return s.entries(ctx, "leaderboard", `
		SELECT name, score, timestamp FROM scores
		ORDER BY score DESC, timestamp DESC, name ASC
		LIMIT ?`, sqlLimit(limit))
}

func (s *Store) TopDistinct(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return s.entries(ctx, "top distinct", `
		SELECT name, score, timestamp FROM (
			SELECT name, score, timestamp,
				ROW_NUMBER() OVER (PARTITION BY name ORDER BY score DESC, timestamp DESC, id ASC) AS rn
			FROM scores
		) AS best WHERE rn = 1
		ORDER BY score DESC, timestamp DESC, name ASC
		LIMIT ?`, sqlLimit(limit))
}

// sqlLimit maps "no limit" to SQLite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func (s *Store) entries(ctx context.Context, op, query string, args ...any) ([]domain.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence(op, err)
	}
	defer rows.Close()

	out := []domain.LeaderboardEntry{}
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.Identity, &e.Score, &e.Timestamp); err != nil {
			return nil, persistence(op, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(op, err)
	}
	return out, nil
}
