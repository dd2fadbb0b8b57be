package app

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"routing-arena/internal/domain"
)

// Recomputer re-scores every identity's latest submission against the held-out bank.
type Recomputer struct {
	store     SubmissionStore
	banks     BankSource
	bankName  string
	engine    *Engine
	workers   int
	publisher LeaderboardPublisher
	recorder  Recorder
	sf        singleflight.Group
}

// NewRecomputer builds a recomputer. workers <= 0 uses GOMAXPROCS.
func NewRecomputer(store SubmissionStore, banks BankSource, bankName string, engine *Engine, workers int, publisher LeaderboardPublisher, recorder Recorder) *Recomputer {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Recomputer{
		store:     store,
		banks:     banks,
		bankName:  bankName,
		engine:    engine,
		workers:   workers,
		publisher: publisher,
		recorder:  recorder,
	}
}

// Recompute loads the held-out bank and runs a recomputation. Concurrent
// callers share a single run. The run is detached from the caller's
// cancellation; a caller whose ctx ends stops waiting and gets ctx.Err().
func (r *Recomputer) Recompute(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	runCtx := context.WithoutCancel(ctx)
	ch := r.sf.DoChan("recompute", func() (interface{}, error) {
		bank, err := r.banks.Bank(runCtx, r.bankName)
		if err != nil {
			return nil, err
		}
		return r.RecomputeWith(runCtx, bank)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.LeaderboardEntry), nil
	}
}

type finalScore struct {
	identity string
	solution string
	score    int
}

// RecomputeWith scores all latest submissions against bank in parallel, then
// writes the final scores one by one and returns the ranking read back from
// the store. No write starts before every evaluation has finished.
func (r *Recomputer) RecomputeWith(ctx context.Context, bank domain.QuestionBank) (entries []domain.LeaderboardEntry, err error) {
	start := time.Now()
	latest, err := r.store.LatestPerIdentity(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest submissions: %w", err)
	}
	defer func() { r.recorder.ObserveRecompute(len(latest), time.Since(start), err) }()

	log.Printf("recompute: evaluating %d latest entries with %d workers", len(latest), r.workers)
	results := make([]finalScore, len(latest))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, sub := range latest {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := r.engine.Evaluate(gctx, sub.Solution, bank)
			results[i] = finalScore{identity: sub.Identity, solution: sub.Solution, score: res.Score}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("recompute interrupted: %w", err)
	}
	// Evaluations cut short by cancellation degrade to zero; none of them may be persisted.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("recompute interrupted: %w", err)
	}

	for _, fs := range results {
		if err := r.store.UpdateFinalScore(ctx, fs.identity, fs.solution, fs.score); err != nil {
			return nil, fmt.Errorf("update final score for %q: %w", fs.identity, err)
		}
	}

	entries, err = r.store.RankByFinalScore(ctx)
	if err != nil {
		return nil, fmt.Errorf("rank final scores: %w", err)
	}
	log.Printf("recompute: ranked %d identities in %s", len(entries), time.Since(start).Round(time.Millisecond))
	r.publisher.Publish(BoardWinners, entries)
	return entries, nil
}
