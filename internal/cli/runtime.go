package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"routing-arena/internal/app"
	"routing-arena/internal/auth"
	"routing-arena/internal/bank"
	"routing-arena/internal/config"
	"routing-arena/internal/infra/filelog"
	"routing-arena/internal/infra/memory"
	pgstore "routing-arena/internal/infra/postgres"
	redisinfra "routing-arena/internal/infra/redis"
	sqlitestore "routing-arena/internal/infra/sqlite"
	"routing-arena/internal/metrics"
	"routing-arena/internal/oracle"
	transport "routing-arena/internal/transport/http"
)

// memoryLogLimit bounds the in-process evaluation log used when no log dir is set.
const memoryLogLimit = 256

// runtime holds every wired component. Handles are opened once here and
// released by close.
type runtime struct {
	cfg        config.Config
	store      app.SubmissionStore
	banks      *bank.Repository
	metrics    *metrics.Metrics
	hub        *transport.Hub
	arena      *app.SubmissionService
	recomputer *app.Recomputer
	rankings   transport.RankingReader
	pings      []func(context.Context) error
	closers    []func()
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

func (rt *runtime) health(ctx context.Context) error {
	var errs []error
	for _, ping := range rt.pings {
		if err := ping(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newBankRepository(cfg config.Config) *bank.Repository {
	return bank.NewRepository(map[string]bank.Source{
		bank.Check: {Path: cfg.Scoring.CheckBank, Delimiter: bank.CheckDelimiter},
		bank.Test:  {Path: cfg.Scoring.TestBank, Delimiter: bank.TestDelimiter, Generate: cfg.Scoring.TestCount},
	})
}

func newAuthenticator(cfg config.Config) (app.Authenticator, error) {
	switch {
	case cfg.Auth.PasswordHash != "":
		return auth.NewSharedSecretFromHash(cfg.Auth.PasswordHash)
	case cfg.Auth.Password != "":
		return auth.NewSharedSecret(cfg.Auth.Password)
	default:
		return nil, fmt.Errorf("auth password not configured (set auth.password or ARENA_PASSWORD)")
	}
}

func buildRuntime(ctx context.Context, cfg config.Config) (_ *runtime, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rt := &runtime{
		cfg:     cfg,
		banks:   newBankRepository(cfg),
		metrics: metrics.New(),
		hub:     transport.NewHub(),
	}
	defer func() {
		if err != nil {
			rt.close()
		}
	}()

	if err := rt.openStore(ctx); err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { redisClient.Close() })
		rt.pings = append(rt.pings, func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	authn, err := newAuthenticator(cfg)
	if err != nil {
		return nil, err
	}

	classifier, err := oracle.NewFromConfig(ctx, oracle.Config{
		Provider:    cfg.Oracle.Provider,
		Model:       cfg.Oracle.Model,
		APIKey:      cfg.Oracle.APIKey,
		BaseURL:     cfg.Oracle.BaseURL,
		Timeout:     config.Duration(cfg.Oracle.Timeout, 30*time.Second),
		RateLimit:   cfg.Oracle.RateLimit,
		Burst:       cfg.Oracle.Burst,
		StaticLabel: cfg.Oracle.StaticLabel,
	}, rt.metrics)
	if err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}

	var evalLog app.EvaluationLog = memory.NewBoundedEvaluationLog(memoryLogLimit)
	if cfg.Scoring.LogDir != "" {
		evalLog = filelog.New(cfg.Scoring.LogDir)
	}

	var locker app.Locker = memory.NewKeyedLocker()
	publishers := app.Publishers{rt.hub}
	rt.rankings = transport.RankingFunc(rt.store.RankByFinalScore)
	if redisClient != nil {
		locker = redisinfra.NewLocker(redisClient, config.Duration(cfg.Redis.LockTTL, 2*time.Minute))
		cache := redisinfra.NewRankingCache(redisClient, rt.store, config.Duration(cfg.Redis.TTL, 10*time.Minute))
		publishers = append(publishers, cache)
		rt.rankings = cache
	}

	engine := app.NewEngine(classifier, evalLog, rt.metrics)
	limiter := app.NewLimiter(rt.store, locker, cfg.Scoring.MaxTries)
	rt.arena = app.NewSubmissionService(authn, limiter, engine, rt.banks, bank.Check, rt.store, publishers, rt.metrics)
	rt.recomputer = app.NewRecomputer(rt.store, rt.banks, bank.Test, engine, cfg.Scoring.Workers, publishers, rt.metrics)
	return rt, nil
}

// openStore picks Postgres, then SQLite, then memory.
func (rt *runtime) openStore(ctx context.Context) error {
	cfg := rt.cfg
	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		rt.closers = append(rt.closers, pool.Close)
		rt.pings = append(rt.pings, pool.Ping)
		rt.store = pgstore.NewSubmissionStore(pool)
		log.Printf("store: postgres")
	case cfg.SQLite.Path != "":
		s, err := sqlitestore.Open(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		rt.closers = append(rt.closers, func() { s.Close() })
		rt.pings = append(rt.pings, s.Ping)
		rt.store = s
		log.Printf("store: sqlite %s", cfg.SQLite.Path)
	default:
		rt.store = memory.NewSubmissionStore()
		log.Printf("store: in-memory (submissions are lost on restart)")
	}
	return nil
}
