package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"routing-arena/internal/app"
	"routing-arena/internal/domain"
	pgstore "routing-arena/internal/infra/postgres"
	pgmigrations "routing-arena/internal/infra/postgres/migrations"
	infraredis "routing-arena/internal/infra/redis"
	"routing-arena/internal/oracle"
)

type fixedBanks map[string]domain.QuestionBank

func (b fixedBanks) Bank(_ context.Context, name string) (domain.QuestionBank, error) {
	bank, ok := b[name]
	if !ok {
		return domain.QuestionBank{}, domain.ErrBankUnavailable
	}
	return bank, nil
}

type allowAll struct{}

func (allowAll) Authenticate(identity, _ string) (string, error) { return identity, nil }

func TestSubmitAndRecomputeEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	store := pgstore.NewSubmissionStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()
	cache := infraredis.NewRankingCache(redisClient, store, 5*time.Minute)
	locker := infraredis.NewLocker(redisClient, time.Minute)

	banks := fixedBanks{
		"check": domain.NewQuestionBank(
			domain.Question{Text: "Hvordan fører jeg mva?", ExpectedLabel: domain.LabelSticos},
			domain.Question{Text: "Jeg får ikke logget inn", ExpectedLabel: domain.LabelSupportAI},
		),
		"test": domain.NewQuestionBank(
			domain.Question{Text: "Hva er avskrivning?", ExpectedLabel: domain.LabelSticos},
		),
	}
	engine := app.NewEngine(oracle.StaticOracle{Default: domain.LabelSticos}, nil, nil)
	limiter := app.NewLimiter(store, locker, 2)
	service := app.NewSubmissionService(allowAll{}, limiter, engine, banks, "check", store, cache, nil)
	recomputer := app.NewRecomputer(store, banks, "test", engine, 2, cache, nil)

	for i, name := range []string{"alice", "bob", "alice"} {
		out, err := service.Submit(ctx, name, "pw", fmt.Sprintf("policy %d", i))
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if out.Score != 1 {
			t.Fatalf("expected score 1, got %d", out.Score)
		}
	}
	if _, err := service.Submit(ctx, "alice", "pw", "policy 3"); err == nil {
		t.Fatalf("expected tries to be exhausted")
	}

	ranked, err := recomputer.Recompute(ctx)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if len(ranked) != 2 || ranked[0].Identity != "alice" || ranked[0].Score != 1 {
		t.Fatalf("expected alice leading on latest timestamp, got %+v", ranked)
	}

	cached, err := cache.Ranking(ctx)
	if err != nil {
		t.Fatalf("cached ranking: %v", err)
	}
	if len(cached) != 2 || cached[0].Identity != "alice" {
		t.Fatalf("expected published ranking in cache, got %+v", cached)
	}

	top, err := service.TopThree(ctx)
	if err != nil {
		t.Fatalf("top three: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected two distinct identities, got %+v", top)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "arena", "POSTGRES_PASSWORD": "arenapass", "POSTGRES_DB": "arenadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://arena:arenapass@%s:%s/arenadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
