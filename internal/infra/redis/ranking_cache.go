package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"routing-arena/internal/app"
	"routing-arena/internal/domain"
)

// RankingLoader reads the authoritative ranking on a cache miss.
type RankingLoader interface {
	RankByFinalScore(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

// RankingCache keeps the latest published boards in Redis as JSON:
//
//	SET arena:board:{board} <entries> PX ttl
//
// It implements app.LeaderboardPublisher so recomputations land in the cache.
type RankingCache struct {
	client *redis.Client
	loader RankingLoader
	ttl    time.Duration
	sf     singleflight.Group
	mu     sync.Mutex
	rnd    *rand.Rand
}

func NewRankingCache(client *redis.Client, loader RankingLoader, ttl time.Duration) *RankingCache {
	return &RankingCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *RankingCache) key(board app.Board) string {
	return "arena:board:" + string(board)
}

// Publish stores entries under board. Failures are logged.
func (c *RankingCache) Publish(board app.Board, entries []domain.LeaderboardEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.store(ctx, board, entries); err != nil {
		log.Printf("ranking cache: %v", err)
	}
}

func (c *RankingCache) store(ctx context.Context, board app.Board, entries []domain.LeaderboardEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode %s: %w", board, err)
	}
	if err := c.client.Set(ctx, c.key(board), data, c.ttlWithJitter()).Err(); err != nil {
		return fmt.Errorf("store %s: %w", board, err)
	}
	return nil
}

// Board returns the cached entries for board, if any.
func (c *RankingCache) Board(ctx context.Context, board app.Board) ([]domain.LeaderboardEntry, bool, error) {
	data, err := c.client.Get(ctx, c.key(board)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", board, err)
	}
	return entries, true, nil
}

// Ranking returns the last recomputed ranking, reading it from the loader and
// refilling the cache on a miss.
func (c *RankingCache) Ranking(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	if entries, ok, err := c.Board(ctx, app.BoardWinners); err == nil && ok {
		return entries, nil
	}

	result, err, _ := c.sf.Do(string(app.BoardWinners), func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if entries, ok, err := c.Board(ctx, app.BoardWinners); err == nil && ok {
			return entries, nil
		}
		entries, err := c.loader.RankByFinalScore(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.store(ctx, app.BoardWinners, entries); err != nil {
			log.Printf("ranking cache: %v", err)
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardEntry), nil
}

func (c *RankingCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
