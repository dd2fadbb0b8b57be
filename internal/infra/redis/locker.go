package redis

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"routing-arena/internal/domain"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the TTL only if the lock still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker is a distributed per-key lock (SET NX PX) shared by every instance
// talking to the same Redis. While held, the TTL is extended every ttl/3; a
// holder that dies releases implicitly when the TTL expires.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

// NewLocker builds a locker. ttl bounds how long a crashed holder blocks others.
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Locker{client: client, ttl: ttl, retry: 50 * time.Millisecond}
}

func (l *Locker) key(name string) string {
	return "arena:lock:" + name
}

// Lock blocks until key is acquired or ctx is done, in which case the error
// wraps domain.ErrLockBusy.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.key(key)
	token := uuid.NewString()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("acquire lock %q: %w", key, err)
		}
		if ok {
			stop := make(chan struct{})
			stopped := make(chan struct{})
			go l.keepAlive(k, token, stop, stopped)
			var once sync.Once
			return func() {
				once.Do(func() {
					close(stop)
					<-stopped
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = releaseScript.Run(ctx, l.client, []string{k}, token).Err()
				})
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrLockBusy, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

// keepAlive extends the lock until stop is closed or the lock is lost.
func (l *Locker) keepAlive(key, token string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
		n, err := extendScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
		cancel()
		if err != nil {
			log.Printf("redis lock: extend %s: %v", key, err)
			continue
		}
		if n == 0 {
			log.Printf("redis lock: %s lost before release", key)
			return
		}
	}
}
