package app

import (
	"context"
	"fmt"

	"routing-arena/internal/domain"
)

// DefaultMaxTries is the attempt ceiling used when none is configured.
const DefaultMaxTries = 10

// Limiter bounds the number of scored submissions per identity.
type Limiter struct {
	store    SubmissionStore
	locker   Locker
	maxTries int
}

// NewLimiter builds a limiter. A nil locker leaves concurrent submissions from
// the same identity unserialized.
func NewLimiter(store SubmissionStore, locker Locker, maxTries int) *Limiter {
	if maxTries <= 0 {
		maxTries = DefaultMaxTries
	}
	return &Limiter{store: store, locker: locker, maxTries: maxTries}
}

// MaxTries returns the configured ceiling.
func (l *Limiter) MaxTries() int { return l.maxTries }

// TriesUsed returns the try counter of the identity's latest submission, or 0.
func (l *Limiter) TriesUsed(ctx context.Context, identity string) (int, error) {
	latest, ok, err := l.store.LatestFor(ctx, identity)
	if err != nil {
		return 0, fmt.Errorf("tries for %q: %w", identity, err)
	}
	if !ok {
		return 0, nil
	}
	return latest.Tries, nil
}

// Admit returns the try counter the next submission must carry, or
// ErrTriesExceeded once the identity has reached the ceiling.
func (l *Limiter) Admit(ctx context.Context, identity string) (int, error) {
	used, err := l.TriesUsed(ctx, identity)
	if err != nil {
		return 0, err
	}
	if used >= l.maxTries {
		return used, domain.ErrTriesExceeded
	}
	return used + 1, nil
}

// Do admits identity and runs fn with the next try counter while holding the
// identity's lock, so the check and the write that follows cannot interleave
// with another submission from the same identity.
func (l *Limiter) Do(ctx context.Context, identity string, fn func(next int) error) error {
	if l.locker != nil {
		unlock, err := l.locker.Lock(ctx, "submit:"+identity)
		if err != nil {
			return err
		}
		defer unlock()
	}
	next, err := l.Admit(ctx, identity)
	if err != nil {
		return err
	}
	return fn(next)
}
