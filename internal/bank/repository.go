package bank

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"routing-arena/internal/domain"
)

// Bank names served by the repository.
const (
	Check = "check"
	Test  = "test"
)

// Source describes where a bank lives on disk. When Generate is positive and
// the file is missing, that many synthetic questions are written first.
type Source struct {
	Path      string
	Delimiter rune
	Generate  int
}

// Repository caches banks for the lifetime of the process; a bank is read once
// and is read-only afterwards.
type Repository struct {
	sources map[string]Source
	sf      singleflight.Group

	mu    sync.RWMutex
	cache map[string]domain.QuestionBank
	rnd   *rand.Rand
}

func NewRepository(sources map[string]Source) *Repository {
	return &Repository{
		sources: sources,
		cache:   make(map[string]domain.QuestionBank),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Bank returns the named bank, loading it on first use.
func (r *Repository) Bank(_ context.Context, name string) (domain.QuestionBank, error) {
	r.mu.RLock()
	if b, ok := r.cache[name]; ok {
		r.mu.RUnlock()
		return b, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		r.mu.RLock()
		if b, ok := r.cache[name]; ok {
			r.mu.RUnlock()
			return b, nil
		}
		r.mu.RUnlock()

		b, err := r.load(name)
		if err != nil {
			return domain.QuestionBank{}, err
		}

		r.mu.Lock()
		r.cache[name] = b
		r.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

// Regenerate overwrites the named bank's file with count fresh synthetic
// questions and drops the cached copy.
func (r *Repository) Regenerate(name string, count int) error {
	src, ok := r.sources[name]
	if !ok {
		return fmt.Errorf("%w: unknown bank %q", domain.ErrBankUnavailable, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := GenerateFile(src.Path, src.Delimiter, count, r.rnd); err != nil {
		return err
	}
	delete(r.cache, name)
	return nil
}

func (r *Repository) load(name string) (domain.QuestionBank, error) {
	src, ok := r.sources[name]
	if !ok {
		return domain.QuestionBank{}, fmt.Errorf("%w: unknown bank %q", domain.ErrBankUnavailable, name)
	}
	if src.Generate > 0 {
		r.mu.Lock()
		defer r.mu.Unlock()
		return LoadOrGenerate(src.Path, src.Delimiter, src.Generate, r.rnd)
	}
	return Load(src.Path, src.Delimiter)
}
