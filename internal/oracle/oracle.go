// Package oracle classifies reference questions with a language model, using
// a participant's submitted text as the system prompt. Every provider answers
// with one of the closed set of routing labels; anything else is reported as
// domain.ErrOracleUnavailable.
package oracle

import (
	"context"
	"fmt"

	"routing-arena/internal/domain"
)

// Classifier is the capability the scoring engine depends on.
type Classifier interface {
	Classify(ctx context.Context, policy, question string) (domain.Label, error)
}

// Func adapts a plain function to Classifier.
type Func func(ctx context.Context, policy, question string) (domain.Label, error)

func (f Func) Classify(ctx context.Context, policy, question string) (domain.Label, error) {
	return f(ctx, policy, question)
}

// Middleware wraps a Classifier with cross-cutting behaviour.
type Middleware func(Classifier) Classifier

// Chain applies middleware so that the first one listed is the outermost.
func Chain(c Classifier, mws ...Middleware) Classifier {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}

// ProviderError is returned for any provider failure. It matches
// domain.ErrOracleUnavailable under errors.Is.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s oracle (HTTP %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s oracle: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	return []error{domain.ErrOracleUnavailable, e.Err}
}

func unavailable(provider string, status int, err error) error {
	return &ProviderError{Provider: provider, StatusCode: status, Err: err}
}
