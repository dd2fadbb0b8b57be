package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"routing-arena/internal/domain"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderStatic    = "static"
)

// ProviderConfig holds what a provider constructor needs.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Config selects and tunes the oracle.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	RateLimit   float64
	Burst       int
	StaticLabel string
}

// NewFromConfig builds the configured provider wrapped with tracing, metrics, rate
// limiting and a per-call timeout.
func NewFromConfig(ctx context.Context, cfg Config, obs Observer) (Classifier, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderOpenAI
	}
	pc := ProviderConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}

	var (
		base Classifier
		err  error
	)
	switch provider {
	case ProviderOpenAI:
		base, err = NewOpenAIOracle(pc)
	case ProviderAnthropic:
		base, err = NewAnthropicOracle(pc)
	case ProviderGemini:
		base, err = NewGeminiOracle(ctx, pc)
	case ProviderStatic:
		base = StaticOracle{Default: domain.Label(cfg.StaticLabel)}
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return Chain(base,
		WithTracing(provider),
		WithMetrics(provider, obs),
		WithRateLimit(rate.Limit(cfg.RateLimit), cfg.Burst),
		WithTimeout(cfg.Timeout),
	), nil
}
