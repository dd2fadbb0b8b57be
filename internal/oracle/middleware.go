package oracle

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
	"routing-arena/internal/domain"
)

// WithTimeout bounds every classification call.
func WithTimeout(d time.Duration) Middleware {
	return func(next Classifier) Classifier {
		if d <= 0 {
			return next
		}
		return Func(func(ctx context.Context, policy, question string) (domain.Label, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next.Classify(ctx, policy, question)
		})
	}
}

// WithRateLimit paces calls through a token bucket shared by every caller.
func WithRateLimit(limit rate.Limit, burst int) Middleware {
	return func(next Classifier) Classifier {
		if limit <= 0 {
			return next
		}
		if burst < 1 {
			burst = 1
		}
		limiter := rate.NewLimiter(limit, burst)
		return Func(func(ctx context.Context, policy, question string) (domain.Label, error) {
			if err := limiter.Wait(ctx); err != nil {
				return "", unavailable("ratelimit", 0, err)
			}
			return next.Classify(ctx, policy, question)
		})
	}
}

// WithTracing records a span per call on the global tracer provider.
func WithTracing(provider string) Middleware {
	tracer := otel.Tracer("routing-arena/oracle")
	return func(next Classifier) Classifier {
		return Func(func(ctx context.Context, policy, question string) (domain.Label, error) {
			ctx, span := tracer.Start(ctx, "oracle.Classify",
				trace.WithAttributes(
					attribute.String("oracle.provider", provider),
					attribute.Int("oracle.policy.length", len(policy)),
				),
			)
			defer span.End()

			label, err := next.Classify(ctx, policy, question)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return label, err
			}
			span.SetAttributes(attribute.String("oracle.label", string(label)))
			span.SetStatus(codes.Ok, "")
			return label, nil
		})
	}
}

// Observer receives one measurement per oracle call.
type Observer interface {
	ObserveOracleCall(provider, status string, elapsed time.Duration)
}

// WithMetrics reports call outcomes to obs. Status is "ok", "timeout",
// "rate_limited", "server_error" or "error".
func WithMetrics(provider string, obs Observer) Middleware {
	return func(next Classifier) Classifier {
		if obs == nil {
			return next
		}
		return Func(func(ctx context.Context, policy, question string) (domain.Label, error) {
			start := time.Now()
			label, err := next.Classify(ctx, policy, question)
			obs.ObserveOracleCall(provider, callStatus(err), time.Since(start))
			return label, err
		})
	}
}

func callStatus(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch {
		case pe.StatusCode == http.StatusTooManyRequests:
			return "rate_limited"
		case pe.StatusCode >= 500:
			return "server_error"
		}
	}
	return "error"
}
