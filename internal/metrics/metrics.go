// Package metrics exposes arena counters and latencies for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements app.Recorder and oracle.Observer.
type Metrics struct {
	registry *prometheus.Registry

	EvaluationsTotal   *prometheus.CounterVec
	EvaluationScore    prometheus.Histogram
	EvaluationDuration prometheus.Histogram
	SubmissionsTotal   *prometheus.CounterVec
	OracleCalls        *prometheus.CounterVec
	OracleLatency      *prometheus.HistogramVec
	RecomputeTotal     *prometheus.CounterVec
	RecomputeDuration  prometheus.Histogram
	RankedIdentities   prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		EvaluationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_evaluations_total",
				Help: "Total number of evaluations, by whether the oracle failed",
			},
			[]string{"degraded"},
		),
		EvaluationScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "arena_evaluation_score",
			Help:    "Score of each evaluation",
			Buckets: prometheus.LinearBuckets(0, 5, 11),
		}),
		EvaluationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "arena_evaluation_duration_seconds",
			Help:    "Wall time of one evaluation",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		SubmissionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_submissions_total",
				Help: "Submissions by outcome",
			},
			[]string{"outcome"},
		),
		OracleCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_oracle_calls_total",
				Help: "Oracle calls by provider and status",
			},
			[]string{"provider", "status"},
		),
		OracleLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arena_oracle_latency_seconds",
				Help:    "Latency of oracle calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		RecomputeTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_recompute_total",
				Help: "Winner recomputations by success",
			},
			[]string{"success"},
		),
		RecomputeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "arena_recompute_duration_seconds",
			Help:    "Wall time of a winner recomputation",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		RankedIdentities: f.NewGauge(prometheus.GaugeOpts{
			Name: "arena_ranked_identities",
			Help: "Identities in the last successful recomputation",
		}),
	}
}

func (m *Metrics) ObserveEvaluation(score int, degraded bool, elapsed time.Duration) {
	m.EvaluationsTotal.WithLabelValues(strconv.FormatBool(degraded)).Inc()
	m.EvaluationScore.Observe(float64(score))
	m.EvaluationDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSubmission(outcome string) {
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRecompute(identities int, elapsed time.Duration, err error) {
	m.RecomputeTotal.WithLabelValues(strconv.FormatBool(err == nil)).Inc()
	m.RecomputeDuration.Observe(elapsed.Seconds())
	if err == nil {
		m.RankedIdentities.Set(float64(identities))
	}
}

func (m *Metrics) ObserveOracleCall(provider, status string, elapsed time.Duration) {
	m.OracleCalls.WithLabelValues(provider, status).Inc()
	m.OracleLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
