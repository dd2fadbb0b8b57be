package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	next:
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			if c := metric.GetCounter(); c != nil {
				return c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				return g.GetValue()
			}
		}
	}
	return 0
}

func TestRecorderCounters(t *testing.T) {
	m := New()
	m.ObserveEvaluation(7, false, time.Second)
	m.ObserveEvaluation(0, true, time.Second)
	m.ObserveEvaluation(3, false, time.Second)
	m.ObserveSubmission("accepted")
	m.ObserveSubmission("tries_exceeded")
	m.ObserveOracleCall("openai", "ok", 10*time.Millisecond)
	m.ObserveRecompute(4, time.Second, nil)
	m.ObserveRecompute(0, time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, counterValue(t, m, "arena_evaluations_total", map[string]string{"degraded": "false"}))
	assert.Equal(t, 1.0, counterValue(t, m, "arena_evaluations_total", map[string]string{"degraded": "true"}))
	assert.Equal(t, 1.0, counterValue(t, m, "arena_submissions_total", map[string]string{"outcome": "tries_exceeded"}))
	assert.Equal(t, 1.0, counterValue(t, m, "arena_oracle_calls_total", map[string]string{"provider": "openai", "status": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, m, "arena_recompute_total", map[string]string{"success": "false"}))
	assert.Equal(t, 4.0, counterValue(t, m, "arena_ranked_identities", nil))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.ObserveSubmission("accepted")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `arena_submissions_total{outcome="accepted"} 1`))
}

func TestSeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveSubmission("accepted")
	assert.Equal(t, 0.0, counterValue(t, b, "arena_submissions_total", map[string]string{"outcome": "accepted"}))
}
