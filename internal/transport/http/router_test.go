package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"routing-arena/internal/app"
	"routing-arena/internal/auth"
	"routing-arena/internal/bank"
	"routing-arena/internal/domain"
	"routing-arena/internal/infra/memory"
	"routing-arena/internal/oracle"
)

const password = "AbakusErEnKalkulator"

var answers = map[string]domain.Label{
	"Hvordan fører jeg mva?":          domain.LabelSticos,
	"Jeg får ikke logget inn":         domain.LabelSupportAI,
	"Hvordan avskrives driftsmidler?": domain.LabelSticos,
}

// policyOracle answers correctly only when the policy mentions "route".
var policyOracle = oracle.Func(func(_ context.Context, policy, question string) (domain.Label, error) {
	if strings.Contains(policy, "route") {
		return answers[question], nil
	}
	return domain.LabelOther, nil
})

type testEnv struct {
	server *httptest.Server
	hub    *Hub
	store  *memory.SubmissionStore
}

func newTestEnv(t *testing.T, maxTries int) *testEnv {
	t.Helper()
	dir := t.TempDir()
	check := filepath.Join(dir, "check_questions.csv")
	require.NoError(t, os.WriteFile(check, []byte(
		"question;classification\nHvordan fører jeg mva?;Sticos\nJeg får ikke logget inn;SupportAI\n"), 0o644))
	test := filepath.Join(dir, "test_questions.csv")
	require.NoError(t, os.WriteFile(test, []byte(
		"question,classification\nHvordan avskrives driftsmidler?,Sticos\n"), 0o644))

	banks := bank.NewRepository(map[string]bank.Source{
		bank.Check: {Path: check, Delimiter: bank.CheckDelimiter},
		bank.Test:  {Path: test, Delimiter: bank.TestDelimiter},
	})
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	authn, err := auth.NewSharedSecretFromHash(string(hash))
	require.NoError(t, err)

	store := memory.NewSubmissionStore()
	hub := NewHub()
	engine := app.NewEngine(policyOracle, memory.NewEvaluationLog(), nil)
	limiter := app.NewLimiter(store, memory.NewKeyedLocker(), maxTries)
	arena := app.NewSubmissionService(authn, limiter, engine, banks, bank.Check, store, hub, nil)
	recomputer := app.NewRecomputer(store, banks, bank.Test, engine, 2, hub, nil)

	server := httptest.NewServer(NewRouter(Options{
		Arena:      arena,
		Recomputer: recomputer,
		Rankings:   RankingFunc(store.RankByFinalScore),
		Hub:        hub,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("arena_up 1\n"))
		}),
	}))
	t.Cleanup(server.Close)
	return &testEnv{server: server, hub: hub, store: store}
}

func (e *testEnv) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, 10)

	resp := env.post(t, "/login", map[string]string{"name": "alice", "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", decodeBody[loginResponse](t, resp).Name)

	resp = env.post(t, "/login", map[string]string{"name": "alice", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
	assert.Equal(t, "Incorrect password", decodeBody[errResp](t, resp).Detail)

	resp = env.post(t, "/login", map[string]string{"name": "alice"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, err := http.Post(env.server.URL+"/login", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitScoresAndEnforcesTries(t *testing.T) {
	env := newTestEnv(t, 2)

	resp := env.post(t, "/submit", map[string]string{"name": "alice", "password": password, "solution": "route by topic"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[domain.SubmitOutcome](t, resp)
	assert.Equal(t, 2, out.Score)
	assert.Equal(t, 1, out.NumUses)
	require.Len(t, out.Results, 2)
	assert.True(t, out.Results["0"].Correct)
	assert.Equal(t, domain.LabelSupportAI, out.Results["1"].Classification)

	resp = env.post(t, "/submit", map[string]string{"name": "alice", "password": password, "solution": "guess"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out = decodeBody[domain.SubmitOutcome](t, resp)
	assert.Equal(t, 0, out.Score)
	assert.Equal(t, 2, out.NumUses)

	resp = env.post(t, "/submit", map[string]string{"name": "alice", "password": password, "solution": "route"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Maximum number of tries exceeded", decodeBody[errResp](t, resp).Detail)

	resp = env.post(t, "/submit", map[string]string{"name": "bob", "password": "wrong", "solution": "route"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLeaderboardTopThreeAndWinner(t *testing.T) {
	env := newTestEnv(t, 10)
	for _, sub := range []struct{ name, solution string }{
		{"alice", "guess"},
		{"bob", "route it"},
		{"carol", "route"},
		{"alice", "route now"},
	} {
		resp := env.post(t, "/submit", map[string]string{"name": sub.name, "password": password, "solution": sub.solution})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	lb := decodeBody[[]domain.LeaderboardEntry](t, env.get(t, "/leaderboard"))
	require.Len(t, lb, 4)
	assert.Equal(t, 2, lb[0].Score)
	assert.Equal(t, 0, lb[3].Score)

	limited := decodeBody[[]domain.LeaderboardEntry](t, env.get(t, "/leaderboard?limit=1"))
	assert.Len(t, limited, 1)
	assert.Equal(t, http.StatusBadRequest, env.get(t, "/leaderboard?limit=abc").StatusCode)

	top := decodeBody[[]domain.LeaderboardEntry](t, env.get(t, "/top3"))
	require.Len(t, top, 3)
	for _, e := range top {
		assert.Equal(t, 2, e.Score)
	}

	resp := env.post(t, "/winner", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ranked := decodeBody[[]domain.LeaderboardEntry](t, resp)
	require.Len(t, ranked, 3)
	assert.Equal(t, "alice", ranked[0].Identity, "latest timestamp wins the tie")
	for _, e := range ranked {
		assert.Equal(t, 1, e.Score)
	}

	again := decodeBody[[]domain.LeaderboardEntry](t, env.get(t, "/winner"))
	assert.Equal(t, ranked, again)
}

func TestHealthMetricsAndPreflight(t *testing.T) {
	env := newTestEnv(t, 10)
	assert.Equal(t, http.StatusOK, env.get(t, "/healthz").StatusCode)

	resp := env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodOptions, env.server.URL+"/submit", nil)
	require.NoError(t, err)
	pre, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer pre.Body.Close()
	assert.Equal(t, http.StatusNoContent, pre.StatusCode)
	assert.Equal(t, "*", pre.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebSocketStreamsBoards(t *testing.T) {
	env := newTestEnv(t, 10)
	env.hub.Publish(app.BoardLeaderboard, nil)

	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/leaderboard"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer conn.Close()

	typ, entries := readNext(t, conn)
	require.Equal(t, "leaderboard", typ)
	assert.Empty(t, entries)

	resp := env.post(t, "/submit", map[string]string{"name": "alice", "password": password, "solution": "route"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	typ, entries = readNext(t, conn)
	require.Equal(t, "leaderboard", typ)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Identity)

	resp = env.post(t, "/winner", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	typ, entries = readNext(t, conn)
	require.Equal(t, "winners", typ)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Score)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "bogus"}))
	typ, _ = readNext(t, conn)
	assert.Equal(t, "error", typ)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "refresh"}))
	first, _ := readNext(t, conn)
	second, _ := readNext(t, conn)
	assert.Equal(t, []string{"leaderboard", "winners"}, []string{first, second})
}

func readNext(t *testing.T, conn *websocket.Conn) (string, []domain.LeaderboardEntry) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	var entries []domain.LeaderboardEntry
	_ = json.Unmarshal(msg.Payload, &entries)
	return msg.Type, entries
}
