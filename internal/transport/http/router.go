package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	m "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"routing-arena/internal/domain"
)

// Arena is the participant-facing use case surface.
type Arena interface {
	Login(identity, secret string) (string, error)
	Submit(ctx context.Context, identity, secret, solution string) (domain.SubmitOutcome, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	TopThree(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

// Recomputer triggers a winner recomputation.
type Recomputer interface {
	Recompute(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

// RankingReader returns the last computed winner ranking.
type RankingReader interface {
	Ranking(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

// RankingFunc adapts a function to RankingReader.
type RankingFunc func(ctx context.Context) ([]domain.LeaderboardEntry, error)

func (f RankingFunc) Ranking(ctx context.Context) ([]domain.LeaderboardEntry, error) { return f(ctx) }

// Options wires the router. Rankings, Metrics and Health are optional.
type Options struct {
	Arena      Arena
	Recomputer Recomputer
	Rankings   RankingReader
	Hub        *Hub
	Metrics    http.Handler
	Health     func(ctx context.Context) error
}

type server struct {
	opts     Options
	validate *validator.Validate
}

// NewRouter builds the HTTP surface of the arena.
func NewRouter(opts Options) http.Handler {
	if opts.Hub == nil {
		opts.Hub = NewHub()
	}
	s := &server{opts: opts, validate: validator.New()}

	r := chi.NewRouter()
	r.Use(m.RequestID, m.RealIP, m.Logger, m.Recoverer, allowAllOrigins)

	r.Post("/login", s.login)
	r.Post("/submit", s.submit)
	r.Post("/winner", s.recompute)
	r.Get("/winner", s.ranking)
	r.Get("/leaderboard", s.leaderboard)
	r.Get("/top3", s.topThree)
	r.Get("/healthz", s.healthz)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	r.Get("/ws/leaderboard", NewWSHandler(opts.Hub).ServeWS)
	return r
}

type loginRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required"`
}

type submitRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required"`
	Solution string `json:"solution" validate:"max=100000"`
}

type loginResponse struct {
	Name string `json:"name"`
}

type errResp struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into dst and validates it, writing the error
// response itself when it returns false.
func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{"invalid JSON body"})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errResp{err.Error()})
		return false
	}
	return true
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAuthFailed):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, errResp{"Incorrect password"})
	case errors.Is(err, domain.ErrTriesExceeded):
		writeJSON(w, http.StatusForbidden, errResp{"Maximum number of tries exceeded"})
	case errors.Is(err, domain.ErrLockBusy):
		writeJSON(w, http.StatusTooManyRequests, errResp{"A submission for this name is already being scored"})
	case errors.Is(err, domain.ErrBankUnavailable):
		log.Printf("http: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, errResp{"Question bank unavailable"})
	default:
		log.Printf("http: %v", err)
		writeJSON(w, http.StatusInternalServerError, errResp{"Internal server error"})
	}
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}
	name, err := s.opts.Arena.Login(req.Name, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Name: name})
}

func (s *server) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.opts.Arena.Submit(r.Context(), req.Name, req.Password, req.Solution)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) recompute(w http.ResponseWriter, r *http.Request) {
	entries, err := s.opts.Recomputer.Recompute(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *server) ranking(w http.ResponseWriter, r *http.Request) {
	if s.opts.Rankings == nil {
		writeJSON(w, http.StatusNotFound, errResp{"No ranking available"})
		return
	}
	entries, err := s.opts.Rankings.Ranking(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *server) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeJSON(w, http.StatusBadRequest, errResp{"limit must be between 1 and 100"})
			return
		}
		limit = n
	}
	entries, err := s.opts.Arena.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *server) topThree(w http.ResponseWriter, r *http.Request) {
	entries, err := s.opts.Arena.TopThree(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		if err := s.opts.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
