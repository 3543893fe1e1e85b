// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
)

// CallerHeader carries the identifier of the participant making a request.
const CallerHeader = "X-Participant-ID"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	EventDependencies
	LeaderboardDependencies
	RankDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler

	maxLimit       int
	requestTimeout time.Duration
	adminRate      float64
	adminBurst     int
	logger         logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxLeaderboardLimit caps the limit query parameter.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithRequestTimeout bounds how long a handler may run.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithAdminRateLimit throttles finish and reopen to perSec with burst.
func WithAdminRateLimit(perSec float64, burst int) Option {
	return func(s *Server) {
		if perSec > 0 && burst > 0 {
			s.adminRate = perSec
			s.adminBurst = burst
		}
	}
}

// WithLogger sets the logger used for failed requests. Without it server
// errors are answered but not logged.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		maxLimit:       500,
		requestTimeout: 15 * time.Second,
		adminRate:      2,
		adminBurst:     4,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.eventsHandler = NewEventsHandler(deps, s.logger)
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.maxLimit, s.logger)
	s.rankHandler = NewRankHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	admin := NewRateLimiter(s.adminRate, s.adminBurst)
	wrap := func(h http.HandlerFunc, endpoint string) http.HandlerFunc {
		return MetricsMiddleware(TimeoutMiddleware(h, s.requestTimeout), endpoint)
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /events/{event}/finish", wrap(admin.Middleware(s.eventsHandler.HandleFinish, "finish"), "finish"))
	mux.HandleFunc("POST /events/{event}/reopen", wrap(admin.Middleware(s.eventsHandler.HandleReopen, "reopen"), "reopen"))
	mux.HandleFunc("GET /events/{event}", wrap(s.eventsHandler.HandleGetEvent, "event"))
	mux.HandleFunc("GET /leaderboard", wrap(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /leaderboard.xlsx", wrap(s.leaderboardHandler.HandleExportLeaderboard, "leaderboard_xlsx"))
	mux.HandleFunc("GET /rank/{participant}", wrap(s.rankHandler.HandleGetRank, "rank"))
}

// finishRequest mirrors the OpenAPI schema for POST /events/{event}/finish.
type finishRequest struct {
	Order []string `json:"order"`
}

type finishResponse struct {
	Success bool `json:"success"`
	service.FinishResult
}

type reopenResponse struct {
	Success bool `json:"success"`
	service.ReopenResult
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// parseEvent reads the {event} path value.
func parseEvent(r *http.Request) (model.EventID, error) {
	raw := strings.TrimSpace(r.PathValue("event"))
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, ErrBadRequest
	}
	return model.EventID(n), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
