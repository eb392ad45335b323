// Package chi exposes the search and signal services over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rentsearch/internal/domain"
	"github.com/kailas-cloud/rentsearch/internal/metrics"
	healthuc "github.com/kailas-cloud/rentsearch/internal/usecase/health"
	signalsuc "github.com/kailas-cloud/rentsearch/internal/usecase/signals"
)

const (
	// maxClickBodyBytes caps the click request body.
	maxClickBodyBytes = 64 << 10
	// maxListLimit caps limit query parameters.
	maxListLimit = 100
	// userIDHeader carries the caller's user id when the query string does not.
	userIDHeader = "X-User-ID"
)

// Searcher runs free-text searches.
type Searcher interface {
	Search(ctx context.Context, userID, query string) ([]domain.RankedListing, error)
}

// SignalService records and reads click signals.
type SignalService interface {
	RecordClick(ctx context.Context, ev signalsuc.ClickEvent) signalsuc.ClickOutcome
	RecentInteractions(ctx context.Context, userID string, limit int) ([]string, error)
	Preferences(ctx context.Context, userID string) (map[string]int64, error)
	Popular(ctx context.Context, pool domain.Pool, limit int) ([]domain.Counter, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	Items []domain.RankedListing `json:"items"`
	Total int                    `json:"total"`
}

// HistoryResponse is the body of GET /signals/users/{userId}/history.
type HistoryResponse struct {
	UserID string   `json:"userId"`
	Items  []string `json:"items"`
}

// PreferencesResponse is the body of GET /signals/users/{userId}/preferences.
type PreferencesResponse struct {
	UserID   string           `json:"userId"`
	Counters map[string]int64 `json:"counters"`
}

// PopularResponse is the body of GET /signals/popular.
type PopularResponse struct {
	Pool  domain.Pool      `json:"pool"`
	Items []domain.Counter `json:"items"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// Server holds the HTTP handlers.
type Server struct {
	search        Searcher
	signals       SignalService
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, signals SignalService, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		search:        search,
		signals:       signals,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Router builds the chi router with the full middleware chain.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/search", s.Search)
	r.Route("/signals", func(r chi.Router) {
		r.Post("/click", s.RecordClick)
		r.Get("/popular", s.Popular)
		r.Get("/users/{userId}/history", s.History)
		r.Get("/users/{userId}/preferences", s.Preferences)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// Search handles GET /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		userID = strings.TrimSpace(r.Header.Get(userIDHeader))
	}

	results, err := s.search.Search(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if results == nil {
		results = []domain.RankedListing{}
	}

	writeJSON(w, http.StatusOK, SearchResponse{Items: results, Total: len(results)})
}

// RecordClick handles POST /signals/click. It always answers 200 with the outcome.
func (s *Server) RecordClick(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxClickBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusOK, signalsuc.Ignored("request body too large"))
		return
	}

	var ev signalsuc.ClickEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		writeJSON(w, http.StatusOK, signalsuc.Ignored("invalid request body"))
		return
	}

	writeJSON(w, http.StatusOK, s.signals.RecordClick(r.Context(), ev))
}

// History handles GET /signals/users/{userId}/history.
func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	items, err := s.signals.RecentInteractions(r.Context(), userID, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []string{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{UserID: userID, Items: items})
}

// Preferences handles GET /signals/users/{userId}/preferences.
func (s *Server) Preferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	counters, err := s.signals.Preferences(r.Context(), userID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if counters == nil {
		counters = map[string]int64{}
	}
	writeJSON(w, http.StatusOK, PreferencesResponse{UserID: userID, Counters: counters})
}

// Popular handles GET /signals/popular.
func (s *Server) Popular(w http.ResponseWriter, r *http.Request) {
	pool := domain.Pool(r.URL.Query().Get("pool"))
	if pool == "" {
		pool = domain.PoolRoom
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	items, err := s.signals.Popular(r.Context(), pool, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Counter{}
	}
	writeJSON(w, http.StatusOK, PopularResponse{Pool: pool, Items: items})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: report.Status,
		Checks: report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// parseLimit reads the optional limit query parameter. 0 means unset.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxListLimit {
		writeError(w, http.StatusBadRequest, CodeBadRequest,
			"limit must be between 1 and "+strconv.Itoa(maxListLimit))
		return 0, false
	}
	return n, true
}
