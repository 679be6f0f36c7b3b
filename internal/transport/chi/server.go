// Package chi exposes the retrieval and segmentation services over
// HTTP using the chi router.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/msgdex/internal/domain"
	"github.com/kailas-cloud/msgdex/internal/domain/job"
	healthuc "github.com/kailas-cloud/msgdex/internal/usecase/health"
	jobsuc "github.com/kailas-cloud/msgdex/internal/usecase/jobs"
	searchuc "github.com/kailas-cloud/msgdex/internal/usecase/search"
)

// ErrorCode identifies a machine-readable error class in responses.
type ErrorCode string

// Error codes returned by the API.
const (
	CodeBadRequest           ErrorCode = "bad_request"
	CodeValidationFailed     ErrorCode = "validation_failed"
	CodeNotFound             ErrorCode = "not_found"
	CodeStrategyNotSupported ErrorCode = "strategy_not_supported"
	CodeInvalidTransition    ErrorCode = "invalid_transition"
	CodeRetryExhausted       ErrorCode = "retry_exhausted"
	CodeEmbeddingProviderErr ErrorCode = "embedding_provider_error"
	CodeBackendUnavailable   ErrorCode = "backend_unavailable"
	CodeInternalError        ErrorCode = "internal_error"
)

type errorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API server.
type Server struct {
	search        *searchuc.Service
	jobs          *jobsuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	jobs *jobsuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search: search,
		jobs:   jobs,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		transitionHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidCriteria, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrStrategyNotSupported, http.StatusBadRequest, CodeStrategyNotSupported),
		sentinelHandler(job.ErrCannotRetry, http.StatusConflict, CodeRetryExhausted),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderErr),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable, CodeBackendUnavailable),
	}
	return s
}

// Routes mounts all endpoints on a fresh router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Post("/search/analyze", s.AnalyzeQuery)
		r.Get("/search/suggest", s.Suggest)
		r.Get("/search/stats", s.Statistics)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.CreateJob)
			r.Get("/{id}", s.GetJob)
			r.Post("/{id}/run", s.RunJob)
			r.Post("/{id}/retry", s.RetryJob)
			r.Post("/{id}/cancel", s.CancelJob)
		})
	})

	return r
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidInput,
		domain.ErrInvalidCriteria,
		domain.ErrStrategyNotSupported,
		job.ErrCannotRetry,
		domain.ErrEmbeddingProviderError,
		domain.ErrBackendUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// transitionHandler maps illegal job transitions to 409 with the
// transition detail, which is safe to expose.
func transitionHandler(w http.ResponseWriter, err error, _ string) bool {
	var te *job.InvalidTransitionError
	if !errors.As(err, &te) {
		return false
	}
	writeError(w, http.StatusConflict, CodeInvalidTransition, te.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
