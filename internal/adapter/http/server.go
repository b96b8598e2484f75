package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/flood-exposure/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxRequestBytes bounds the body of a scenario request.
const maxRequestBytes = 1 << 20

// ScenarioEvaluator analyzes a scenario synchronously.
type ScenarioEvaluator interface {
	Evaluate(ctx context.Context, sc domain.Scenario) (domain.ExposureReport, error)
	Defaults() domain.ScenarioDefaults
}

// Server exposes health, readiness, metrics, and scenario evaluation endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// POST /v1/scenarios routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, eval ScenarioEvaluator, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/scenarios", s.handleScenario(eval))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleScenario(eval ScenarioEvaluator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.ScenarioRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		sc, err := req.Scenario(eval.Defaults())
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		rep, err := eval.Evaluate(r.Context(), sc)
		if err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				s.logger.Error("scenario evaluation failed", "scenario_id", sc.ID, "error", err)
			}
			writeError(w, status, err)
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, rep)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidScenario):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
