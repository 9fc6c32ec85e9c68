package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/webanalyst/internal/analysis"
	csvexport "github.com/JakeFAU/webanalyst/internal/export/csv"
	"github.com/JakeFAU/webanalyst/internal/metrics"
	"github.com/JakeFAU/webanalyst/internal/policy/ratelimit"
)

// APIKeyHeader carries the completion credential for a single request.
const APIKeyHeader = "X-LLM-API-Key"

const maxRequestBody = 64 << 10

// Runner executes analyses. *analysis.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, req analysis.Request) (analysis.Result, error)
	Models() []string
	DefaultModel() string
}

// Server wires HTTP handlers to the analysis pipeline.
type Server struct {
	router  chi.Router
	runner  Runner
	logger  *zap.Logger
	timeout time.Duration
}

// NewServer constructs a Server with middleware and routes. A nil limiter
// leaves the analysis routes unthrottled.
func NewServer(runner Runner, timeout time.Duration, limiter *ratelimit.Limiter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	s := &Server{
		runner:  runner,
		logger:  logger.Named("api"),
		timeout: timeout,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(timeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/models", s.listModels)
		r.Route("/analyses", func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.Middleware)
			}
			r.Post("/", s.createAnalysis)
			r.Post("/export", s.exportAnalysis)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if len(s.runner.Models()) == 0 {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no models configured"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type modelsResponse struct {
	Models  []string `json:"models"`
	Default string   `json:"default"`
}

func (s *Server) listModels(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, modelsResponse{
		Models:  s.runner.Models(),
		Default: s.runner.DefaultModel(),
	})
}

type analysisRequest struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
}

type analysisResponse struct {
	ID          string `json:"id"`
	Model       string `json:"model"`
	URL         string `json:"url"`
	Prompt      string `json:"prompt"`
	RawAnalysis string `json:"raw_analysis"`
	Analysis    string `json:"analysis"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Filename    string `json:"filename"`
	CSV         string `json:"csv"`
}

func (s *Server) createAnalysis(w http.ResponseWriter, r *http.Request) {
	result, ok := s.runAnalysis(w, r)
	if !ok {
		return
	}
	body, err := csvexport.Encode(result.Record)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	row := csvexport.Row(result.Record)
	w.Header().Set("X-Analysis-ID", result.ID)
	s.writeJSON(w, http.StatusOK, analysisResponse{
		ID:          result.ID,
		Model:       result.Model,
		URL:         result.Record.URL,
		Prompt:      result.Record.Prompt,
		RawAnalysis: result.RawAnalysis,
		Analysis:    result.Record.Analysis,
		Date:        row[3],
		Time:        row[4],
		Filename:    csvexport.Filename(result.Record.Timestamp),
		CSV:         string(body),
	})
}

func (s *Server) exportAnalysis(w http.ResponseWriter, r *http.Request) {
	result, ok := s.runAnalysis(w, r)
	if !ok {
		return
	}
	body, err := csvexport.Encode(result.Record)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", csvexport.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", csvexport.Filename(result.Record.Timestamp)))
	w.Header().Set("X-Analysis-ID", result.ID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Warn("write csv failed", zap.String("analysis_id", result.ID), zap.Error(err))
	}
}

// runAnalysis decodes the request and runs the pipeline, writing the error
// response itself when it reports false.
func (s *Server) runAnalysis(w http.ResponseWriter, r *http.Request) (analysis.Result, bool) {
	var req analysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return analysis.Result{}, false
	}
	result, err := s.runner.Run(r.Context(), analysis.Request{
		URL:    req.URL,
		Prompt: req.Prompt,
		Model:  req.Model,
		APIKey: r.Header.Get(APIKeyHeader),
	})
	if err != nil {
		if status, ok := validationStatus(err); ok {
			s.writeError(w, status, err.Error())
			return analysis.Result{}, false
		}
		s.writeFailure(w, err)
		return analysis.Result{}, false
	}
	return result, true
}

func validationStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, analysis.ErrMissingAPIKey):
		return http.StatusUnauthorized, true
	case errors.Is(err, analysis.ErrEmptyURL),
		errors.Is(err, analysis.ErrEmptyPrompt),
		errors.Is(err, analysis.ErrUnknownModel):
		return http.StatusBadRequest, true
	default:
		return 0, false
	}
}

func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	failure := analysis.Explain(err)
	status := http.StatusInternalServerError
	if failure.Category == analysis.CategoryFetch {
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, failure)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					zap.String("request_id", requestID(r.Context())),
					zap.Any("error", rec),
				)
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// timeoutBody is written verbatim by http.TimeoutHandler once d elapses.
var timeoutBody = func() string {
	body, _ := json.Marshal(analysis.Failure{
		Category: analysis.CategoryGeneric,
		Message:  "request timed out",
		Guidance: []string{"Please try again or contact support if the issue persists"},
	})
	return string(body)
}()

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := http.TimeoutHandler(next, d, timeoutBody)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(timeoutWriter{w}, r)
		})
	}
}

// timeoutWriter labels the TimeoutHandler's bare 503 as JSON.
type timeoutWriter struct {
	http.ResponseWriter
}

func (w timeoutWriter) WriteHeader(code int) {
	if code == http.StatusServiceUnavailable && w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.ResponseWriter.WriteHeader(code)
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
