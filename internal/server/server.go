// Package server exposes the credit report extraction endpoint over HTTP.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/sync/semaphore"

	"github.com/toricodesthings/credit-report-service/internal/extract"
	"github.com/toricodesthings/credit-report-service/internal/nlp"
)

const version = "1.0.0"

// Options tune the optional hardening layers. Zero values disable them.
type Options struct {
	ModelName string

	MaxUploadBytes        int64
	MaxConcurrentRequests int64

	RateLimitEvery time.Duration
	RateLimitBurst int

	CORSAllowedOrigins []string
	CleanupInterval    time.Duration
}

type Server struct {
	extractor extract.Extractor
	annotator nlp.Annotator
	opts      Options
	logger    *slog.Logger

	requestSem *semaphore.Weighted
	limiters   *ipLimiters

	metrics *serverMetrics
}

func New(extractor extract.Extractor, annotator nlp.Annotator, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		extractor: extractor,
		annotator: annotator,
		opts:      opts,
		logger:    logger,
		metrics:   &serverMetrics{},
	}
	if opts.MaxConcurrentRequests > 0 {
		s.requestSem = semaphore.NewWeighted(opts.MaxConcurrentRequests)
	}
	if opts.RateLimitBurst > 0 {
		s.limiters = newIPLimiters(opts.RateLimitEvery, opts.RateLimitBurst)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.withLogging, s.withRecovery)

	if len(s.opts.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.With(s.withRateLimit, s.withConcurrencyLimit).
		Post("/extract_and_summarize", s.handleExtractAndSummarize)

	return r
}
