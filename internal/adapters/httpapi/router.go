// Package httpapi exposes the scoring service over HTTP with a chi router.
package httpapi

import (
	"expvar"
	"log/slog"
	"net/http"
	"time"

	"cricketcore/internal/archive"
	"cricketcore/internal/core"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultRequestTimeout bounds every request handled by the router.
const DefaultRequestTimeout = 30 * time.Second

// Handler serves the scoring API.
type Handler struct {
	svc      *core.Service
	archiver *archive.Archiver
	metrics  http.Handler
	logger   *slog.Logger
	origins  []string
	timeout  time.Duration
}

// Option customises a Handler.
type Option func(*Handler)

// WithArchiver enables the /archive routes.
func WithArchiver(a *archive.Archiver) Option {
	return func(h *Handler) { h.archiver = a }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(metrics http.Handler) Option {
	return func(h *Handler) { h.metrics = metrics }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithCORSOrigins sets the allowed origins. An empty list allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(h *Handler) { h.origins = origins }
}

// WithRequestTimeout overrides DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// NewHandler constructs the API handler for svc.
func NewHandler(svc *core.Service, opts ...Option) *Handler {
	h := &Handler{
		svc:     svc,
		logger:  slog.New(slog.DiscardHandler),
		timeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the chi router.
func (h *Handler) Router() http.Handler {
	origins := h.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(h.timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Handle("/debug/vars", expvar.Handler())
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/teams", h.listTeams)
		r.Post("/teams", h.createTeam)
		r.Get("/teams/{team}/players", h.roster)
		r.Post("/teams/{team}/players", h.addPlayer)

		r.Get("/matches", h.listMatches)
		r.Post("/matches", h.scheduleMatch)
		r.Route("/matches/{id}", func(r chi.Router) {
			r.Get("/", h.matchState)
			r.Get("/scorecard", h.scorecard)
			r.Post("/start", h.startMatch)
			r.Post("/deliveries", h.applyDelivery)
			r.Post("/undo", h.undo)
			r.Put("/bowler", h.assignBowler)
			r.Put("/striker", h.assignStriker)
			r.Put("/non-striker", h.assignNonStriker)
			r.Put("/bat-first", h.setBatFirst)
			r.Post("/close", h.closeMatch)
			r.Put("/dialog", h.openDialog)
			r.Delete("/dialog", h.closeDialog)

			r.Get("/archive", h.archiveHistory)
			r.Get("/archive/latest", h.archiveLatest)
			r.Get("/archive/url", h.archiveURL)
		})
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}
