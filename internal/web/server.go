package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/conorfennell/wordcards/internal/catalog"
	"github.com/conorfennell/wordcards/internal/domain"
	"github.com/conorfennell/wordcards/internal/importer"
	"github.com/conorfennell/wordcards/internal/queue"
	"github.com/conorfennell/wordcards/internal/review"
	"github.com/conorfennell/wordcards/internal/storage"
)

// SourceManager manages deck sources and imports.
type SourceManager interface {
	Sources(ctx context.Context) ([]storage.Source, error)
	AddSource(ctx context.Context, path string) (storage.Source, error)
	DeleteSource(ctx context.Context, id int64) error
	RunSync(ctx context.Context) (importer.Report, error)
}

// Options configure a Server.
type Options struct {
	// DefaultLimit is the queue size when the request does not give one.
	DefaultLimit int
	// CORSOrigins lists the origins allowed to call the API from a browser.
	CORSOrigins []string
	// Ping reports whether the backing store is reachable. May be nil.
	Ping   func(ctx context.Context) error
	Logger *slog.Logger
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	review  *review.Service
	catalog *catalog.Service
	sources SourceManager
	opts    Options
	logger  *slog.Logger
	router  *chi.Mux
}

// NewServer creates and configures a new server.
func NewServer(reviews *review.Service, cards *catalog.Service, sources SourceManager, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = queue.DefaultLimit
	}
	s := &Server{
		review:  reviews,
		catalog: cards,
		sources: sources,
		opts:    opts,
		logger:  opts.Logger,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth())

	r.Route("/api", func(r chi.Router) {
		r.Route("/cards", func(r chi.Router) {
			r.Get("/", s.handleListCards())
			r.Post("/", s.handleCreateCard())
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetCard())
				r.Put("/", s.handleUpdateCard())
				r.Delete("/", s.handleDeleteCard())
				r.Post("/attempts", s.handlePostAttempt())
				r.Get("/reviews", s.handleGetReviews())
			})
		})

		r.Get("/review/queue", s.handleGetQueue())
		r.Get("/statistics", s.handleGetStatistics())

		r.Get("/categories", s.handleListCategories())
		r.Post("/categories", s.handleCreateCategory())

		r.Get("/sources", s.handleListSources())
		r.Post("/sources", s.handlePostSource())
		r.Delete("/sources/{id}", s.handleDeleteSource())
		r.Post("/sync", s.handlePostSync())
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain errors to status codes. Storage and unexpected
// errors are logged and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		msg = "internal server error"
	}
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Ping != nil {
			if err := s.opts.Ping(r.Context()); err != nil {
				s.logger.Warn("health check failed", "error", err)
				s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
