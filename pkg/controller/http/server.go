package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/utils/async"
	"github.com/stocklens/newsrag/pkg/utils/logging"
)

type SearchUseCase interface {
	Search(ctx context.Context, q model.Query) (*model.SearchResult, error)
}

type Ingester interface {
	RunIngestion(ctx context.Context) (*model.IngestReport, error)
}

// StoreProbe is asked by the health endpoint
type StoreProbe interface {
	Count(ctx context.Context) (int, error)
}

type Server struct {
	router   *chi.Mux
	search   SearchUseCase
	ingester Ingester
	probe    StoreProbe
	runner   async.Runner
}

type Options func(*Server)

// WithIngest exposes POST /api/ingest
func WithIngest(ingester Ingester) Options {
	return func(s *Server) {
		s.ingester = ingester
	}
}

func WithStoreProbe(probe StoreProbe) Options {
	return func(s *Server) {
		s.probe = probe
	}
}

func New(search SearchUseCase, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		search: search,
	}
	for _, opt := range opts {
		opt(s)
	}

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler(s.probe))

	r.Route("/api", func(r chi.Router) {
		r.Post("/news/search", searchHandler(s.search))
		if s.ingester != nil {
			r.Method(http.MethodPost, "/ingest", &ingestTrigger{ingester: s.ingester, runner: &s.runner})
		}
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Wait blocks until background ingestion runs started over HTTP have returned
func (s *Server) Wait(ctx context.Context) error {
	return s.runner.Wait(ctx)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.From(r.Context()).Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
