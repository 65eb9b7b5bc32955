// Package server exposes the read-only HTTP surface: health, job status,
// accrual inspection and manual job triggers.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/rgeorgiou/quarterbook/internal/database"
	"github.com/rgeorgiou/quarterbook/internal/jobstatus"
	"github.com/rgeorgiou/quarterbook/internal/modules/investments"
	"github.com/rgeorgiou/quarterbook/internal/modules/lifecycle"
	"github.com/rgeorgiou/quarterbook/internal/modules/rates"
)

// JobRunner triggers registered background jobs by name.
type JobRunner interface {
	RunByName(name string) error
	JobNames() []string
}

// Config holds server configuration.
type Config struct {
	Port        int
	Log         zerolog.Logger
	DB          *database.DB
	Investments *investments.Repository
	Rates       *rates.Repository
	Resolver    *rates.Resolver
	Lifecycle   *lifecycle.Manager
	Checkpoints *jobstatus.Repository
	Jobs        JobRunner
	DevMode     bool
}

// Server is the HTTP server.
type Server struct {
	router      *chi.Mux
	server      *http.Server
	log         zerolog.Logger
	db          *database.DB
	investments *investments.Repository
	rates       *rates.Repository
	resolver    *rates.Resolver
	lifecycle   *lifecycle.Manager
	checkpoints *jobstatus.Repository
	jobs        JobRunner
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		db:          cfg.DB,
		investments: cfg.Investments,
		rates:       cfg.Rates,
		resolver:    cfg.Resolver,
		lifecycle:   cfg.Lifecycle,
		checkpoints: cfg.Checkpoints,
		jobs:        cfg.Jobs,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Route("/investments", func(r chi.Router) {
			r.Get("/{id}/accrual", s.handleInvestmentAccrual)
			r.Get("/{id}/projection", s.handleInvestmentProjection)
		})

		r.Get("/rates", s.handleRateHistory)
		r.Get("/reconciliation", s.handleReconciliation)

		r.Post("/jobs/{name}/run", s.handleRunJob)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the mux for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
