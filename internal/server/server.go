// Package server wires the engine's HTTP surface: rebalance, order
// lifecycle, dataset ingest, and health reporting.
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

	"github.com/aristath/robo-trader/internal/config"
	"github.com/aristath/robo-trader/internal/database"
	"github.com/aristath/robo-trader/internal/modules/ingest"
	"github.com/aristath/robo-trader/internal/modules/orders"
	"github.com/aristath/robo-trader/internal/modules/rebalancing"
	"github.com/aristath/robo-trader/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Port    int
	Log     zerolog.Logger
	DB      *database.DB
	Config  *config.Config
	DevMode bool

	Rebalancing *rebalancing.Handler
	Orders      *orders.Handler
	Ingest      *ingest.Handler // nil unless running against the stub judge
	JudgeProbe  *scheduler.JudgeProbeJob
	Scheduler   *scheduler.Scheduler
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	server     *http.Server
	log        zerolog.Logger
	db         *database.DB
	cfg        *config.Config
	judgeProbe *scheduler.JudgeProbeJob
	sched      *scheduler.Scheduler

	rebalancing *rebalancing.Handler
	orders      *orders.Handler
	ingest      *ingest.Handler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		db:          cfg.DB,
		cfg:         cfg.Config,
		judgeProbe:  cfg.JudgeProbe,
		sched:       cfg.Scheduler,
		rebalancing: cfg.Rebalancing,
		orders:      cfg.Orders,
		ingest:      cfg.Ingest,
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

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/rebalance", s.rebalancing.HandleRebalance)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/ack", s.orders.HandleAck)
			r.Get("/{id}", s.orders.HandleGetOrder)
		})

		r.Get("/batches/{id}", s.orders.HandleGetBatch)

		// Dataset upload only exists in stub mode; a remote judge owns
		// its own data.
		if s.ingest != nil {
			r.Post("/ingest/upload", s.ingest.HandleUpload)
		}

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
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
