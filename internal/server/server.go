// Package server provides the HTTP server and routing.
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

	"github.com/aristath/fundpulse/internal/config"
	"github.com/aristath/fundpulse/internal/di"
	diagnosishandlers "github.com/aristath/fundpulse/internal/modules/diagnosis/handlers"
	historyhandlers "github.com/aristath/fundpulse/internal/modules/history/handlers"
	holdingshandlers "github.com/aristath/fundpulse/internal/modules/holdings/handlers"
	intradayhandlers "github.com/aristath/fundpulse/internal/modules/intraday/handlers"
	markethourshandlers "github.com/aristath/fundpulse/internal/modules/market_hours/handlers"
	planshandlers "github.com/aristath/fundpulse/internal/modules/plans/handlers"
	siphandlers "github.com/aristath/fundpulse/internal/modules/sip/handlers"
	stockshandlers "github.com/aristath/fundpulse/internal/modules/stocks/handlers"
	valuationhandlers "github.com/aristath/fundpulse/internal/modules/valuation/handlers"
	watchlisthandlers "github.com/aristath/fundpulse/internal/modules/watchlist/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	Container *di.Container
	Config    *config.Config
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	container      *di.Container
	originPatterns []string
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		port:           cfg.Port,
		container:      cfg.Container,
		systemHandlers: NewSystemHandlers(cfg.Container, cfg.Log),
	}
	if cfg.Config != nil {
		s.originPatterns = cfg.Config.StreamOriginPatterns
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

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
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
	c := s.container

	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", c.Metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		// The valuation stream is long-lived, so it sits outside the request timeout.
		valuationhandlers.NewHandler(c.ValuationService, c.IndexRepo, s.originPatterns, s.log).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			intradayhandlers.NewHandler(c.IntradayService, s.log).RegisterRoutes(r)
			historyhandlers.NewHandler(c.HistoryService, c.SinaClient, c.SearchHistoryRepo, s.log).RegisterRoutes(r)
			diagnosishandlers.NewHandler(c.DiagnosisService, c.CommentaryService, s.log).RegisterRoutes(r)
			siphandlers.NewHandler(c.SIPService, s.log).RegisterRoutes(r)
			stockshandlers.NewHandler(c.StocksService, s.log).RegisterRoutes(r)
			holdingshandlers.NewHandler(c.HoldingsService, s.log).RegisterRoutes(r)
			planshandlers.NewHandler(c.PlanRepo, s.log).RegisterRoutes(r)
			watchlisthandlers.NewHandler(c.IndexRepo, c.FavoriteRepo, s.log).RegisterRoutes(r)
			markethourshandlers.NewHandler(c.Calendar, s.log).RegisterRoutes(r)

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.systemHandlers.HandleSystemStatus)
				r.Get("/databases", s.systemHandlers.HandleDatabaseStats)
				r.Get("/caches", s.systemHandlers.HandleCacheStats)
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
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
