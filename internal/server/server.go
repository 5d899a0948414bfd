// Package server provides the HTTP server and routing for paperdesk.
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

	"github.com/aristath/paperdesk/internal/config"
	"github.com/aristath/paperdesk/internal/di"
	agentshandlers "github.com/aristath/paperdesk/internal/modules/agents/handlers"
	markethandlers "github.com/aristath/paperdesk/internal/modules/market/handlers"
	ordershandlers "github.com/aristath/paperdesk/internal/modules/orders/handlers"
	portfoliohandlers "github.com/aristath/paperdesk/internal/modules/portfolio/handlers"
	profilehandlers "github.com/aristath/paperdesk/internal/modules/profile/handlers"
	"github.com/aristath/paperdesk/internal/session"
)

// requestTimeout bounds every non-streaming request
const requestTimeout = 60 * time.Second

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container // DI container with all services
	Jobs      *di.JobInstances
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	systemHandlers *SystemHandlers
	statusMonitor  *StatusMonitor
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	systemHandlers := NewSystemHandlers(
		cfg.Log,
		cfg.Container.MarketCacheDB,
		cfg.Container.Scheduler,
		cfg.Jobs,
	)

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		container:      cfg.Container,
		systemHandlers: systemHandlers,
		statusMonitor:  NewStatusMonitor(cfg.Container.EventManager, cfg.Container.MarketCacheDB, cfg.Log),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: event streams stay open; other routes are bounded by requestTimeout
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", session.HeaderUserID, session.HeaderUserRole},
		ExposedHeaders:   []string{"Link", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}

	// Acting user from request headers
	s.router.Use(session.Middleware)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Event streams are long-lived and stay outside the request timeout
		eventsStreamHandler := NewEventsStreamHandler(s.container.EventBus, s.log)
		r.Get("/events/stream", eventsStreamHandler.ServeHTTP)
		eventsSocketHandler := NewEventsSocketHandler(s.container.EventBus, s.cfg.CORSOrigins, s.log)
		r.Get("/events/ws", eventsSocketHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.systemHandlers.HandleSystemStatus)
				r.Get("/jobs", s.systemHandlers.HandleJobsStatus)
				r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)

				// Job triggers (manual operation triggers)
				r.Route("/jobs", func(r chi.Router) {
					r.Post("/cache-cleanup", s.systemHandlers.HandleTriggerCacheCleanup)
					r.Post("/quote-warmup", s.systemHandlers.HandleTriggerQuoteWarmup)
				})
			})

			ordersHandler := ordershandlers.NewHandler(s.container.DispatchService, s.container.ResolutionService, s.log)
			ordersHandler.RegisterRoutes(r)

			portfolioHandler := portfoliohandlers.NewHandler(s.container.PortfolioService, s.log)
			portfolioHandler.RegisterRoutes(r)

			marketHandler := markethandlers.NewHandler(s.container.MarketService, s.log)
			marketHandler.RegisterRoutes(r)

			agentsHandler := agentshandlers.NewHandler(s.container.AgentsService, s.log)
			agentsHandler.RegisterRoutes(r)

			profileHandler := profilehandlers.NewHandler(s.container.ProfileService, s.log)
			profileHandler.RegisterRoutes(r)
		})
	})
}

// Start starts the HTTP server and background monitors
func (s *Server) Start() error {
	// Check the cache every 60 seconds
	if s.statusMonitor != nil {
		s.statusMonitor.Start(60 * time.Second)
		s.log.Info().Msg("Status monitor started")
	}

	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	if s.statusMonitor != nil {
		s.statusMonitor.Stop()
	}
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
