package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/mihaisavezi/llmpanel/internal/config"
	"github.com/mihaisavezi/llmpanel/internal/features"
	"github.com/mihaisavezi/llmpanel/internal/handlers"
	"github.com/mihaisavezi/llmpanel/internal/middleware"
	"github.com/mihaisavezi/llmpanel/internal/providers"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	config   *config.Manager
	registry *providers.Registry
	core     *features.Core
	agent    *features.Agent
	logger   *slog.Logger
	server   *http.Server
}

func New(configManager *config.Manager, registry *providers.Registry, core *features.Core, logger *slog.Logger) *Server {
	return &Server{
		config:   configManager,
		registry: registry,
		core:     core,
		agent:    features.NewAgent(core, features.DefaultAgentMemory),
		logger:   logger,
	}
}

// Start serves until SIGINT/SIGTERM or ctx is done, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Get()
	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting server", "address", ln.Addr().String(), "provider", s.registry.CurrentName())

	errCh := make(chan error, 1)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("Server exited")

	return nil
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Routes builds the router. It is exported for tests.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	keys := middleware.KeySourceFunc(func() string { return s.config.Get().APIKey })
	middlewareSet := middleware.NewMiddlewareSet(keys, s.logger)

	healthHandler := handlers.NewHealthHandler(s.registry, s.logger)
	providersHandler := handlers.NewProvidersHandler(s.registry, s.logger)
	featureHandler := handlers.NewFeatureHandler(s.core, s.agent,
		func() string { return s.config.Get().TargetLanguage }, s.logger)

	r.Method(http.MethodGet, "/health", middlewareSet.HealthChain().Handler(healthHandler))

	api := chi.NewRouter()
	api.Get("/providers", providersHandler.List)
	api.Get("/models/health", providersHandler.ModelHealth)
	api.Delete("/models/health", providersHandler.ResetModelHealth)
	api.Post("/translate", featureHandler.Translate)
	api.Post("/enhance", featureHandler.Enhance)
	api.Post("/email", featureHandler.Email)
	api.Post("/agent", featureHandler.Agent)

	r.Mount("/api/v1", middlewareSet.DefaultChain().Handler(api))

	return r
}
