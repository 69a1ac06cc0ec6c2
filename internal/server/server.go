package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/karkinos-edge/authserver/config"
	"github.com/karkinos-edge/authserver/internal/auth"
	"github.com/karkinos-edge/authserver/internal/events"
	"github.com/karkinos-edge/authserver/internal/handlers"
	"github.com/karkinos-edge/authserver/internal/services"
	"github.com/sirupsen/logrus"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	store      credentialStore
	publisher  *events.Publisher
	logger     logrus.FieldLogger
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*Server, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	hasher, err := auth.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}

	opts := []services.Option{services.WithLogger(logger)}

	var publisher *events.Publisher
	backend, err := events.NewBackend(ctx, cfg.Events)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open %s events backend: %w", cfg.Events.Backend, err)
	}
	if backend != nil {
		publisher, err = events.NewPublisher(backend, cfg.Events.Topic)
		if err != nil {
			_ = backend.Close()
			_ = st.Close()
			return nil, err
		}
		opts = append(opts, services.WithEventPublisher(publisher))
	}

	credentialService := services.NewCredentialService(st, hasher, opts...)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		handlers.RequestLogger(logger),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/", handlers.Welcome)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		handlers.CredentialRouter(r, credentialService, logger)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 7000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		store:      st,
		publisher:  publisher,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the store and the events
// backend.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.publisher != nil {
		err = errors.Join(err, s.publisher.Close())
	}
	if s.store != nil {
		err = errors.Join(err, s.store.Close())
	}
	return err
}
