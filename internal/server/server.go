// Package server is the composition root: it opens the database and the blob
// store, builds services and handlers, and mounts them on a chi router.
//
// DEPENDENCY FLOW:
//
//	config.Config → sqlite.DB ──────────────┐
//	             → storage.LocalStore ──────┤
//	             → auth.TokenService ───────┼→ services → handlers → routes
//	             → auth.KakaoProvider ──────┘
//
// Handlers only see services, services only see repository interfaces.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sakif/paperplane/internal/auth"
	"github.com/sakif/paperplane/internal/config"
	"github.com/sakif/paperplane/internal/handler"
	"github.com/sakif/paperplane/internal/metrics"
	"github.com/sakif/paperplane/internal/middleware"
	sqliteRepo "github.com/sakif/paperplane/internal/repository/sqlite"
	"github.com/sakif/paperplane/internal/service"
	"github.com/sakif/paperplane/internal/storage"
)

// Server owns the router and the resources closed on shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	tokens *auth.TokenService
}

// New opens the database and the file store and wires every route.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if dir := filepath.Dir(cfg.DBPath); cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	secret := cfg.JWTSecret
	if secret == "" {
		// Nobody can log in without Kakao routes, so the /api group simply
		// rejects everything. The throwaway secret keeps RequireAuth usable.
		secret, err = randomSecret()
		if err != nil {
			db.Close()
			return nil, err
		}
		logger.Warn("JWT_SECRET not set: authentication is disabled")
	}
	tokens, err := auth.NewTokenService(secret, cfg.TokenTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		tokens: tokens,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// setupRoutes mounts:
//
//	GET    /healthz
//	GET    /metrics
//	GET    /files/{name}                   stored attachments, owner or buyer only
//	GET    /auth/kakao/login               (when Kakao is configured)
//	GET    /auth/kakao/callback
//	POST   /auth/logout
//	GET    /api/ideas[?category=TECH]
//	GET    /api/ideas/search?keyword=
//	POST   /api/ideas
//	GET    /api/ideas/{id}
//	GET    /api/ideas/{id}/file
//	PUT    /api/ideas/{id}
//	DELETE /api/ideas/{id}
//	GET    /api/users/{username}/ideas
//	GET    /api/me
//	PATCH  /api/me/username
//
// Everything under /api and /files needs a session.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(metrics.HTTPMetricsMiddleware)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	store, err := storage.NewLocalStore(s.config.StorageDir, s.config.FilesBaseURL())
	if err != nil {
		return fmt.Errorf("creating file store: %w", err)
	}

	ideaService := service.NewIdeaService(s.db, s.db, s.db, s.db, store, s.logger)
	userService := service.NewUserService(s.db, s.db, s.logger)

	ideaHandler := handler.NewIdeaHandler(ideaService, s.config.MaxUploadMB<<20, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	fileHandler := handler.NewFileHandler(ideaService, s.config.FilesBaseURL(),
		http.FileServer(http.Dir(s.config.StorageDir)), s.logger)

	s.router.With(auth.RequireAuth(s.tokens)).Get("/files/*", fileHandler.HandleServe)

	secureCookies := s.config.Environment != "development"
	if s.config.AuthEnabled() {
		authService := service.NewAuthService(s.db, s.db, s.tokens, s.logger)
		kakao := auth.NewKakaoProvider(s.config.KakaoClientID, s.config.KakaoClientSecret, s.config.KakaoCallbackURL)
		authHandler := handler.NewAuthHandler(kakao, authService, s.tokens.TTL(), secureCookies, s.logger)

		s.router.Get("/auth/kakao/login", authHandler.HandleKakaoLogin)
		s.router.Get("/auth/kakao/callback", authHandler.HandleKakaoCallback)
		s.router.Post("/auth/logout", authHandler.HandleLogout)
	} else {
		s.logger.Warn("Kakao login disabled: set JWT_SECRET and KAKAO_CLIENT_ID to enable it")
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(s.tokens))

		r.Get("/ideas", ideaHandler.HandleList)
		r.Get("/ideas/search", ideaHandler.HandleSearch)
		r.Post("/ideas", ideaHandler.HandleCreate)
		r.Get("/ideas/{id}", ideaHandler.HandleGet)
		r.Get("/ideas/{id}/file", ideaHandler.HandleGetFile)
		r.Put("/ideas/{id}", ideaHandler.HandleUpdate)
		r.Delete("/ideas/{id}", ideaHandler.HandleDelete)
		r.Get("/users/{username}/ideas", ideaHandler.HandleListByUser)

		r.Get("/me", userHandler.HandleMe)
		r.Patch("/me/username", userHandler.HandleUpdateUsername)
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

// Handler returns the router wrapped in OpenTelemetry instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "paperplane")
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.Handler(),
		// uploads can take a while
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("environment", s.config.Environment),
			slog.String("database", s.config.DBPath),
			slog.String("storage", s.config.StorageDir),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
