// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/holteng/minne/internal/api"
	"github.com/holteng/minne/internal/auth"
	"github.com/holteng/minne/internal/chat"
	"github.com/holteng/minne/internal/llm"
	"github.com/holteng/minne/internal/objectstore"
	"github.com/holteng/minne/internal/sse"
	"github.com/holteng/minne/internal/store"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("objects_backend", cfg.Objects.Backend),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize the relational store.
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// Initialize object storage.
	objects, fsObjects, err := buildObjectStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init object store: %w", err)
	}

	// Model provider.
	provider := app.provider
	if provider == nil {
		if cfg.Model.APIKey == "" {
			return fmt.Errorf("model api key is required (model.api_key or MODEL_API_KEY)")
		}
		provider = llm.NewOpenAI(cfg.Model.APIKey, cfg.Model.BaseURL)
	}

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	// Build services and the API router.
	chatSvc := chat.NewService(db, provider)
	handler := api.NewHandler(db, objects, chatSvc, broker, api.HandlerConfig{
		MaxUploadBytes: cfg.Objects.MaxUploadBytes,
		CronToken:      cfg.Cron.Token,
	})
	apiRouter := api.NewRouter(handler, auth.Middleware(buildAuthProvider(cfg)))

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Signed-URL downloads for the fs backend.
	if fsObjects != nil {
		r.Get("/files/{token}", fsObjects.TokenHandler())
	}

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// buildObjectStore constructs the configured provider. The fs provider is
// also returned concretely so its token handler can be mounted.
func buildObjectStore(ctx context.Context, cfg *Config) (objectstore.Provider, *objectstore.FS, error) {
	switch cfg.Objects.Backend {
	case ObjectsBackendS3:
		s3, err := objectstore.NewS3(ctx, objectstore.S3Config{
			Bucket:       cfg.Objects.S3.Bucket,
			Region:       cfg.Objects.S3.Region,
			Endpoint:     cfg.Objects.S3.Endpoint,
			AccessKey:    cfg.Objects.S3.AccessKey,
			SecretKey:    cfg.Objects.S3.SecretKey,
			UsePathStyle: cfg.Objects.S3.UsePathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return s3, nil, nil
	default:
		fs, err := objectstore.NewFS(cfg.Objects.Path)
		if err != nil {
			return nil, nil, err
		}
		return fs, fs, nil
	}
}

func buildAuthProvider(cfg *Config) auth.Provider {
	switch cfg.Auth.Mode {
	case AuthModeToken:
		return auth.StaticToken{Token: cfg.Auth.Token, Owner: cfg.Auth.Owner}
	case AuthModeIntrospect:
		return auth.NewIntrospector(cfg.Auth.IntrospectURL, time.Minute)
	default:
		return auth.Disabled{Owner: cfg.Auth.Owner}
	}
}
