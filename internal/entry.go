// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/studyvault/internal/api"
	"github.com/starford/studyvault/internal/index"
	"github.com/starford/studyvault/internal/mcpserver"
	"github.com/starford/studyvault/internal/pathstore"
	"github.com/starford/studyvault/internal/sse"
	"github.com/starford/studyvault/internal/storage"
	"github.com/starford/studyvault/internal/studyservice"
)

// components are the pieces shared by the HTTP and MCP entry points.
type components struct {
	logger *slog.Logger
	store  storage.Provider
	db     *index.DB
	tree   *pathstore.Tree
}

func (c *components) Close() {
	if err := c.db.Close(); err != nil {
		c.logger.Warn("index close failed", slog.String("error", err.Error()))
	}
	if err := c.store.Close(); err != nil {
		c.logger.Warn("storage close failed", slog.String("error", err.Error()))
	}
}

// setup initializes logging, storage and the search index, and brings the
// index in line with the store.
func setup(ctx context.Context, cfg *Config, logOut io.Writer) (*components, error) {
	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("index_path", cfg.Index.Path),
		slog.Bool("shared_names", cfg.Tree.SharedNames),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure data directories exist.
	for _, dir := range dataDirs(cfg) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	store, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init index: %w", err)
	}

	// Run initial sync.
	if err := index.Sync(ctx, db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &components{
		logger: logger,
		store:  store,
		db:     db,
		tree:   pathstore.New(store, pathstore.WithSharedNames(cfg.Tree.SharedNames)),
	}, nil
}

func dataDirs(cfg *Config) []string {
	dirs := []string{filepath.Dir(cfg.Index.Path)}
	switch cfg.Storage.Backend {
	case storage.BackendFS:
		dirs = append(dirs, cfg.Storage.Path)
	case storage.BackendSQLite:
		dirs = append(dirs, filepath.Dir(cfg.Storage.Path))
	}
	return dirs
}

func configure(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := configure(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	c, err := setup(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer c.Close()
	logger := c.logger

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := studyservice.NewService(c.tree, c.db,
		studyservice.WithNotifier(broker.PublishChange),
		studyservice.WithLogger(logger),
	)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, _, err := c.store.Get(r.Context(), pathstore.RootPath); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Only the file backend can be edited from outside the process.
	if fs, ok := c.store.(*storage.FS); ok {
		g.Go(func() error {
			if err := index.Watch(gCtx, c.db, fs, logger, broker.PublishChange); err != nil {
				logger.Warn("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

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

// RunMCP serves the MCP tools over stdin/stdout. Logs go to stderr so they
// do not corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := configure(opts)
	if err != nil {
		return err
	}

	c, err := setup(ctx, app.config, os.Stderr)
	if err != nil {
		return err
	}
	defer c.Close()

	svc := studyservice.NewService(c.tree, c.db, studyservice.WithLogger(c.logger))
	srv := mcpserver.New(svc, app.version)

	c.logger.Info("MCP server starting on stdio")
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
