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

	"github.com/starford/pagecraft/internal/api"
	"github.com/starford/pagecraft/internal/editor"
	"github.com/starford/pagecraft/internal/index"
	"github.com/starford/pagecraft/internal/mcpserver"
	"github.com/starford/pagecraft/internal/sse"
	"github.com/starford/pagecraft/internal/storage"
	"github.com/starford/pagecraft/internal/workservice"
)

// runtime holds the components shared by the serve and mcp commands.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB
}

func setup(opts []Option) (*runtime, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("works_path", cfg.Works.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Int("max_history", cfg.Editor.MaxHistory),
		slog.Duration("coalesce_window", cfg.Editor.CoalesceWindow),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure works directory exists.
	if err := os.MkdirAll(cfg.Works.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create works dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Works.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	// Run initial sync.
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &runtime{cfg: cfg, logger: logger, store: store, db: db}, nil
}

func (rt *runtime) service(opts ...workservice.Option) *workservice.Service {
	opts = append([]workservice.Option{
		workservice.WithLogger(rt.logger),
		workservice.WithEditorOptions(
			editor.WithMaxHistory(rt.cfg.Editor.MaxHistory),
			editor.WithCoalesceWindow(rt.cfg.Editor.CoalesceWindow),
		),
	}, opts...)
	return workservice.New(rt.store, rt.db, opts...)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	cfg, logger := rt.cfg, rt.logger

	// SSE broker.
	broker := sse.NewBroker(cfg.SSE.ListThrottle)
	defer broker.Close()

	// Build work service and API router.
	svc := rt.service(workservice.WithNotifier(broker))
	defer svc.Close()
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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if err := rt.db.Ping(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api; SSE is served at /api/events.
	r.Mount("/api", apiRouter)

	// Uploaded assets (unauthenticated so published pages can embed them).
	r.Mount("/assets", api.NewAssetRouter(svc))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher; external edits refresh clients and clean editor sessions.
	g.Go(func() error {
		err := index.Watch(gCtx, rt.db, rt.store, rt.store.Root(), logger, svc.HandleExternalChange)
		if err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

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

		if open := svc.Sessions(); len(open) > 0 {
			logger.Warn("closing editor sessions; unsaved changes are dropped",
				slog.Int("sessions", len(open)))
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

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	rt, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	defer rt.db.Close()

	svc := rt.service()
	defer svc.Close()

	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc).ServeStdio()
}
