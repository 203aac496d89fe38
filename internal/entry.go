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

	"github.com/starford/mdstrip/internal/api"
	"github.com/starford/mdstrip/internal/apperr"
	"github.com/starford/mdstrip/internal/docservice"
	"github.com/starford/mdstrip/internal/ledger"
	"github.com/starford/mdstrip/internal/mcpserver"
	"github.com/starford/mdstrip/internal/rewrite"
	"github.com/starford/mdstrip/internal/sse"
	"github.com/starford/mdstrip/internal/storage"
)

// runtime holds the components every command needs.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	db     *ledger.DB
	svc    *docservice.Service
	out    io.Writer
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logOutput == nil {
		app.logOutput = os.Stdout
	}
	if app.output == nil {
		app.output = os.Stdout
	}
	return app, nil
}

// open builds logger, storage, ledger and document service.
func (a *application) open() (*runtime, error) {
	cfg := a.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Debug("Configuration loaded",
		slog.String("content_root", cfg.Content.Root),
		slog.String("ledger_path", cfg.LedgerPath()),
		slog.String("origin", cfg.Links.Origin),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Content.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	ledgerPath := cfg.LedgerPath()
	if err := os.MkdirAll(filepath.Dir(ledgerPath), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	db, err := ledger.Open(ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("init ledger: %w", err)
	}

	links := cfg.RewriteLinks()
	pipeline := rewrite.New(storage.NewResources(store, links.ResourcesDir), links)
	svc := docservice.NewService(store, db, pipeline, logger, cfg.Content.Workers)

	return &runtime{cfg: cfg, logger: logger, store: store, db: db, svc: svc, out: a.output}, nil
}

func (r *runtime) Close() error {
	return r.db.Close()
}

func start(opts []Option) (*runtime, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	return app.open()
}

// RewriteFile rewrites a single file. file is resolved against the working
// directory and must lie under the content root. With toStdout the result
// is printed instead of written back.
func RewriteFile(ctx context.Context, file string, toStdout bool, opts ...Option) error {
	if file == "" {
		return apperr.ErrNoInput
	}

	rt, err := start(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	rel, err := rt.store.Rel(file)
	if err != nil {
		return err
	}

	if toStdout {
		res, err := rt.svc.Preview(ctx, rel)
		if err != nil {
			return err
		}
		_, err = io.WriteString(rt.out, res.Text)
		return err
	}

	res, err := rt.svc.RewriteFile(ctx, rel)
	if err != nil {
		return err
	}
	rt.logger.Info("rewrite: done",
		slog.String("path", res.Path),
		slog.Bool("changed", res.Changed),
		slog.Int("rewrites", res.Report.Rewrites()),
		slog.Int("residuals", len(res.Report.Residuals)))
	return nil
}

// Sync rewrites every changed document under the content root once.
func Sync(ctx context.Context, opts ...Option) error {
	rt, err := start(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	run, err := rt.svc.Sync(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(rt.out, "run %s: %d files, %d rewritten, %d skipped, %d failed\n",
		run.ID, run.Files, run.Rewritten, run.Skipped, run.Failed)
	return err
}

// Watch syncs the content root and then rewrites documents as they change
// until ctx is cancelled or a shutdown signal arrives.
func Watch(ctx context.Context, opts ...Option) error {
	rt, err := start(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := rt.svc.Sync(ctx); err != nil {
		rt.logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return rt.svc.Watch(ctx, func(kind, path string) {
		rt.logger.Info("watch: "+kind, slog.String("path", path))
	})
}

// ServeMCP runs the MCP server on stdio.
func ServeMCP(_ context.Context, opts ...Option) error {
	rt, err := start(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.svc, rt.cfg.Content.AssetsDir).ServeStdio()
}

// Run starts the HTTP server with the SSE stream and the file watcher.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := start(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, logger, svc := rt.cfg, rt.logger, rt.svc

	// Run initial sync.
	if _, err := svc.Sync(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.Content.AssetsDir)
	assets := api.NewAssetHandler(svc, cfg.Content.AssetsDir)

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

	// Uploaded assets are public, like the documents that embed them.
	r.Get("/assets/{filename}", assets.ServeFile)

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_root", rt.store.Root()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		return svc.Watch(gCtx, broker.PublishDocumentEvent)
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
