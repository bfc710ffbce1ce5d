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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/codex/internal/api"
	"github.com/starford/codex/internal/apperr"
	"github.com/starford/codex/internal/attachments"
	"github.com/starford/codex/internal/generation"
	"github.com/starford/codex/internal/manuscript"
	"github.com/starford/codex/internal/manuscriptservice"
	"github.com/starford/codex/internal/mcpserver"
	"github.com/starford/codex/internal/preferences"
	"github.com/starford/codex/internal/share"
	"github.com/starford/codex/internal/sse"
	"github.com/starford/codex/internal/storage"
)

const viewsThrottle = 2 * time.Second

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// runtime is the opened persistence plus the service built on it.
type runtime struct {
	provider storage.Provider
	svc      *manuscriptservice.Service
	dir      *attachments.Dir
}

func (rt *runtime) Close() {
	rt.svc.Close()
	if err := rt.provider.Close(); err != nil {
		slog.Warn("storage close failed", slog.String("error", err.Error()))
	}
}

func (a *application) open(ctx context.Context, logger *slog.Logger, svcOpts ...manuscriptservice.Option) (*runtime, error) {
	cfg := a.config

	provider, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	store := manuscript.Open(provider,
		manuscript.WithLogger(logger),
		manuscript.WithTimestampLayout(cfg.Composer.TimestampLayout),
	)
	themes := preferences.LoadThemes(provider, logger)

	gen, err := generation.New(ctx, cfg.Generation.toGeneration(), logger)
	if err != nil {
		provider.Close()
		return nil, fmt.Errorf("init generation: %w", err)
	}

	svcOpts = append([]manuscriptservice.Option{manuscriptservice.WithLogger(logger)}, svcOpts...)
	svc := manuscriptservice.New(store, gen, themes, cfg.serviceConfig(), svcOpts...)

	return &runtime{
		provider: provider,
		svc:      svc,
		dir:      attachments.NewDir(cfg.Attachments.Path),
	}, nil
}

func writeHealth(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stdout, cfg.App.LogLevel)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("attachments_path", cfg.Attachments.Path),
		slog.Bool("generation_enabled", cfg.Generation.APIKey != ""),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(viewsThrottle)
	defer broker.Close()

	rt, err := app.open(ctx, logger, manuscriptservice.WithEventSink(broker))
	if err != nil {
		return err
	}
	defer rt.Close()

	apiRouter := api.NewRouter(rt.svc, api.RouterConfig{
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		Events:      broker,
		Attachments: rt.dir,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, `{"status":"ok"}`)
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := rt.provider.Get(manuscript.ManuscriptsKey); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			writeHealth(w, http.StatusServiceUnavailable, `{"status":"storage unavailable"}`)
			return
		}
		writeHealth(w, http.StatusOK, `{"status":"ok"}`)
	})

	r.Mount("/api", apiRouter)

	// Images are embedded by <img> tags, which cannot carry a bearer token.
	r.Get(attachments.URLPrefix+"{filename}", api.NewAttachmentHandler(rt.dir).ServeFile)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if fs, ok := rt.provider.(*storage.FS); ok && cfg.Storage.WatchEnabled() {
		g.Go(func() error {
			err := fs.Watch(gCtx, logger, func(key string) {
				if key == manuscript.ManuscriptsKey && rt.svc.Reload() {
					logger.Info("archive reloaded from disk")
				}
			})
			if err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
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

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, app.config.App.LogLevel)

	rt, err := app.open(ctx, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(rt.svc, rt.dir, app.version).ServeStdio()
}

// Reset replaces the archive with the seed manuscripts. confirm must be set.
func Reset(ctx context.Context, confirm bool, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, app.config.App.LogLevel)

	rt, err := app.open(ctx, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	ms, err := rt.svc.Reset(confirm)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	_, err = fmt.Fprintf(app.out, "archive reset: %d manuscripts\n", len(ms))
	return err
}

// Export writes a manuscript prepared for target. The pdf target writes the
// print document, every other target the share text followed by its link.
func Export(ctx context.Context, id, target string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, app.config.App.LogLevel)

	rt, err := app.open(ctx, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	p, err := rt.svc.Share(id, target)
	if err != nil {
		return fmt.Errorf("export %s: %w", id, err)
	}
	return writeExport(app.out, p)
}

func writeExport(w io.Writer, p share.Payload) error {
	if p.Document != "" {
		_, err := io.WriteString(w, p.Document)
		return err
	}
	if _, err := fmt.Fprintln(w, p.Text); err != nil {
		return err
	}
	if p.URL != "" {
		if _, err := fmt.Fprintf(w, "\n%s\n", p.URL); err != nil {
			return err
		}
	}
	if p.Notice != "" {
		_, err := fmt.Fprintln(w, p.Notice)
		return err
	}
	return nil
}
