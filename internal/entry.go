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

	"github.com/starford/rolodex/internal/api"
	"github.com/starford/rolodex/internal/contactbook"
	"github.com/starford/rolodex/internal/contactservice"
	"github.com/starford/rolodex/internal/mcpserver"
	"github.com/starford/rolodex/internal/sqlitestore"
	"github.com/starford/rolodex/internal/sse"
	"github.com/starford/rolodex/internal/storage"
)

// runtime is what both entry points share: the service and its backing store.
type runtime struct {
	logger *slog.Logger
	svc    *contactservice.Service
	close  func()
}

func (a *application) init(opts []Option) error {
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return fmt.Errorf("config is required")
	}
	if a.logOutput == nil {
		a.logOutput = os.Stdout
	}
	if a.version == "" {
		a.version = "dev"
	}
	return nil
}

func (a *application) newLogger(w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openRuntime builds the provider selected by the storage backend, loads the
// contact book and wraps it in the service. A data file that exists but
// cannot be loaded aborts startup so that the next flush cannot overwrite it.
func (a *application) openRuntime() (*runtime, error) {
	cfg := a.config
	logger := a.newLogger(a.logOutput)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	var (
		provider storage.Provider
		closeFn  = func() {}
	)
	switch cfg.Storage.Backend {
	case BackendSQLite:
		db, err := sqlitestore.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		provider = db
		closeFn = func() { db.Close() }
	default:
		file, err := storage.NewFile(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("init data file: %w", err)
		}
		provider = file
	}

	book, err := contactbook.Open(provider)
	if err != nil {
		closeFn()
		return nil, fmt.Errorf("load contact book: %w", err)
	}
	stats := book.Stats()
	logger.Info("Contact book loaded",
		slog.Int("contacts", stats.Contacts),
		slog.Int("past_meetings", stats.PastMeetings),
		slog.Int("future_meetings", stats.FutureMeetings))

	return &runtime{
		logger: logger,
		svc:    contactservice.New(book, provider, logger),
		close:  closeFn,
	}, nil
}

// watch reloads the service after external edits of the data file. It only
// runs for the file backend with watching enabled.
func (a *application) watch(ctx context.Context, rt *runtime) error {
	if a.config.Storage.Backend != BackendFile || !a.config.Storage.Watch {
		return nil
	}
	return storage.Watch(ctx, a.config.Storage.Path, rt.logger, func() {
		if err := rt.svc.HandleFileChange(ctx); err != nil {
			rt.logger.Warn("reload after external change failed", slog.String("error", err.Error()))
		}
	})
}

// flushOnExit persists pending changes before the process ends.
func (rt *runtime) flushOnExit() {
	if !rt.svc.Dirty() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rt.svc.Flush(ctx); err != nil {
		rt.logger.Error("Final flush failed", slog.String("error", err.Error()))
	}
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	if err := app.init(opts); err != nil {
		return err
	}
	cfg := app.config

	rt, err := app.openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()
	defer rt.flushOnExit()
	logger := rt.logger

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()
	rt.svc.SetPublisher(broker)

	// Build API router.
	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload on external edits of the data file.
	g.Go(func() error {
		if err := app.watch(gCtx, rt); err != nil {
			logger.Warn("file watcher unavailable", slog.String("error", err.Error()))
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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the contact book as MCP tools over stdio until the client
// disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{logOutput: os.Stderr}
	if err := app.init(opts); err != nil {
		return err
	}

	rt, err := app.openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()
	defer rt.flushOnExit()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := app.watch(watchCtx, rt); err != nil {
			rt.logger.Warn("file watcher unavailable", slog.String("error", err.Error()))
		}
	}()

	rt.logger.Info("MCP server starting on stdio")
	if err := mcpserver.New(rt.svc, app.version).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
