// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/starford/algiz/internal/archive"
	"github.com/starford/algiz/internal/mcpserver"
)

// NewLogger builds the structured JSON logger used by every command.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// OpenArchive opens the archive described by cfg.
func OpenArchive(cfg *Config, logger *slog.Logger, watch bool) (*archive.Archive, error) {
	a, err := archive.Open(archive.Options{
		Root:        cfg.Archive.Path,
		CatalogPath: cfg.CatalogPath(),
		Watch:       watch,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return a, nil
}

// Run serves the archive over MCP on stdio until the client disconnects or
// ctx is cancelled.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := NewLogger(app.logOut, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("archive_path", cfg.Archive.Path),
		slog.String("catalog_path", cfg.CatalogPath()),
		slog.Bool("views_watch", cfg.Views.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	a, err := OpenArchive(cfg, logger, cfg.Views.Watch)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := mcpserver.New(a, app.version)

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gCtx)
	defer stopWatch()

	// Keep view listings fresh while tools are served.
	g.Go(func() error {
		if err := a.Watch(watchCtx); err != nil {
			logger.Warn("view watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// ServeStdio handles SIGINT/SIGTERM itself and returns when stdin closes.
	g.Go(func() error {
		defer stopWatch()
		logger.Info("Starting MCP server on stdio", slog.String("version", app.version))
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
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
