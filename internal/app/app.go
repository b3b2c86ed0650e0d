// Package app initializes and holds the long-lived services of the recapd
// process, acting as the composition root for the CLI commands.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/openrecap/recapd/internal/api"
	"github.com/openrecap/recapd/internal/archive"
	"github.com/openrecap/recapd/internal/config"
	"github.com/openrecap/recapd/internal/fetch"
	"github.com/openrecap/recapd/internal/logging"
	"github.com/openrecap/recapd/internal/metrics"
	"github.com/openrecap/recapd/internal/notifier"
	"github.com/openrecap/recapd/internal/progress"
	progresssinks "github.com/openrecap/recapd/internal/progress/sinks"
	"github.com/openrecap/recapd/internal/store"
	storememory "github.com/openrecap/recapd/internal/store/memory"
	storesqlite "github.com/openrecap/recapd/internal/store/sqlite"
)

// App holds the shared services for the recapd process. It is built once at
// startup and closed once on shutdown.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	tabs     store.TabStore
	archive  *archive.Client
	notifier *notifier.Log
	fetcher  *fetch.Fetcher
	hub      *progress.Hub
	server   *api.Server

	closers []func() error
}

// New composes the application from configuration. It fails fast: any
// service that cannot initialize aborts startup.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()

	a := &App{cfg: cfg, logger: logger}
	a.closers = append(a.closers, logger.Sync)

	switch cfg.Store.Backend {
	case "sqlite":
		db, err := storesqlite.Open(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.tabs = db
		a.closers = append(a.closers, db.Close)
		logger.Info("using sqlite tab store", zap.String("path", cfg.Store.Path))
	default:
		a.tabs = storememory.New(cfg.Store.TTL())
		logger.Info("using in-memory tab store")
	}

	a.archive = archive.New(archive.Config{
		BaseURL:      cfg.Archive.BaseURL,
		DownloadHost: cfg.Archive.DownloadHost,
		StorageHost:  cfg.Archive.StorageHost,
		Token:        cfg.Archive.Token,
		Timeout:      cfg.Archive.Timeout(),
	}, logging.Component(logger, "archive"))

	a.notifier = notifier.NewLog(logging.Component(logger, "notifier"))
	a.fetcher = fetch.New(fetch.Config{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.Fetch.Timeout(),
	})

	promSink, err := progresssinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("register progress metrics: %w", err)
	}
	a.hub = progress.NewHub(
		progress.Config{Logger: logging.Component(logger, "progress")},
		progresssinks.NewLogSink(logging.Component(logger, "events")),
		promSink,
	)
	a.closers = append(a.closers, func() error {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.hub.Close(closeCtx)
	})

	a.server = api.NewServer(cfg, api.Deps{
		Archive:  a.archive,
		Tabs:     a.tabs,
		Notifier: a.notifier,
		Fetcher:  a.fetcher,
		Events:   a.hub,
		Logger:   logging.Component(logger, "api"),
	})
	return a, nil
}

// Logger returns the process logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Tabs returns the tab store.
func (a *App) Tabs() store.TabStore { return a.tabs }

// Archive returns the archive client.
func (a *App) Archive() *archive.Client { return a.archive }

// Fetcher returns the page fetcher.
func (a *App) Fetcher() *fetch.Fetcher { return a.fetcher }

// Handler returns the HTTP API handler.
func (a *App) Handler() http.Handler { return a.server.Handler() }

// Close shuts services down in reverse initialization order. Errors are
// logged, not returned; shutdown keeps going.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
}
