// cmd/dropscrapexter/app.go - wiring of configuration into components
package main

import (
	"context"
	"fmt"

	"github.com/valpere/DropScrapexter/internal/config"
	"github.com/valpere/DropScrapexter/internal/errors"
	"github.com/valpere/DropScrapexter/internal/extract"
	"github.com/valpere/DropScrapexter/internal/fetch"
	"github.com/valpere/DropScrapexter/internal/importer"
	"github.com/valpere/DropScrapexter/internal/monitoring"
	"github.com/valpere/DropScrapexter/internal/server"
	"github.com/valpere/DropScrapexter/internal/storage"
	"github.com/valpere/DropScrapexter/internal/utils"
)

// narrowMinContentLength is the body size the marketplace pipeline requires
const narrowMinContentLength = 1000

// app holds the components built from one configuration
type app struct {
	cfg         *config.Config
	logger      utils.Logger
	metrics     *monitoring.MetricsManager
	client      *fetch.Client
	general     *extract.Pipeline
	marketplace *extract.Pipeline
	store       storage.Store
}

// loadConfig reads .env and the configuration file, or the defaults when
// no file is given.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// storeMode says whether a command needs draft storage
type storeMode int

const (
	storeNone storeMode = iota
	storeOptional
	storeRequired
)

// newApp builds the pipelines and opens storage as mode asks
func newApp(ctx context.Context, opts globalOptions, mode storeMode) (*app, error) {
	cfg, err := loadConfig(opts.configFile)
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := utils.NewLoggerWithConfig(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("invalid log config: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	if cfg.Metrics.Enabled {
		a.metrics = monitoring.NewMetricsManager(cfg.Metrics.MetricsConfig)
	}

	breakers := errors.NewService().WithBreakerConfig(cfg.Fetch.Breaker)
	a.client = fetch.NewClient(cfg.Fetch,
		fetch.WithLogger(logger),
		fetch.WithMetrics(a.metrics),
		fetch.WithErrorService(breakers),
	)
	a.general = extract.NewGeneral(a.client,
		extract.WithLogger(logger),
		extract.WithMetrics(a.metrics),
	)
	a.marketplace = extract.NewMarketplace(a.client.WithMinContentLength(narrowMinContentLength),
		extract.WithLogger(logger),
		extract.WithMetrics(a.metrics),
	)

	if mode == storeRequired && !cfg.Storage.Enabled() {
		return nil, fmt.Errorf("storage is not configured: set storage.driver in the config file")
	}
	if mode != storeNone && cfg.Storage.Enabled() {
		store, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		a.store = storage.Instrument(store, a.metrics)
	}
	return a, nil
}

func (a *app) pipeline(narrow bool) *extract.Pipeline {
	if narrow {
		return a.marketplace
	}
	return a.general
}

func (a *app) importer(narrow bool) *importer.Importer {
	opts := []importer.Option{
		importer.WithLogger(a.logger),
		importer.WithMetrics(a.metrics),
	}
	if a.store != nil {
		opts = append(opts, importer.WithStore(a.store))
	}
	return importer.New(a.pipeline(narrow), a.cfg.Batch, opts...)
}

func (a *app) server() *server.Server {
	health := monitoring.NewHealthManager(version)
	health.RegisterCheck(monitoring.GoroutineHealthCheck(10000, a.metrics))

	opts := []server.Option{
		server.WithLogger(a.logger),
		server.WithMetrics(a.metrics),
		server.WithHealth(health),
		server.WithBatchConfig(a.cfg.Batch),
	}
	if a.store != nil {
		store := a.store
		health.RegisterCheck(monitoring.PingHealthCheck("storage", true, func(ctx context.Context) error {
			_, err := store.List(ctx, storage.ListOptions{Limit: 1})
			return err
		}))
		opts = append(opts, server.WithStore(store))
	}
	return server.New(a.cfg.Server, a.general, a.marketplace, opts...)
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warnf("failed to close storage: %v", err)
		}
	}
}
