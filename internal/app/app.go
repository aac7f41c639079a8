package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bobmcallan/marketfeed/internal/common"
	"github.com/bobmcallan/marketfeed/internal/config"
	"github.com/bobmcallan/marketfeed/internal/feed"
	"github.com/bobmcallan/marketfeed/internal/interfaces"
	"github.com/bobmcallan/marketfeed/internal/mirror"
	"github.com/bobmcallan/marketfeed/internal/publish"
	"github.com/bobmcallan/marketfeed/internal/storage"
)

// App holds all application components and dependencies.
type App struct {
	Config  *config.Config
	Logger  *common.Logger
	Storage interfaces.StorageManager
	Service *feed.Service
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.Storage = storageManager

	opts := []mirror.Option{
		mirror.WithLogger(logger),
		mirror.WithHTTPClient(&http.Client{Timeout: cfg.HTTP.GetTimeout()}),
		mirror.WithRetry(cfg.HTTP.MaxRetries, cfg.HTTP.GetBackoffInitial(), cfg.HTTP.GetBackoffMax()),
	}
	if cfg.HTTP.ProbeRate > 0 {
		opts = append(opts, mirror.WithRateLimit(cfg.HTTP.ProbeRate))
	}
	resolver := mirror.NewResolver(cfg.MirrorSet(), opts...)

	publisher := publish.NewPublisher(logger, cfg.Site.DocsDir, config.GetVersion())
	a.Service = feed.NewService(logger, cfg, resolver, publisher, storageManager.KeyValueStorage())

	logger.Info().Msg("application initialization complete")

	return a, nil
}

// Run executes one feed run.
func (a *App) Run(ctx context.Context) error {
	return a.Service.Run(ctx)
}

// Close releases application resources.
func (a *App) Close() error {
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
