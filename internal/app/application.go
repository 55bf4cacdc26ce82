// Package app wires configuration, adapters and use cases together.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"meetingindex.app/internal/adapters/api"
	"meetingindex.app/internal/adapters/database"
	"meetingindex.app/internal/adapters/external"
	"meetingindex.app/internal/adapters/infrastructure"
	"meetingindex.app/internal/config"
	"meetingindex.app/internal/core/search"
	syncusecase "meetingindex.app/internal/core/sync"
	"meetingindex.app/internal/ports"
)

type Application struct {
	config *config.Config

	syncUseCase   *syncusecase.UseCase
	searchUseCase *search.UseCase

	positionCache ports.PositionCache
	ports         *ports.ApplicationPorts
}

func NewApplication() (*Application, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	app := &Application{config: cfg}

	if err := app.initializePorts(); err != nil {
		return nil, fmt.Errorf("initialize ports: %w", err)
	}

	if err := app.initializeUseCases(); err != nil {
		return nil, fmt.Errorf("initialize use cases: %w", err)
	}

	return app, nil
}

// Config returns the loaded configuration
func (a *Application) Config() *config.Config {
	return a.config
}

func (a *Application) initializePorts() error {
	logger := &infrastructure.SlogLoggerAdapter{}
	metrics := infrastructure.NewPrometheusMetricsAdapter()

	logger.Info("Initializing application ports")

	if err := os.MkdirAll(a.config.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	index, err := database.NewMeetingIndexAdapter(a.config.Data.MeetingsDBPath(), logger)
	if err != nil {
		return fmt.Errorf("open meeting index: %w", err)
	}

	positionCache, err := external.NewPositionCache(a.config)
	if err != nil {
		return fmt.Errorf("open position cache: %w", err)
	}
	a.positionCache = positionCache

	geocoder := external.NewGeocoderAdapter(external.GeocoderParams{
		BaseURL:   a.config.Geocoder.BaseURL,
		Cache:     positionCache,
		RateLimit: time.Duration(a.config.Geocoder.RateLimitSeconds) * time.Second,
		Logger:    logger,
		Metrics:   metrics,
	})

	sources, err := a.buildSources(logger, metrics)
	if err != nil {
		return fmt.Errorf("build meeting sources: %w", err)
	}

	a.ports = &ports.ApplicationPorts{
		Fetcher:  external.NewMeetingFetcherAdapter(sources, logger),
		Geocoder: geocoder,
		Index:    index,
		Logger:   logger,
		Metrics:  metrics,
	}

	logger.Info("Application ports initialized successfully")
	return nil
}

func (a *Application) buildSources(logger ports.Logger, metrics ports.MetricsRecorder) ([]ports.MeetingSource, error) {
	sites, err := a.config.Sources.TSMLSitePairs()
	if err != nil {
		return nil, err
	}

	return []ports.MeetingSource{
		external.NewTSMLSourceAdapter(external.TSMLSourceParams{
			Sites:   sites,
			Logger:  logger,
			Metrics: metrics,
		}),
		external.NewNAHollandSourceAdapter(external.NAHollandSourceParams{
			APIURL:  a.config.Sources.NAHollandURL,
			Logger:  logger,
			Metrics: metrics,
		}),
		external.NewBMLTSourceAdapter(external.BMLTSourceParams{
			RootServersURL: a.config.Sources.BMLTRootServersURL,
			Logger:         logger,
			Metrics:        metrics,
		}),
	}, nil
}

func (a *Application) initializeUseCases() error {
	syncUseCase, err := syncusecase.NewUseCase(syncusecase.UseCaseDependencies{
		Fetcher:       a.ports.Fetcher,
		Geocoder:      a.ports.Geocoder,
		Index:         a.ports.Index,
		Logger:        a.ports.Logger,
		Metrics:       a.ports.Metrics,
		QueueCapacity: a.config.Sources.QueueCapacity,
	})
	if err != nil {
		return fmt.Errorf("create sync use case: %w", err)
	}
	a.syncUseCase = syncUseCase

	searchUseCase, err := search.NewUseCase(search.UseCaseDependencies{
		Index:  a.ports.Index,
		Logger: a.ports.Logger,
	})
	if err != nil {
		return fmt.Errorf("create search use case: %w", err)
	}
	a.searchUseCase = searchUseCase

	return nil
}

// Sync runs one full import and returns its summary
func (a *Application) Sync(ctx context.Context) (*syncusecase.Summary, error) {
	return a.syncUseCase.Run(ctx)
}

// StartServer serves the query API until ctx is cancelled
func (a *Application) StartServer(ctx context.Context) error {
	server, err := api.NewHTTPServerAdapter(api.ServerOptions{
		Config: api.ServerConfig{
			Address: a.config.Server.Address,
			Port:    a.config.Server.Port,
		},
		SearchUseCase: a.searchUseCase,
		Logger:        a.ports.Logger,
	})
	if err != nil {
		return fmt.Errorf("create HTTP server: %w", err)
	}

	return server.Start(ctx)
}

// Shutdown releases the application's storage handles
func (a *Application) Shutdown() error {
	var firstErr error

	if a.ports != nil && a.ports.Index != nil {
		if err := a.ports.Index.Close(); err != nil {
			firstErr = err
		}
	}
	if a.positionCache != nil {
		if err := a.positionCache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
