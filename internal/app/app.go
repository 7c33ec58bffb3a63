// Package app wires configuration, storage, clients, and handlers into
// a runnable application.
package app

import (
	"context"

	"github.com/bobmcallan/copilot-portal/internal/common"
	"github.com/bobmcallan/copilot-portal/internal/config"
	"github.com/bobmcallan/copilot-portal/internal/finance"
	"github.com/bobmcallan/copilot-portal/internal/handlers"
	"github.com/bobmcallan/copilot-portal/internal/insight"
	"github.com/bobmcallan/copilot-portal/internal/interfaces"
	"github.com/bobmcallan/copilot-portal/internal/sheets"
	"github.com/bobmcallan/copilot-portal/internal/storage"
	"github.com/bobmcallan/copilot-portal/internal/store"
)

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Storage interfaces.StorageManager
	Sheets  *sheets.Service
	Store   *store.Store

	// HTTP handlers
	HealthHandler     *handlers.HealthHandler
	VersionHandler    *handlers.VersionHandler
	StocksHandler     *handlers.StocksHandler
	SentimentHandler  *handlers.SentimentHandler
	StrategiesHandler *handlers.StrategiesHandler
	PortfolioHandler  *handlers.PortfolioHandler
	SheetsHandler     *handlers.SheetsHandler
	SessionHandler    *handlers.SessionHandler
}

// New initializes the application with all dependencies.
func New(ctx context.Context, cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, err
	}
	a.Storage = storageManager

	a.Sheets = sheets.NewService(cfg.Sheets.SpreadsheetTitle, logger)
	a.Store = store.New(a.Sheets, storageManager.KeyValueStorage(), logger)

	provider := finance.NewYahooProvider(cfg.Providers.YahooBaseURL, logger)

	// The AI provider is optional: without an API key the sentiment
	// endpoint reports a configuration error instead of failing startup.
	var generator interfaces.InsightGenerator
	if cfg.Providers.GeminiAPIKey != "" {
		g, err := insight.NewGenerator(ctx, cfg.Providers.GeminiAPIKey, cfg.Providers.GeminiModel, logger)
		if err != nil {
			return nil, err
		}
		generator = g
	} else {
		logger.Warn().Msg("gemini API key not configured, AI sentiment disabled")
	}

	a.HealthHandler = handlers.NewHealthHandler(logger)
	a.VersionHandler = handlers.NewVersionHandler(logger)
	a.StocksHandler = handlers.NewStocksHandler(provider, logger)
	a.SentimentHandler = handlers.NewSentimentHandler(generator, logger)
	a.StrategiesHandler = handlers.NewStrategiesHandler(logger)
	a.PortfolioHandler = handlers.NewPortfolioHandler(a.Store, provider, generator, logger)
	a.SheetsHandler = handlers.NewSheetsHandler(a.Store, logger)
	a.SessionHandler = handlers.NewSessionHandler(a.Store, logger)

	logger.Info().Msg("application initialization complete")

	return a, nil
}

// Close closes all application resources.
func (a *App) Close() error {
	a.Store.WaitForSyncs()
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
