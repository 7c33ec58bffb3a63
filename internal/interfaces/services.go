package interfaces

import (
	"context"

	"github.com/bobmcallan/copilot-portal/internal/models"
)

// RecordStore maps the three logical record sets (portfolio, analysis
// history, settings) onto a tabular remote store. Any call may fail
// with ErrNotAuthenticated from the sheets package or a transient
// remote error; the adapter never retries — callers decide whether to
// swallow or log.
type RecordStore interface {
	// GetOrCreateSpreadsheet discovers the backing resource by its fixed
	// name, creating it (with all tabs and header rows) when absent.
	// Safe to call repeatedly.
	GetOrCreateSpreadsheet(ctx context.Context, token string) (string, error)

	ReadPortfolio(ctx context.Context, token, spreadsheetID string) ([]models.PortfolioItem, error)
	SyncPortfolio(ctx context.Context, token, spreadsheetID string, portfolio []models.PortfolioItem) error

	AppendAnalysis(ctx context.Context, token, spreadsheetID string, record AnalysisRecord) error
	// ReadAnalysis folds the append-only history down to one record per
	// symbol, last row wins.
	ReadAnalysis(ctx context.Context, token, spreadsheetID string) (map[string]models.StockAnalysis, error)

	ReadSettings(ctx context.Context, token, spreadsheetID string) (models.SheetSettings, error)
	WriteSettings(ctx context.Context, token, spreadsheetID string, settings models.SheetSettings) error
}

// AnalysisRecord is one row appended to the analysis history log.
type AnalysisRecord struct {
	Symbol   string
	Analysis models.StockAnalysis
	Strategy string // investmentStrategy value at append time
}

// StockQuote is a point-in-time quote from the data provider.
type StockQuote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Currency      string  `json:"currency"`
	MarketTime    string  `json:"marketTime"`
}

// StockSearchResult is one match from the data provider's search.
type StockSearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Type     string `json:"type"`
}

// PricePoint is one day of price history, ascending by date, null
// closes already filtered out.
type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// DataProvider fetches quotes, history, and search results from the
// third-party finance source.
type DataProvider interface {
	Search(ctx context.Context, query string, market models.Market) ([]StockSearchResult, error)
	GetQuote(ctx context.Context, symbol string) (*StockQuote, error)
	GetHistory(ctx context.Context, symbol, rng string) ([]PricePoint, error)
}

// InsightGenerator produces an AI outlook from price history and the
// user's strategy text. The returned analysis is structurally complete:
// all horizons present, good/bad lists non-nil.
type InsightGenerator interface {
	Generate(ctx context.Context, history []PricePoint, strategy string) (*models.StockAnalysis, error)
}
