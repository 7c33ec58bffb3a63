package sheets

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/bobmcallan/copilot-portal/internal/interfaces"
	"github.com/bobmcallan/copilot-portal/internal/models"
)

// cellString coerces a sheet cell to a string.
func cellString(row []interface{}, idx int) string {
	if idx >= len(row) || row[idx] == nil {
		return ""
	}
	switch v := row[idx].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// cellFloat coerces a sheet cell to a float64, 0 when absent or unparseable.
func cellFloat(row []interface{}, idx int) float64 {
	if idx >= len(row) || row[idx] == nil {
		return 0
	}
	switch v := row[idx].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// parsePortfolioRows converts raw Portfolio rows into items. Blank or
// malformed cells default: symbol to empty string, addedAt to the
// current time, addedDate to the current ISO date.
func parsePortfolioRows(rows [][]interface{}) []models.PortfolioItem {
	items := make([]models.PortfolioItem, 0, len(rows))
	for _, row := range rows {
		addedAt := cellFloat(row, 1)
		if addedAt == 0 {
			addedAt = float64(time.Now().UnixMilli())
		}
		addedDate := cellString(row, 2)
		if addedDate == "" {
			addedDate = time.Now().UTC().Format(time.RFC3339)
		}
		items = append(items, models.PortfolioItem{
			Symbol:    cellString(row, 0),
			AddedAt:   addedAt,
			AddedDate: addedDate,
		})
	}
	return items
}

// portfolioValues serializes items into Portfolio tab rows.
func portfolioValues(portfolio []models.PortfolioItem) [][]interface{} {
	values := make([][]interface{}, 0, len(portfolio))
	for _, item := range portfolio {
		values = append(values, []interface{}{item.Symbol, item.AddedAt, item.AddedDate})
	}
	return values
}

// analysisValues serializes one history record into an Analysis
// History row: Symbol, Rating, Fundamental (JSON), Technical (JSON),
// Timestamp, Strategy.
func analysisValues(record interfaces.AnalysisRecord) ([]interface{}, error) {
	fundamental, err := json.Marshal(record.Analysis.Fundamental)
	if err != nil {
		return nil, err
	}
	technical, err := json.Marshal(record.Analysis.Technical)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		record.Symbol,
		record.Analysis.Rating,
		string(fundamental),
		string(technical),
		record.Analysis.Timestamp,
		record.Strategy,
	}, nil
}

// foldAnalysisRows reduces history rows to the latest analysis per
// symbol (later rows overwrite earlier ones — the log is append-only,
// so read order is append order). Legacy payload shapes decode to an
// empty-but-complete structure.
func foldAnalysisRows(rows [][]interface{}) map[string]models.StockAnalysis {
	latest := make(map[string]models.StockAnalysis)
	for _, row := range rows {
		symbol := cellString(row, 0)
		if symbol == "" {
			continue
		}
		latest[symbol] = models.StockAnalysis{
			Rating:      int(cellFloat(row, 1)),
			Fundamental: models.DecodeAnalysisPayload(cellString(row, 2)),
			Technical:   models.DecodeAnalysisPayload(cellString(row, 3)),
			Timestamp:   cellString(row, 4),
		}
	}
	return latest
}

// parseSettingsRows converts key-value rows into settings, defaulting
// missing keys.
func parseSettingsRows(rows [][]interface{}) models.SheetSettings {
	kv := make(map[string]string)
	for _, row := range rows {
		key := cellString(row, 0)
		if key == "" {
			continue
		}
		kv[key] = cellString(row, 1)
	}

	settings := models.DefaultSheetSettings()
	if v, ok := kv["investmentStrategy"]; ok {
		settings.InvestmentStrategy = v
	}
	if v, ok := kv["market"]; ok && v != "" {
		settings.Market = models.ParseMarket(v)
	}
	return settings
}

// settingsValues serializes settings into Settings tab rows.
func settingsValues(settings models.SheetSettings) [][]interface{} {
	return [][]interface{}{
		{"investmentStrategy", settings.InvestmentStrategy},
		{"market", string(settings.Market)},
	}
}
