// Package sheets maps the portfolio, analysis-history, and settings
// record sets onto a Google Sheets spreadsheet discovered (or created)
// by a fixed title in the user's Drive.
package sheets

import (
	"context"
	"errors"
	"fmt"

	common "github.com/bobmcallan/copilot-portal/internal/common"
	"github.com/bobmcallan/copilot-portal/internal/interfaces"
	"github.com/bobmcallan/copilot-portal/internal/models"
	"golang.org/x/oauth2"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// ErrNotAuthenticated signals an absent or expired bearer token (401
// class from the remote store). Callers treat it as "not signed in",
// never as a hard error.
var ErrNotAuthenticated = errors.New("sheets: not authenticated")

// Tab names and ranges. Headers are written once at creation; data
// ranges start at row 2 so the header row is never touched.
const (
	portfolioTab = "Portfolio"
	analysisTab  = "Analysis History"
	settingsTab  = "Settings"

	portfolioDataRange  = portfolioTab + "!A2:C1000"
	analysisDataRange   = "'" + analysisTab + "'!A2:F1000"
	analysisAppendRange = "'" + analysisTab + "'!A:F"
	settingsDataRange   = settingsTab + "!A2:B100"
)

var (
	portfolioHeader = []interface{}{"Symbol", "Added At", "Added Date"}
	analysisHeader  = []interface{}{"Symbol", "Rating", "Fundamental (JSON)", "Technical (JSON)", "Timestamp", "Strategy"}
	settingsHeader  = []interface{}{"Key", "Value"}
)

// Service implements interfaces.RecordStore against the Sheets and
// Drive v3 APIs. It holds no per-user state; the bearer token is passed
// per call.
type Service struct {
	title  string
	logger *common.Logger
	opts   []option.ClientOption
}

// NewService creates a sheets service for the given spreadsheet title.
// Extra client options (custom endpoint, HTTP client) are for tests.
func NewService(title string, logger *common.Logger, opts ...option.ClientOption) *Service {
	return &Service{
		title:  title,
		logger: logger,
		opts:   opts,
	}
}

func (s *Service) clientOptions(token string) []option.ClientOption {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	opts := []option.ClientOption{option.WithTokenSource(ts)}
	return append(opts, s.opts...)
}

// wrapErr maps 401 responses to ErrNotAuthenticated and wraps the rest.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == 401 {
		return fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// GetOrCreateSpreadsheet searches Drive for the spreadsheet by its
// fixed title and returns its ID, creating it with all three tabs and
// header rows when absent. Existing spreadsheets from before the
// Settings tab existed are migrated in place. Idempotent.
func (s *Service) GetOrCreateSpreadsheet(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNotAuthenticated
	}

	driveSvc, err := drive.NewService(ctx, s.clientOptions(token)...)
	if err != nil {
		return "", wrapErr("drive client", err)
	}

	query := fmt.Sprintf("name='%s' and mimeType='application/vnd.google-apps.spreadsheet' and trashed=false", s.title)
	list, err := driveSvc.Files.List().Q(query).Fields("files(id, name)").Spaces("drive").Context(ctx).Do()
	if err != nil {
		return "", wrapErr("drive search", err)
	}

	sheetsSvc, err := sheetsapi.NewService(ctx, s.clientOptions(token)...)
	if err != nil {
		return "", wrapErr("sheets client", err)
	}

	if len(list.Files) > 0 {
		id := list.Files[0].Id
		s.logger.Debug().Str("spreadsheet_id", id).Msg("found existing spreadsheet")

		// Migration for spreadsheets created before the Settings tab.
		// Failure here is logged, not fatal: the spreadsheet is usable.
		if err := s.ensureSettingsTab(ctx, sheetsSvc, id); err != nil {
			s.logger.Warn().Err(err).Msg("settings tab migration failed")
		}
		return id, nil
	}

	s.logger.Info().Str("title", s.title).Msg("creating new spreadsheet")

	created, err := sheetsSvc.Spreadsheets.Create(&sheetsapi.Spreadsheet{
		Properties: &sheetsapi.SpreadsheetProperties{Title: s.title},
		Sheets: []*sheetsapi.Sheet{
			{Properties: &sheetsapi.SheetProperties{Title: portfolioTab, Index: 0}},
			{Properties: &sheetsapi.SheetProperties{Title: analysisTab, Index: 1}},
			{Properties: &sheetsapi.SheetProperties{Title: settingsTab, Index: 2}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", wrapErr("spreadsheet create", err)
	}

	id := created.SpreadsheetId
	headers := []struct {
		rng    string
		values []interface{}
	}{
		{portfolioTab + "!A1:C1", portfolioHeader},
		{"'" + analysisTab + "'!A1:F1", analysisHeader},
		{settingsTab + "!A1:B1", settingsHeader},
	}
	for _, h := range headers {
		if err := s.updateValues(ctx, sheetsSvc, id, h.rng, [][]interface{}{h.values}); err != nil {
			return "", wrapErr("write header", err)
		}
	}

	return id, nil
}

// ensureSettingsTab adds the Settings tab and its header to
// spreadsheets created before settings were synced.
func (s *Service) ensureSettingsTab(ctx context.Context, svc *sheetsapi.Service, spreadsheetID string) error {
	meta, err := svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return err
	}

	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == settingsTab {
			return nil
		}
	}

	_, err = svc.Spreadsheets.BatchUpdate(spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: settingsTab},
			}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return err
	}

	return s.updateValues(ctx, svc, spreadsheetID, settingsTab+"!A1:B1", [][]interface{}{settingsHeader})
}

// ReadPortfolio reads all data rows from the Portfolio tab. Malformed
// rows are coerced to usable defaults, never rejected.
func (s *Service) ReadPortfolio(ctx context.Context, token, spreadsheetID string) ([]models.PortfolioItem, error) {
	svc, err := sheetsapi.NewService(ctx, s.clientOptions(token)...)
	if err != nil {
		return nil, wrapErr("sheets client", err)
	}

	resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, portfolioDataRange).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("read portfolio", err)
	}

	return parsePortfolioRows(resp.Values), nil
}

// SyncPortfolio clears all data rows (header preserved) and writes the
// full given list in order. An empty list leaves a cleared tab.
func (s *Service) SyncPortfolio(ctx context.Context, token, spreadsheetID string, portfolio []models.PortfolioItem) error {
	svc, err := sheetsapi.NewService(ctx, s.clientOptions(token)...)
	if err != nil {
		return wrapErr("sheets client", err)
	}

	_, err = svc.Spreadsheets.Values.Clear(spreadsheetID, portfolioDataRange, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return wrapErr("clear portfolio", err)
	}

	if len(portfolio) == 0 {
		return nil
	}

	rng := fmt.Sprintf("%s!A2:C%d", portfolioTab, len(portfolio)+1)
	if err := s.updateValues(ctx, svc, spreadsheetID, rng, portfolioValues(portfolio)); err != nil {
		return wrapErr("write portfolio", err)
	}
	return nil
}

// AppendAnalysis appends one row to the append-only analysis history
// log. Fundamental/technical payloads are JSON-encoded text columns.
func (s *Service) AppendAnalysis(ctx context.Context, token, spreadsheetID string, record interfaces.AnalysisRecord) error {
	svc, err := sheetsapi.NewService(ctx, s.clientOptions(token)...)
	if err != nil {
		return wrapErr("sheets client", err)
	}

	row, err := analysisValues(record)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	_, err = svc.Spreadsheets.Values.Append(spreadsheetID, analysisAppendRange, &sheetsapi.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return wrapErr("append analysis", err)
	}
	return nil
}

// ReadAnalysis reads all history rows and folds them to one record per
// symbol, last row wins. Both the current JSON payload shape and the
// legacy sentence shape are tolerated.
func (s *Service) ReadAnalysis(ctx context.Context, token, spreadsheetID string) (map[string]models.StockAnalysis, error) {
	svc, err := sheetsapi.NewService(ctx, s.clientOptions(token)...)
	if err != nil {
		return nil, wrapErr("sheets client", err)
	}

	resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, analysisDataRange).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("read analysis", err)
	}

	return foldAnalysisRows(resp.Values), nil
}

// ReadSettings reads the key-value Settings tab. Read failures produce
// the default settings rather than an error.
func (s *Service) ReadSettings(ctx context.Context, token, spreadsheetID string) (models.SheetSettings, error) {
	svc, err := sheetsapi.NewService(ctx, s.clientOptions(token)...)
	if err != nil {
		return models.DefaultSheetSettings(), nil
	}

	resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, settingsDataRange).Context(ctx).Do()
	if err != nil {
		s.logger.Warn().Err(err).Msg("settings read failed, using defaults")
		return models.DefaultSheetSettings(), nil
	}

	return parseSettingsRows(resp.Values), nil
}

// WriteSettings overwrites the Settings tab with the current values.
func (s *Service) WriteSettings(ctx context.Context, token, spreadsheetID string, settings models.SheetSettings) error {
	svc, err := sheetsapi.NewService(ctx, s.clientOptions(token)...)
	if err != nil {
		return wrapErr("sheets client", err)
	}

	_, err = svc.Spreadsheets.Values.Clear(spreadsheetID, settingsDataRange, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return wrapErr("clear settings", err)
	}

	if err := s.updateValues(ctx, svc, spreadsheetID, settingsTab+"!A2:B3", settingsValues(settings)); err != nil {
		return wrapErr("write settings", err)
	}
	return nil
}

func (s *Service) updateValues(ctx context.Context, svc *sheetsapi.Service, spreadsheetID, rng string, values [][]interface{}) error {
	_, err := svc.Spreadsheets.Values.Update(spreadsheetID, rng, &sheetsapi.ValueRange{
		Values: values,
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}
