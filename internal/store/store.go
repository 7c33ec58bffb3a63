// Package store holds the single authoritative in-memory application
// state (market, portfolio, strategy, sync metadata) and orchestrates
// its synchronization with the remote record store.
//
// Mutations are synchronous and optimistic: local state is updated
// first and a background task performs the remote write. Remote
// failures never roll back a local mutation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	common "github.com/bobmcallan/copilot-portal/internal/common"
	"github.com/bobmcallan/copilot-portal/internal/interfaces"
	"github.com/bobmcallan/copilot-portal/internal/models"
	"github.com/bobmcallan/copilot-portal/internal/sheets"
)

// persistKey is the single local record holding the durable subset of
// the state. sheetsLoaded is deliberately excluded: every session
// starts with a fresh reconciliation against the remote store.
const persistKey = "investment-copilot-storage"

// persistedState is the subset written to local storage.
type persistedState struct {
	Market             models.Market          `json:"market"`
	Portfolio          []models.PortfolioItem `json:"portfolio"`
	InvestmentStrategy string                 `json:"investmentStrategy"`
	SpreadsheetID      string                 `json:"spreadsheetId"`
}

// Snapshot is a copy of the current application state.
type Snapshot struct {
	Market             models.Market          `json:"market"`
	Portfolio          []models.PortfolioItem `json:"portfolio"`
	InvestmentStrategy string                 `json:"investmentStrategy"`
	SpreadsheetID      string                 `json:"spreadsheetId,omitempty"`
	SheetsLoaded       bool                   `json:"sheetsLoaded"`
}

// Store is the local application state store.
type Store struct {
	mu sync.Mutex

	market             models.Market
	portfolio          []models.PortfolioItem
	investmentStrategy string
	spreadsheetID      string // empty until first remote contact
	sheetsLoaded       bool

	token string // current bearer token, empty when signed out

	records interfaces.RecordStore
	kv      interfaces.KeyValueStorage // optional local persistence
	logger  *common.Logger

	syncs sync.WaitGroup
}

// New creates a store with default state and restores the persisted
// subset from local storage when present.
func New(records interfaces.RecordStore, kv interfaces.KeyValueStorage, logger *common.Logger) *Store {
	s := &Store{
		market:  models.DefaultMarket,
		records: records,
		kv:      kv,
		logger:  logger,
	}
	s.restore()
	return s
}

// restore loads the persisted subset. Missing or unreadable records
// leave the defaults in place.
func (s *Store) restore() {
	if s.kv == nil {
		return
	}
	raw, err := s.kv.Get(context.Background(), persistKey)
	if err != nil {
		return
	}
	var p persistedState
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Warn().Err(err).Msg("discarding unreadable persisted state")
		return
	}
	s.market = models.ParseMarket(string(p.Market))
	s.portfolio = p.Portfolio
	s.investmentStrategy = p.InvestmentStrategy
	s.spreadsheetID = p.SpreadsheetID
}

// persist writes the durable subset to local storage. Must be called
// with the mutex held. Failures are logged, never surfaced.
func (s *Store) persist() {
	if s.kv == nil {
		return
	}
	data, err := json.Marshal(persistedState{
		Market:             s.market,
		Portfolio:          s.portfolio,
		InvestmentStrategy: s.investmentStrategy,
		SpreadsheetID:      s.spreadsheetID,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode persisted state")
		return
	}
	if err := s.kv.Set(context.Background(), persistKey, string(data)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist state")
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	portfolio := make([]models.PortfolioItem, len(s.portfolio))
	copy(portfolio, s.portfolio)
	return Snapshot{
		Market:             s.market,
		Portfolio:          portfolio,
		InvestmentStrategy: s.investmentStrategy,
		SpreadsheetID:      s.spreadsheetID,
		SheetsLoaded:       s.sheetsLoaded,
	}
}

// SetAuthToken records the bearer token used for remote-store calls.
// An empty token means signed out; syncs then skip silently.
func (s *Store) SetAuthToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// SetMarket replaces the market selection. No remote sync is triggered:
// settings sync is an explicit, caller-initiated operation.
func (s *Store) SetMarket(market models.Market) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.market = market
	s.persist()
}

// SetInvestmentStrategy replaces the strategy text. Like SetMarket, the
// remote settings sync is a separate explicit call, so the presentation
// layer can offer cancel semantics while editing.
func (s *Store) SetInvestmentStrategy(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.investmentStrategy = text
	s.persist()
}

// AddToPortfolio appends the item unconditionally. Duplicate-symbol
// prevention is the caller's responsibility. A background full
// portfolio sync follows; its failure is logged, never rolled back.
func (s *Store) AddToPortfolio(item models.PortfolioItem) {
	s.mu.Lock()
	s.portfolio = append(s.portfolio, item)
	s.persist()
	s.mu.Unlock()

	s.background(func(ctx context.Context) {
		if err := s.SyncPortfolioToSheets(ctx); err != nil {
			s.logRemoteFailure("portfolio sync", err)
		}
	})
}

// RemoveFromPortfolio removes all items with an exactly matching
// symbol. A miss (or an empty portfolio) is a no-op. Triggers the same
// background sync as AddToPortfolio.
func (s *Store) RemoveFromPortfolio(symbol string) {
	s.mu.Lock()
	kept := s.portfolio[:0]
	for _, item := range s.portfolio {
		if item.Symbol != symbol {
			kept = append(kept, item)
		}
	}
	s.portfolio = kept
	s.persist()
	s.mu.Unlock()

	s.background(func(ctx context.Context) {
		if err := s.SyncPortfolioToSheets(ctx); err != nil {
			s.logRemoteFailure("portfolio sync", err)
		}
	})
}

// SetPortfolioItemAnalysis replaces the analysis on the matching item.
// An unknown symbol is a silent no-op: no error, no new item. A non-nil
// analysis is also appended to the remote history log, tagged with the
// strategy text current at call time.
func (s *Store) SetPortfolioItemAnalysis(symbol string, analysis *models.StockAnalysis) {
	s.mu.Lock()
	item, idx := models.FindBySymbol(s.portfolio, symbol)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	item.LastAnalysis = analysis
	s.persist()
	strategy := s.investmentStrategy
	s.mu.Unlock()

	if analysis == nil {
		return
	}
	record := interfaces.AnalysisRecord{Symbol: symbol, Analysis: *analysis, Strategy: strategy}
	s.background(func(ctx context.Context) {
		if err := s.appendAnalysisRecord(ctx, record); err != nil {
			s.logRemoteFailure("analysis sync", err)
		}
	})
}

// AnalyzePortfolio runs analyze for every portfolio item concurrently
// and applies each result via SetPortfolioItemAnalysis. One item's
// failure is logged and does not abort the others; there is no retry
// and no rollback. Returns when all items have finished.
func (s *Store) AnalyzePortfolio(ctx context.Context, analyze func(ctx context.Context, symbol string) (*models.StockAnalysis, error)) {
	snapshot := s.Snapshot()

	var wg sync.WaitGroup
	for _, item := range snapshot.Portfolio {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			analysis, err := analyze(ctx, symbol)
			if err != nil {
				s.logger.Warn().Err(err).Str("symbol", symbol).Msg("portfolio analysis failed")
				return
			}
			s.SetPortfolioItemAnalysis(symbol, analysis)
		}(item.Symbol)
	}
	wg.Wait()
}

// SetPortfolio replaces the whole portfolio. Used when adopting a
// remote snapshot or a bulk update; the caller decides whether to sync.
func (s *Store) SetPortfolio(portfolio []models.PortfolioItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolio = portfolio
	s.persist()
}

// ClearOnLogout resets all user state and discards the persisted local
// record. Idempotent.
func (s *Store) ClearOnLogout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolio = nil
	s.spreadsheetID = ""
	s.sheetsLoaded = false
	s.investmentStrategy = ""
	s.token = ""
	if s.kv != nil {
		if err := s.kv.Delete(context.Background(), persistKey); err != nil {
			s.logger.Warn().Err(err).Msg("failed to discard persisted state")
		}
	}
}

// LoadFromSheets reads the remote snapshot (portfolio, analysis
// history, settings) and merges it into local state.
//
// Merge rule: if the remote portfolio is empty and the local one is
// not, local wins — remote settings are adopted and the local portfolio
// is pushed up (upload-wins-on-empty-remote). Otherwise the remote
// snapshot overwrites the local portfolio (download-wins). Either way
// sheetsLoaded becomes true and the spreadsheet ID is adopted.
//
// Never returns an error to its caller: a 401 means "not signed in"
// and is skipped silently; other failures are logged and ignored.
// Callers that need to map the failure onto a response use Load.
//
// There is deliberately no mutual exclusion between an in-flight load
// and concurrent local mutations: an item added while the read is in
// flight can be overwritten by the download-wins branch. Introducing a
// version guard here would change user-visible merge behavior.
func (s *Store) LoadFromSheets(ctx context.Context) {
	if err := s.Load(ctx); err != nil {
		s.logRemoteFailure("load", err)
	}
}

// Load performs the remote read-and-merge of LoadFromSheets and reports
// the first failure so the HTTP layer can translate it. A missing token
// skips the load and is not an error.
func (s *Store) Load(ctx context.Context) error {
	token := s.currentToken()
	if token == "" {
		return nil
	}

	spreadsheetID, err := s.records.GetOrCreateSpreadsheet(ctx, token)
	if err != nil {
		return err
	}

	var (
		remote   []models.PortfolioItem
		analysis map[string]models.StockAnalysis
		settings models.SheetSettings
		readErrs [3]error
		wg       sync.WaitGroup
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		remote, readErrs[0] = s.records.ReadPortfolio(ctx, token, spreadsheetID)
	}()
	go func() {
		defer wg.Done()
		analysis, readErrs[1] = s.records.ReadAnalysis(ctx, token, spreadsheetID)
	}()
	go func() {
		defer wg.Done()
		settings, readErrs[2] = s.records.ReadSettings(ctx, token, spreadsheetID)
	}()
	wg.Wait()

	for _, err := range readErrs {
		if err != nil {
			return err
		}
	}

	// Merge analysis records into portfolio items by symbol. Items
	// without a matching record keep no analysis.
	for i := range remote {
		if a, ok := analysis[remote[i].Symbol]; ok {
			copied := a
			remote[i].LastAnalysis = &copied
		}
	}

	s.mu.Lock()
	s.spreadsheetID = spreadsheetID
	s.investmentStrategy = settings.InvestmentStrategy
	s.market = settings.Market
	uploadWins := len(remote) == 0 && len(s.portfolio) > 0
	if !uploadWins {
		s.portfolio = remote
	}
	s.sheetsLoaded = true
	s.persist()
	s.mu.Unlock()

	if uploadWins {
		s.logger.Info().Msg("remote portfolio empty, pushing local portfolio up")
		if err := s.SyncPortfolioToSheets(ctx); err != nil {
			s.logRemoteFailure("portfolio sync", err)
		}
	}
	return nil
}

// SyncPortfolioToSheets writes the full current portfolio to the remote
// store. No retry. A missing token skips the write with a nil return:
// signed-out mutations stay local.
func (s *Store) SyncPortfolioToSheets(ctx context.Context) error {
	token := s.currentToken()
	if token == "" {
		return nil
	}

	spreadsheetID, err := s.ensureSpreadsheet(ctx, token)
	if err != nil {
		return err
	}

	snapshot := s.Snapshot()
	return s.records.SyncPortfolio(ctx, token, spreadsheetID, snapshot.Portfolio)
}

// SyncAnalysisToSheets appends one analysis record to the remote
// history log, tagged with the current strategy. No retry.
func (s *Store) SyncAnalysisToSheets(ctx context.Context, symbol string, analysis models.StockAnalysis) error {
	s.mu.Lock()
	strategy := s.investmentStrategy
	s.mu.Unlock()
	return s.appendAnalysisRecord(ctx, interfaces.AnalysisRecord{
		Symbol:   symbol,
		Analysis: analysis,
		Strategy: strategy,
	})
}

// RecordAnalysis applies the record's analysis to the matching local
// item, when one exists, and appends it to the remote history log.
// Symbols outside the current portfolio are still appended: the history
// log is append-only and not bounded by current holdings. The local
// apply is optimistic and survives a failed append.
func (s *Store) RecordAnalysis(ctx context.Context, record interfaces.AnalysisRecord) error {
	s.mu.Lock()
	if item, idx := models.FindBySymbol(s.portfolio, record.Symbol); idx >= 0 {
		copied := record.Analysis
		item.LastAnalysis = &copied
		s.persist()
	}
	s.mu.Unlock()

	return s.appendAnalysisRecord(ctx, record)
}

func (s *Store) appendAnalysisRecord(ctx context.Context, record interfaces.AnalysisRecord) error {
	token := s.currentToken()
	if token == "" {
		return nil
	}

	spreadsheetID, err := s.ensureSpreadsheet(ctx, token)
	if err != nil {
		return err
	}

	return s.records.AppendAnalysis(ctx, token, spreadsheetID, record)
}

// SyncSettingsToSheets writes the current strategy and market to the
// remote settings tab. No retry.
func (s *Store) SyncSettingsToSheets(ctx context.Context) error {
	token := s.currentToken()
	if token == "" {
		return nil
	}

	spreadsheetID, err := s.ensureSpreadsheet(ctx, token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	settings := models.SheetSettings{
		InvestmentStrategy: s.investmentStrategy,
		Market:             s.market,
	}
	s.mu.Unlock()

	return s.records.WriteSettings(ctx, token, spreadsheetID, settings)
}

// WaitForSyncs blocks until all background syncs started so far have
// finished. Used at shutdown and by tests.
func (s *Store) WaitForSyncs() {
	s.syncs.Wait()
}

func (s *Store) currentToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// ensureSpreadsheet returns the known spreadsheet ID or discovers it.
func (s *Store) ensureSpreadsheet(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	id := s.spreadsheetID
	s.mu.Unlock()
	if id != "" {
		return id, nil
	}

	id, err := s.records.GetOrCreateSpreadsheet(ctx, token)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.spreadsheetID = id
	s.persist()
	s.mu.Unlock()
	return id, nil
}

func (s *Store) background(fn func(ctx context.Context)) {
	s.syncs.Add(1)
	go func() {
		defer s.syncs.Done()
		fn(context.Background())
	}()
}

func (s *Store) logRemoteFailure(op string, err error) {
	if errors.Is(err, sheets.ErrNotAuthenticated) {
		s.logger.Debug().Str("op", op).Msg("not authenticated, skipping remote sync")
		return
	}
	s.logger.Warn().Err(err).Str("op", op).Msg("remote store operation failed")
}
