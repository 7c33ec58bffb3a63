package store

import (
	"context"
	"sync"
	"testing"
	"time"

	common "github.com/bobmcallan/copilot-portal/internal/common"
	"github.com/bobmcallan/copilot-portal/internal/interfaces"
	"github.com/bobmcallan/copilot-portal/internal/models"
	"github.com/bobmcallan/copilot-portal/internal/sheets"
	"github.com/bobmcallan/copilot-portal/internal/storage/memory"
)

// fakeRecordStore is an in-memory RecordStore capturing calls.
type fakeRecordStore struct {
	mu sync.Mutex

	spreadsheetID string
	portfolio     []models.PortfolioItem
	analysis      map[string]models.StockAnalysis
	settings      models.SheetSettings
	appended      []interfaces.AnalysisRecord

	err          error // returned by every call when set
	syncCalls    int
	getOrCreates int
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{
		spreadsheetID: "sheet-1",
		analysis:      map[string]models.StockAnalysis{},
		settings:      models.DefaultSheetSettings(),
	}
}

func (f *fakeRecordStore) GetOrCreateSpreadsheet(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getOrCreates++
	if f.err != nil {
		return "", f.err
	}
	return f.spreadsheetID, nil
}

func (f *fakeRecordStore) ReadPortfolio(_ context.Context, _, _ string) ([]models.PortfolioItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.PortfolioItem, len(f.portfolio))
	copy(out, f.portfolio)
	return out, nil
}

func (f *fakeRecordStore) SyncPortfolio(_ context.Context, _, _ string, portfolio []models.PortfolioItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncCalls++
	if f.err != nil {
		return f.err
	}
	f.portfolio = make([]models.PortfolioItem, len(portfolio))
	copy(f.portfolio, portfolio)
	return nil
}

func (f *fakeRecordStore) AppendAnalysis(_ context.Context, _, _ string, record interfaces.AnalysisRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, record)
	return nil
}

func (f *fakeRecordStore) ReadAnalysis(_ context.Context, _, _ string) (map[string]models.StockAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]models.StockAnalysis, len(f.analysis))
	for k, v := range f.analysis {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRecordStore) ReadSettings(_ context.Context, _, _ string) (models.SheetSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.SheetSettings{}, f.err
	}
	return f.settings, nil
}

func (f *fakeRecordStore) WriteSettings(_ context.Context, _, _ string, settings models.SheetSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.settings = settings
	return nil
}

func (f *fakeRecordStore) remotePortfolio() []models.PortfolioItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.PortfolioItem, len(f.portfolio))
	copy(out, f.portfolio)
	return out
}

func newTestStore(t *testing.T, records interfaces.RecordStore) *Store {
	t.Helper()
	return New(records, memory.NewKVStorage(), common.NewSilentLogger())
}

func item(symbol string) models.PortfolioItem {
	return models.PortfolioItem{
		Symbol:    symbol,
		AddedAt:   float64(time.Now().UnixMilli()),
		AddedDate: time.Now().UTC().Format(time.RFC3339),
	}
}

func analysis(rating int) *models.StockAnalysis {
	return &models.StockAnalysis{
		Rating:      rating,
		Fundamental: models.EmptyByHorizon(),
		Technical:   models.EmptyByHorizon(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func TestAddToPortfolio_InsertionOrder(t *testing.T) {
	s := newTestStore(t, newFakeRecordStore())

	s.AddToPortfolio(item("AAPL"))
	s.AddToPortfolio(item("GOOGL"))
	s.WaitForSyncs()

	snap := s.Snapshot()
	if len(snap.Portfolio) != 2 {
		t.Fatalf("expected 2 items, got %d", len(snap.Portfolio))
	}
	if snap.Portfolio[0].Symbol != "AAPL" || snap.Portfolio[1].Symbol != "GOOGL" {
		t.Errorf("insertion order not preserved: %v", snap.Portfolio)
	}
}

func TestAddToPortfolio_NoDeduplication(t *testing.T) {
	s := newTestStore(t, newFakeRecordStore())

	s.AddToPortfolio(item("AAPL"))
	s.AddToPortfolio(item("AAPL"))
	s.WaitForSyncs()

	if got := len(s.Snapshot().Portfolio); got != 2 {
		t.Errorf("duplicate prevention is the caller's job; expected 2 items, got %d", got)
	}
}

func TestRemoveFromPortfolio(t *testing.T) {
	s := newTestStore(t, newFakeRecordStore())
	s.AddToPortfolio(item("AAPL"))
	s.AddToPortfolio(item("GOOGL"))

	s.RemoveFromPortfolio("AAPL")
	s.WaitForSyncs()

	snap := s.Snapshot()
	if len(snap.Portfolio) != 1 || snap.Portfolio[0].Symbol != "GOOGL" {
		t.Errorf("unexpected portfolio after remove: %v", snap.Portfolio)
	}
}

func TestRemoveFromPortfolio_MissIsNoop(t *testing.T) {
	s := newTestStore(t, newFakeRecordStore())

	// Empty portfolio.
	s.RemoveFromPortfolio("AAPL")
	if got := len(s.Snapshot().Portfolio); got != 0 {
		t.Errorf("expected empty portfolio, got %d items", got)
	}

	// Non-matching symbol.
	s.AddToPortfolio(item("AAPL"))
	s.RemoveFromPortfolio("DOESNOTEXIST")
	s.WaitForSyncs()

	snap := s.Snapshot()
	if len(snap.Portfolio) != 1 || snap.Portfolio[0].Symbol != "AAPL" {
		t.Errorf("unexpected portfolio: %v", snap.Portfolio)
	}
}

func TestSetPortfolioItemAnalysis(t *testing.T) {
	records := newFakeRecordStore()
	s := newTestStore(t, records)
	s.SetAuthToken("tok")
	s.SetInvestmentStrategy("growth")
	s.AddToPortfolio(item("AAPL"))
	s.AddToPortfolio(item("GOOGL"))
	s.WaitForSyncs()

	s.SetPortfolioItemAnalysis("AAPL", analysis(4))
	s.WaitForSyncs()

	snap := s.Snapshot()
	if snap.Portfolio[0].LastAnalysis == nil || snap.Portfolio[0].LastAnalysis.Rating != 4 {
		t.Errorf("analysis not applied: %+v", snap.Portfolio[0].LastAnalysis)
	}
	if snap.Portfolio[1].LastAnalysis != nil {
		t.Error("sibling item's analysis must stay untouched")
	}

	// A history record tagged with the strategy at call time is appended.
	records.mu.Lock()
	defer records.mu.Unlock()
	if len(records.appended) != 1 {
		t.Fatalf("expected 1 appended record, got %d", len(records.appended))
	}
	if records.appended[0].Symbol != "AAPL" || records.appended[0].Strategy != "growth" {
		t.Errorf("unexpected appended record: %+v", records.appended[0])
	}
}

func TestSetPortfolioItemAnalysis_UnknownSymbolIsNoop(t *testing.T) {
	records := newFakeRecordStore()
	s := newTestStore(t, records)
	s.SetAuthToken("tok")
	s.AddToPortfolio(item("AAPL"))
	s.WaitForSyncs()

	s.SetPortfolioItemAnalysis("NONEXISTENT", analysis(5))
	s.WaitForSyncs()

	if s.Snapshot().Portfolio[0].LastAnalysis != nil {
		t.Error("existing item must not gain an analysis")
	}
	records.mu.Lock()
	defer records.mu.Unlock()
	if len(records.appended) != 0 {
		t.Errorf("no history record expected, got %d", len(records.appended))
	}
}

func TestAnalyzePortfolio_PartialFailureTolerant(t *testing.T) {
	records := newFakeRecordStore()
	s := newTestStore(t, records)
	s.SetAuthToken("tok")
	s.AddToPortfolio(item("AAPL"))
	s.AddToPortfolio(item("BROKEN"))
	s.AddToPortfolio(item("GOOGL"))
	s.WaitForSyncs()

	s.AnalyzePortfolio(context.Background(), func(_ context.Context, symbol string) (*models.StockAnalysis, error) {
		if symbol == "BROKEN" {
			return nil, context.DeadlineExceeded
		}
		return analysis(4), nil
	})
	s.WaitForSyncs()

	snap := s.Snapshot()
	if snap.Portfolio[0].LastAnalysis == nil || snap.Portfolio[2].LastAnalysis == nil {
		t.Error("surviving items should have analyses despite the failed one")
	}
	if snap.Portfolio[1].LastAnalysis != nil {
		t.Error("failed item must keep no analysis")
	}
}

func TestSetPortfolio_WholesaleReplacement(t *testing.T) {
	s := newTestStore(t, newFakeRecordStore())
	s.AddToPortfolio(item("AAPL"))
	s.WaitForSyncs()

	s.SetPortfolio([]models.PortfolioItem{item("GOOGL"), item("MSFT")})

	snap := s.Snapshot()
	if len(snap.Portfolio) != 2 || snap.Portfolio[0].Symbol != "GOOGL" || snap.Portfolio[1].Symbol != "MSFT" {
		t.Errorf("unexpected portfolio: %v", snap.Portfolio)
	}
}

func TestClearOnLogout(t *testing.T) {
	kv := memory.NewKVStorage()
	s := New(newFakeRecordStore(), kv, common.NewSilentLogger())
	s.SetAuthToken("tok")
	s.SetInvestmentStrategy("Growth investing")
	s.AddToPortfolio(item("AAPL"))
	s.AddToPortfolio(item("GOOGL"))
	s.WaitForSyncs()
	s.LoadFromSheets(context.Background())

	s.ClearOnLogout()

	snap := s.Snapshot()
	if len(snap.Portfolio) != 0 {
		t.Errorf("portfolio not cleared: %v", snap.Portfolio)
	}
	if snap.SpreadsheetID != "" || snap.SheetsLoaded || snap.InvestmentStrategy != "" {
		t.Errorf("state not reset: %+v", snap)
	}
	if _, err := kv.Get(context.Background(), "investment-copilot-storage"); err == nil {
		t.Error("persisted record should be discarded")
	}

	// Idempotent on already-empty state.
	s.ClearOnLogout()
	if got := len(s.Snapshot().Portfolio); got != 0 {
		t.Errorf("second clear changed state: %d items", got)
	}
}

func TestLoadFromSheets_UploadWinsOnEmptyRemote(t *testing.T) {
	records := newFakeRecordStore()
	s := newTestStore(t, records)
	s.SetAuthToken("tok")
	s.AddToPortfolio(item("AAPL"))
	s.AddToPortfolio(item("TCS.NS"))
	s.WaitForSyncs()
	records.mu.Lock()
	records.portfolio = nil // remote is empty at read time
	records.mu.Unlock()

	s.LoadFromSheets(context.Background())

	snap := s.Snapshot()
	if !snap.SheetsLoaded {
		t.Error("sheetsLoaded should be true after load")
	}
	if snap.SpreadsheetID != "sheet-1" {
		t.Errorf("spreadsheet ID not adopted: %q", snap.SpreadsheetID)
	}
	if len(snap.Portfolio) != 2 {
		t.Fatalf("local portfolio should survive, got %d items", len(snap.Portfolio))
	}

	remote := records.remotePortfolio()
	if len(remote) != 2 || remote[0].Symbol != "AAPL" || remote[1].Symbol != "TCS.NS" {
		t.Errorf("local portfolio should be pushed to remote: %v", remote)
	}
}

func TestLoadFromSheets_DownloadWins(t *testing.T) {
	records := newFakeRecordStore()
	records.portfolio = []models.PortfolioItem{item("RELIANCE.NS"), item("INFY.NS"), item("HDFC.NS")}
	records.analysis["INFY.NS"] = *analysis(5)
	records.settings = models.SheetSettings{InvestmentStrategy: "value", Market: models.MarketBSE}

	s := newTestStore(t, records)
	s.SetAuthToken("tok")
	s.AddToPortfolio(item("AAPL")) // local item, overwritten by download-wins
	s.WaitForSyncs()
	records.mu.Lock()
	records.portfolio = []models.PortfolioItem{item("RELIANCE.NS"), item("INFY.NS"), item("HDFC.NS")}
	records.mu.Unlock()

	s.LoadFromSheets(context.Background())

	snap := s.Snapshot()
	if len(snap.Portfolio) != 3 {
		t.Fatalf("expected remote portfolio of 3, got %d", len(snap.Portfolio))
	}
	want := []string{"RELIANCE.NS", "INFY.NS", "HDFC.NS"}
	for i, symbol := range want {
		if snap.Portfolio[i].Symbol != symbol {
			t.Errorf("position %d: got %q, want %q", i, snap.Portfolio[i].Symbol, symbol)
		}
	}

	// Analysis merged by symbol; unmatched items keep none.
	if snap.Portfolio[1].LastAnalysis == nil || snap.Portfolio[1].LastAnalysis.Rating != 5 {
		t.Errorf("INFY.NS analysis not merged: %+v", snap.Portfolio[1].LastAnalysis)
	}
	if snap.Portfolio[0].LastAnalysis != nil {
		t.Error("RELIANCE.NS should have no analysis")
	}

	// Remote settings adopted.
	if snap.InvestmentStrategy != "value" || snap.Market != models.MarketBSE {
		t.Errorf("settings not adopted: %+v", snap)
	}
	if !snap.SheetsLoaded {
		t.Error("sheetsLoaded should be true")
	}
}

func TestLoadFromSheets_NotAuthenticatedIsSilent(t *testing.T) {
	records := newFakeRecordStore()
	records.err = sheets.ErrNotAuthenticated

	s := newTestStore(t, records)
	s.SetAuthToken("expired")
	s.AddToPortfolio(item("AAPL"))
	s.WaitForSyncs()

	s.LoadFromSheets(context.Background())

	snap := s.Snapshot()
	if snap.SheetsLoaded {
		t.Error("sheetsLoaded must stay false after auth failure")
	}
	if len(snap.Portfolio) != 1 {
		t.Errorf("local state must be untouched, got %d items", len(snap.Portfolio))
	}
}

func TestLoadFromSheets_NoTokenSkips(t *testing.T) {
	records := newFakeRecordStore()
	s := newTestStore(t, records)

	s.LoadFromSheets(context.Background())

	if s.Snapshot().SheetsLoaded {
		t.Error("load without a token must be a no-op")
	}
	records.mu.Lock()
	defer records.mu.Unlock()
	if records.getOrCreates != 0 {
		t.Error("no remote calls expected without a token")
	}
}

func TestBackgroundSyncFailureNeverRollsBack(t *testing.T) {
	records := newFakeRecordStore()
	records.err = context.DeadlineExceeded // transient remote failure

	s := newTestStore(t, records)
	s.SetAuthToken("tok")
	s.AddToPortfolio(item("AAPL"))
	s.WaitForSyncs()

	if got := len(s.Snapshot().Portfolio); got != 1 {
		t.Errorf("optimistic local state must survive sync failure, got %d items", got)
	}
}

func TestPersistence_RestoresSubsetAcrossSessions(t *testing.T) {
	kv := memory.NewKVStorage()
	records := newFakeRecordStore()

	s1 := New(records, kv, common.NewSilentLogger())
	s1.SetAuthToken("tok")
	s1.SetMarket(models.MarketUS)
	s1.SetInvestmentStrategy("swing")
	s1.AddToPortfolio(item("AAPL"))
	s1.WaitForSyncs() // portfolio sync discovers and persists the spreadsheet ID

	// New session over the same local storage.
	s2 := New(records, kv, common.NewSilentLogger())
	snap := s2.Snapshot()

	if snap.Market != models.MarketUS || snap.InvestmentStrategy != "swing" {
		t.Errorf("settings not restored: %+v", snap)
	}
	if len(snap.Portfolio) != 1 || snap.Portfolio[0].Symbol != "AAPL" {
		t.Errorf("portfolio not restored: %v", snap.Portfolio)
	}
	if snap.SpreadsheetID != "sheet-1" {
		t.Errorf("spreadsheet ID not restored: %q", snap.SpreadsheetID)
	}
	// sheetsLoaded is never persisted: each session reconciles afresh.
	if snap.SheetsLoaded {
		t.Error("sheetsLoaded must start false in a new session")
	}
}

func TestSetMarketAndStrategy_DoNotSync(t *testing.T) {
	records := newFakeRecordStore()
	s := newTestStore(t, records)
	s.SetAuthToken("tok")

	s.SetMarket(models.MarketGlobal)
	s.SetInvestmentStrategy("draft text")
	s.WaitForSyncs()

	records.mu.Lock()
	defer records.mu.Unlock()
	if records.syncCalls != 0 || len(records.appended) != 0 {
		t.Error("setMarket/setInvestmentStrategy must not trigger remote syncs")
	}
	if records.settings.InvestmentStrategy != "" {
		t.Error("settings must not be written until the explicit settings sync")
	}
}

func TestLoad_SurfacesRemoteFailure(t *testing.T) {
	records := newFakeRecordStore()
	records.err = context.DeadlineExceeded

	s := newTestStore(t, records)
	s.SetAuthToken("tok")

	if err := s.Load(context.Background()); err == nil {
		t.Error("Load must report the remote failure")
	}
	if s.Snapshot().SheetsLoaded {
		t.Error("sheetsLoaded must stay false after a failed load")
	}

	// Without a token the load is skipped, not failed.
	s.SetAuthToken("")
	if err := s.Load(context.Background()); err != nil {
		t.Errorf("load without a token should be a silent skip, got %v", err)
	}
}

func TestRecordAnalysis(t *testing.T) {
	records := newFakeRecordStore()
	s := newTestStore(t, records)
	s.SetAuthToken("tok")
	s.AddToPortfolio(item("AAPL"))
	s.WaitForSyncs()

	record := interfaces.AnalysisRecord{Symbol: "AAPL", Analysis: *analysis(3), Strategy: "value"}
	if err := s.RecordAnalysis(context.Background(), record); err != nil {
		t.Fatalf("RecordAnalysis failed: %v", err)
	}

	snap := s.Snapshot()
	if snap.Portfolio[0].LastAnalysis == nil || snap.Portfolio[0].LastAnalysis.Rating != 3 {
		t.Errorf("analysis not applied locally: %+v", snap.Portfolio[0].LastAnalysis)
	}
	records.mu.Lock()
	defer records.mu.Unlock()
	if len(records.appended) != 1 || records.appended[0].Strategy != "value" {
		t.Errorf("history record not appended: %+v", records.appended)
	}
}

func TestRecordAnalysis_UnknownSymbolStillAppends(t *testing.T) {
	records := newFakeRecordStore()
	s := newTestStore(t, records)
	s.SetAuthToken("tok")
	s.AddToPortfolio(item("AAPL"))
	s.WaitForSyncs()

	record := interfaces.AnalysisRecord{Symbol: "SOLD.NS", Analysis: *analysis(2), Strategy: "swing"}
	if err := s.RecordAnalysis(context.Background(), record); err != nil {
		t.Fatalf("RecordAnalysis failed: %v", err)
	}

	if s.Snapshot().Portfolio[0].LastAnalysis != nil {
		t.Error("unrelated item must not gain an analysis")
	}
	records.mu.Lock()
	defer records.mu.Unlock()
	if len(records.appended) != 1 || records.appended[0].Symbol != "SOLD.NS" {
		t.Errorf("history append missing: %+v", records.appended)
	}
}

func TestRecordAnalysis_AppendFailureKeepsLocalApply(t *testing.T) {
	records := newFakeRecordStore()
	s := newTestStore(t, records)
	s.SetAuthToken("tok")
	s.AddToPortfolio(item("AAPL"))
	s.WaitForSyncs()
	records.mu.Lock()
	records.err = context.DeadlineExceeded
	records.mu.Unlock()

	record := interfaces.AnalysisRecord{Symbol: "AAPL", Analysis: *analysis(5), Strategy: "growth"}
	if err := s.RecordAnalysis(context.Background(), record); err == nil {
		t.Error("append failure must be reported")
	}
	if s.Snapshot().Portfolio[0].LastAnalysis == nil {
		t.Error("optimistic local apply must survive the failed append")
	}
}

func TestSyncAnalysisToSheets_TagsCurrentStrategy(t *testing.T) {
	records := newFakeRecordStore()
	s := newTestStore(t, records)
	s.SetAuthToken("tok")
	s.SetInvestmentStrategy("sip")

	if err := s.SyncAnalysisToSheets(context.Background(), "AAPL", *analysis(4)); err != nil {
		t.Fatalf("SyncAnalysisToSheets failed: %v", err)
	}

	records.mu.Lock()
	defer records.mu.Unlock()
	if len(records.appended) != 1 || records.appended[0].Strategy != "sip" {
		t.Errorf("unexpected append: %+v", records.appended)
	}
}

func TestSyncSettingsToSheets(t *testing.T) {
	records := newFakeRecordStore()
	s := newTestStore(t, records)
	s.SetAuthToken("tok")
	s.SetMarket(models.MarketUS)
	s.SetInvestmentStrategy("momentum")

	s.SyncSettingsToSheets(context.Background())

	records.mu.Lock()
	defer records.mu.Unlock()
	if records.settings.InvestmentStrategy != "momentum" || records.settings.Market != models.MarketUS {
		t.Errorf("settings not written: %+v", records.settings)
	}
}
