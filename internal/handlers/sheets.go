package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	common "github.com/bobmcallan/copilot-portal/internal/common"
	"github.com/bobmcallan/copilot-portal/internal/interfaces"
	"github.com/bobmcallan/copilot-portal/internal/models"
	"github.com/bobmcallan/copilot-portal/internal/sheets"
	"github.com/bobmcallan/copilot-portal/internal/store"
)

// SheetsHandler exposes the application state store and its remote
// synchronization over the REST API. The bearer token comes from the
// Authorization header on every request and is handed to the store
// before each operation, so background syncs use the latest token.
type SheetsHandler struct {
	store  *store.Store
	logger *common.Logger
}

// NewSheetsHandler creates a new sheets handler over the state store.
func NewSheetsHandler(st *store.Store, logger *common.Logger) *SheetsHandler {
	return &SheetsHandler{store: st, logger: logger}
}

// Read handles GET /api/sheets/read: reconciles the store against the
// remote snapshot (portfolio, analysis history, settings) and returns
// the merged state the store now holds.
func (h *SheetsHandler) Read(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	token := BearerToken(r)
	if token == "" {
		WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	h.store.SetAuthToken(token)
	if err := h.store.Load(r.Context()); err != nil {
		h.writeSheetsError(w, err, "Failed to read from Google Sheets")
		return
	}

	snap := h.store.Snapshot()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio":     snap.Portfolio,
		"spreadsheetId": snap.SpreadsheetID,
		"settings": models.SheetSettings{
			InvestmentStrategy: snap.InvestmentStrategy,
			Market:             snap.Market,
		},
	})
}

type syncRequest struct {
	Action    string                 `json:"action"`
	Portfolio []models.PortfolioItem `json:"portfolio"`
	Analysis  *analysisPayload       `json:"analysis"`
	Settings  *models.SheetSettings  `json:"settings"`
}

// analysisPayload is the flat wire shape for one history record.
type analysisPayload struct {
	Symbol      string                   `json:"symbol"`
	Rating      int                      `json:"rating"`
	Fundamental models.AnalysisByHorizon `json:"fundamental"`
	Technical   models.AnalysisByHorizon `json:"technical"`
	Timestamp   string                   `json:"timestamp"`
	Strategy    string                   `json:"strategy"`
}

// Sync handles POST /api/sheets/sync. The action field selects one of
// syncPortfolio, syncAnalysis, or syncSettings; anything else is a 400.
// Each action applies to the local store first and then performs the
// remote write, so a failed write still leaves the local state updated.
func (h *SheetsHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	token := BearerToken(r)
	if token == "" {
		WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.store.SetAuthToken(token)
	ctx := r.Context()

	var err error
	switch req.Action {
	case "syncPortfolio":
		h.store.SetPortfolio(req.Portfolio)
		err = h.store.SyncPortfolioToSheets(ctx)
	case "syncAnalysis":
		if req.Analysis == nil {
			WriteError(w, http.StatusBadRequest, "Analysis payload required")
			return
		}
		err = h.store.RecordAnalysis(ctx, interfaces.AnalysisRecord{
			Symbol: req.Analysis.Symbol,
			Analysis: models.StockAnalysis{
				Rating:      req.Analysis.Rating,
				Fundamental: req.Analysis.Fundamental.Normalize(),
				Technical:   req.Analysis.Technical.Normalize(),
				Timestamp:   req.Analysis.Timestamp,
			},
			Strategy: req.Analysis.Strategy,
		})
	case "syncSettings":
		if req.Settings == nil {
			WriteError(w, http.StatusBadRequest, "Settings payload required")
			return
		}
		h.store.SetInvestmentStrategy(req.Settings.InvestmentStrategy)
		h.store.SetMarket(models.ParseMarket(string(req.Settings.Market)))
		err = h.store.SyncSettingsToSheets(ctx)
	default:
		WriteError(w, http.StatusBadRequest, "Unknown action")
		return
	}

	if err != nil {
		h.writeSheetsError(w, err, "Failed to sync with Google Sheets")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"spreadsheetId": h.store.Snapshot().SpreadsheetID,
	})
}

func (h *SheetsHandler) writeSheetsError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, sheets.ErrNotAuthenticated) {
		WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	h.logger.Warn().Err(err).Msg("sheets request failed")
	WriteError(w, http.StatusInternalServerError, fallback)
}
