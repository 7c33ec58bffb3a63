package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	common "github.com/bobmcallan/copilot-portal/internal/common"
	"github.com/bobmcallan/copilot-portal/internal/interfaces"
	"github.com/bobmcallan/copilot-portal/internal/models"
	"github.com/bobmcallan/copilot-portal/internal/store"
)

// PortfolioHandler exposes the portfolio operations of the application
// state store: snapshot, add, remove, and the batch analysis run.
// Mutations are optimistic; the store performs the remote sync in the
// background and a failure never undoes the local change.
type PortfolioHandler struct {
	store     *store.Store
	provider  interfaces.DataProvider
	generator interfaces.InsightGenerator
	logger    *common.Logger
}

// NewPortfolioHandler creates a new portfolio handler.
func NewPortfolioHandler(st *store.Store, provider interfaces.DataProvider, generator interfaces.InsightGenerator, logger *common.Logger) *PortfolioHandler {
	return &PortfolioHandler{store: st, provider: provider, generator: generator, logger: logger}
}

// List handles GET /api/portfolio: the current state snapshot.
func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, h.store.Snapshot())
}

type portfolioItemRequest struct {
	Symbol    string  `json:"symbol"`
	AddedAt   float64 `json:"addedAt"`
	AddedDate string  `json:"addedDate"`
}

// Add handles POST /api/portfolio/add. The store itself appends
// unconditionally, so the uniqueness contract lives here: adding a
// symbol already in the portfolio is a no-op that reports added=false.
func (h *PortfolioHandler) Add(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req portfolioItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Symbol == "" {
		WriteError(w, http.StatusBadRequest, "Symbol required")
		return
	}

	h.store.SetAuthToken(BearerToken(r))

	if _, idx := models.FindBySymbol(h.store.Snapshot().Portfolio, req.Symbol); idx >= 0 {
		h.logger.Debug().Str("symbol", req.Symbol).Msg("symbol already in portfolio")
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"added":     false,
			"portfolio": h.store.Snapshot().Portfolio,
		})
		return
	}

	item := models.PortfolioItem{
		Symbol:    req.Symbol,
		AddedAt:   req.AddedAt,
		AddedDate: req.AddedDate,
	}
	if item.AddedAt == 0 {
		item.AddedAt = float64(time.Now().UnixMilli())
	}
	if item.AddedDate == "" {
		item.AddedDate = time.Now().UTC().Format(time.RFC3339)
	}
	h.store.AddToPortfolio(item)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"added":     true,
		"portfolio": h.store.Snapshot().Portfolio,
	})
}

// Remove handles POST /api/portfolio/remove. A symbol not in the
// portfolio is a no-op, mirroring the store's remove semantics.
func (h *PortfolioHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req portfolioItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Symbol == "" {
		WriteError(w, http.StatusBadRequest, "Symbol required")
		return
	}

	h.store.SetAuthToken(BearerToken(r))
	h.store.RemoveFromPortfolio(req.Symbol)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio": h.store.Snapshot().Portfolio,
	})
}

// AnalyzeAll handles POST /api/portfolio/analyze: runs the AI outlook
// over every portfolio item concurrently using the stored strategy.
// Per-item failures are logged and skipped; the response carries the
// portfolio with whatever analyses succeeded.
func (h *PortfolioHandler) AnalyzeAll(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if h.generator == nil {
		WriteError(w, http.StatusInternalServerError, "AI provider not configured on server")
		return
	}

	h.store.SetAuthToken(BearerToken(r))
	snap := h.store.Snapshot()
	if snap.InvestmentStrategy == "" {
		WriteError(w, http.StatusBadRequest, "Investment strategy required")
		return
	}

	strategy := snap.InvestmentStrategy
	h.store.AnalyzePortfolio(r.Context(), func(ctx context.Context, symbol string) (*models.StockAnalysis, error) {
		history, err := h.provider.GetHistory(ctx, symbol, "1mo")
		if err != nil {
			return nil, err
		}
		return h.generator.Generate(ctx, history, strategy)
	})

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio": h.store.Snapshot().Portfolio,
	})
}
