package handlers

import (
	"net/http"

	common "github.com/bobmcallan/copilot-portal/internal/common"
	"github.com/bobmcallan/copilot-portal/internal/interfaces"
	"github.com/bobmcallan/copilot-portal/internal/models"
)

// StocksHandler serves search, quote, and history lookups against the
// market data provider.
type StocksHandler struct {
	provider interfaces.DataProvider
	logger   *common.Logger
}

// NewStocksHandler creates a new stocks handler.
func NewStocksHandler(provider interfaces.DataProvider, logger *common.Logger) *StocksHandler {
	return &StocksHandler{provider: provider, logger: logger}
}

// Search handles GET /api/stocks/search?q=&market=.
// An empty query returns an empty result set, not an error. Provider
// failures degrade to an empty set too: search is typeahead, a blank
// dropdown beats an error toast.
func (h *StocksHandler) Search(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"results": []interfaces.StockSearchResult{},
		})
		return
	}

	market := models.ParseMarket(r.URL.Query().Get("market"))
	results, err := h.provider.Search(r.Context(), query, market)
	if err != nil {
		h.logger.Warn().Err(err).Str("query", query).Msg("stock search failed")
		results = []interfaces.StockSearchResult{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

// Quote handles GET /api/stocks/quote?symbol=.
func (h *StocksHandler) Quote(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "Symbol required")
		return
	}

	quote, err := h.provider.GetQuote(r.Context(), symbol)
	if err != nil {
		h.logger.Warn().Err(err).Str("symbol", symbol).Msg("quote fetch failed")
		WriteError(w, http.StatusInternalServerError, "Failed to fetch quote")
		return
	}

	WriteJSON(w, http.StatusOK, quote)
}

// History handles GET /api/stocks/history?symbol=&range=.
func (h *StocksHandler) History(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = "1mo"
	}

	history, err := h.provider.GetHistory(r.Context(), symbol, rng)
	if err != nil {
		h.logger.Warn().Err(err).Str("symbol", symbol).Msg("history fetch failed")
		WriteError(w, http.StatusInternalServerError, "Failed to fetch history")
		return
	}

	WriteJSON(w, http.StatusOK, history)
}
