package handlers

import (
	"encoding/json"
	"net/http"

	common "github.com/bobmcallan/copilot-portal/internal/common"
	"github.com/bobmcallan/copilot-portal/internal/interfaces"
)

// SentimentHandler generates AI outlooks from price history and the
// user's investment strategy.
type SentimentHandler struct {
	generator interfaces.InsightGenerator
	logger    *common.Logger
}

// NewSentimentHandler creates a new sentiment handler.
func NewSentimentHandler(generator interfaces.InsightGenerator, logger *common.Logger) *SentimentHandler {
	return &SentimentHandler{generator: generator, logger: logger}
}

type sentimentRequest struct {
	History  []interfaces.PricePoint `json:"history"`
	Strategy string                  `json:"strategy"`
}

// ServeHTTP handles POST /api/ai/sentiment.
func (h *SentimentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req sentimentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Strategy == "" {
		WriteError(w, http.StatusBadRequest, "Investment strategy required")
		return
	}

	if h.generator == nil {
		WriteError(w, http.StatusInternalServerError, "AI provider not configured on server")
		return
	}

	analysis, err := h.generator.Generate(r.Context(), req.History, req.Strategy)
	if err != nil {
		h.logger.Warn().Err(err).Msg("sentiment generation failed")
		WriteError(w, http.StatusInternalServerError, "Failed to analyze sentiment")
		return
	}

	WriteJSON(w, http.StatusOK, analysis)
}
