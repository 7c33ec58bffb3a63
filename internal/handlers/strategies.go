package handlers

import (
	"net/http"

	common "github.com/bobmcallan/copilot-portal/internal/common"
	"github.com/bobmcallan/copilot-portal/internal/models"
)

// StrategiesHandler serves the static strategy preset catalog the UI
// offers as starting points for the user's strategy text.
type StrategiesHandler struct {
	logger *common.Logger
}

// NewStrategiesHandler creates a new strategies handler.
func NewStrategiesHandler(logger *common.Logger) *StrategiesHandler {
	return &StrategiesHandler{logger: logger}
}

// ServeHTTP handles GET /api/strategies.
func (h *StrategiesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"presets": models.StrategyPresets,
	})
}
