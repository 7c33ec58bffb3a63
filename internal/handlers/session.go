package handlers

import (
	"net/http"

	common "github.com/bobmcallan/copilot-portal/internal/common"
	"github.com/bobmcallan/copilot-portal/internal/store"
)

// SessionHandler clears server-side user state when the UI signs out.
// The sign-in flow itself belongs to the external OAuth provider.
type SessionHandler struct {
	store  *store.Store
	logger *common.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(st *store.Store, logger *common.Logger) *SessionHandler {
	return &SessionHandler{store: st, logger: logger}
}

// ServeHTTP handles POST /api/auth/logout. Idempotent: signing out with
// nothing to clear still succeeds.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	h.store.ClearOnLogout()
	h.logger.Info().Msg("session state cleared")

	WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
