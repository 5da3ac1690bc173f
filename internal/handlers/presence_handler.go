package handlers

import (
	"net/http"

	"github.com/furniro/messaging/internal/middleware"
	"github.com/furniro/messaging/internal/presence"
	"github.com/furniro/messaging/internal/transport"
)

type PresenceHandler struct {
	tracker *presence.Tracker
}

func NewPresenceHandler(tracker *presence.Tracker) *PresenceHandler {
	return &PresenceHandler{tracker: tracker}
}

// Heartbeat refreshes the caller's presence record. No body needed; the
// identity comes from the credential.
func (h *PresenceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	if err := h.tracker.Heartbeat(r.Context(), userID); err != nil {
		transport.WriteError(w, http.StatusServiceUnavailable, "unavailable", "presence store unreachable")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PresenceHandler) ActiveUsers(w http.ResponseWriter, r *http.Request) {
	active, err := h.tracker.ActiveUsers(r.Context())
	if err != nil {
		transport.WriteError(w, http.StatusServiceUnavailable, "unavailable", "presence store unreachable")
		return
	}
	if active == nil {
		active = []string{}
	}

	transport.WriteJSON(w, http.StatusOK, map[string][]string{"active": active})
}
