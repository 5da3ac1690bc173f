package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/furniro/messaging/internal/application"
	"github.com/furniro/messaging/internal/middleware"
	"github.com/furniro/messaging/internal/transport"
)

type MessageHandler struct {
	svc *application.Service
}

func NewMessageHandler(svc *application.Service) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// SendMessage is the authoritative write. Fan-out to live sockets is
// triggered separately by the client's advisory socket event.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req struct {
		ConversationID string `json:"conversation_id"`
		Text           string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid json")
		return
	}
	if req.ConversationID == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing_conv_id", "conversation_id is required")
		return
	}

	msg, err := h.svc.SendMessage(r.Context(), application.SendMessageCommand{
		ConversationID: req.ConversationID,
		SenderID:       userID,
		Text:           req.Text,
	})
	if err != nil {
		transport.DomainError(w, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, toWireMessage(msg))
}
