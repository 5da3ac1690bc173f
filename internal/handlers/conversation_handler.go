package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/furniro/messaging/internal/application"
	"github.com/furniro/messaging/internal/domain"
	"github.com/furniro/messaging/internal/middleware"
	"github.com/furniro/messaging/internal/transport"
	"github.com/furniro/messaging/wire"
	"github.com/go-chi/chi/v5"
)

type ConversationHandler struct {
	svc *application.Service
}

func NewConversationHandler(svc *application.Service) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

// CreateConversation is the idempotent create-or-get keyed on the caller
// and the recipient.
func (h *ConversationHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req struct {
		RecipientID string `json:"recipient_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid json")
		return
	}
	if req.RecipientID == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing_recipient", "recipient_id is required")
		return
	}

	conv, err := h.svc.CreateOrGetConversation(r.Context(), userID, req.RecipientID)
	if err != nil {
		transport.DomainError(w, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, wire.Conversation{
		ID:             conv.ID,
		ParticipantIDs: []string{conv.ParticipantA, conv.ParticipantB},
		CreatedAt:      conv.CreatedAt,
	})
}

func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	summaries, err := h.svc.ListConversations(r.Context(), userID)
	if err != nil {
		transport.DomainError(w, err)
		return
	}

	out := make([]wire.Conversation, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, wire.Conversation{
			ID:             s.ID,
			ParticipantIDs: []string{s.ParticipantA, s.ParticipantB},
			CreatedAt:      s.CreatedAt,
			Other: wire.Profile{
				UserID:    s.Other.UserID,
				Name:      s.Other.Name,
				AvatarURL: s.Other.AvatarURL,
				Role:      s.Other.Role,
			},
		})
	}

	transport.WriteJSON(w, http.StatusOK, out)
}

func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	convID := chi.URLParam(r, "id")

	msgs, err := h.svc.ListMessages(r.Context(), convID, userID)
	if err != nil {
		transport.DomainError(w, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, toWireMessages(msgs))
}

func toWireMessages(msgs []*domain.Message) []wire.Message {
	out := make([]wire.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toWireMessage(m))
	}
	return out
}

func toWireMessage(m *domain.Message) wire.Message {
	return wire.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		CreatedAt:      m.CreatedAt,
	}
}
