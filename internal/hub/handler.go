package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/furniro/messaging/internal/domain"
	"github.com/furniro/messaging/internal/middleware"
	"github.com/furniro/messaging/internal/observability"
	"github.com/furniro/messaging/wire"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Source is what the socket path needs from the application layer: room
// authorization and the persistence gate for advisory fan-out.
type Source interface {
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	GetPersistedMessage(ctx context.Context, id string) (*domain.Message, error)
}

type Handler struct {
	hub         *Hub
	source      Source
	serviceName string
}

func NewHandler(h *Hub, source Source, serviceName string) *Handler {
	return &Handler{hub: h, source: source, serviceName: serviceName}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	log := observability.GetLogger(r.Context())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("upgrade error", zap.Error(err))
		return
	}

	session := NewSession(uuid.NewString(), userID, conn)
	session.Start()

	log.Info("socket connected", zap.String("user_id", userID), zap.String("session_id", session.ID))
	observability.WebSocketConnectionsActive.WithLabelValues(h.serviceName).Inc()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go h.readLoop(session)
}

func (h *Handler) readLoop(s *Session) {
	defer func() {
		h.hub.Leave(s)
		s.Close()
		observability.WebSocketConnectionsActive.WithLabelValues(h.serviceName).Dec()
		observability.GetLogger(context.Background()).Info("socket disconnected",
			zap.String("user_id", s.UserID), zap.String("session_id", s.ID))
	}()

	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				observability.GetLogger(context.Background()).Warn("read loop error",
					zap.String("user_id", s.UserID), zap.Error(err))
			}
			return
		}

		var env wire.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			h.sendError(s, "invalid_envelope", "malformed event")
			continue
		}

		switch env.Type {
		case wire.EventJoinRoom:
			h.handleJoinRoom(s, env.Payload)
		case wire.EventSendMessage:
			h.handleSendMessage(s, env.Payload)
		default:
			h.sendError(s, "unknown_event", "unknown event type: "+env.Type)
		}
	}
}

func (h *Handler) handleJoinRoom(s *Session, payload json.RawMessage) {
	var req wire.JoinRoomPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.ConversationID == "" {
		h.sendError(s, "invalid_payload", "join_room requires conversation_id")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conv, err := h.source.GetConversation(ctx, req.ConversationID)
	if err != nil {
		h.sendError(s, "not_found", "conversation not found")
		return
	}
	if !conv.HasParticipant(s.UserID) {
		h.sendError(s, "forbidden", "not a participant")
		return
	}

	h.hub.Join(s, req.ConversationID)
}

// handleSendMessage is the advisory fan-out trigger. The broadcast is gated
// on re-reading the message from the store: an event naming a message that
// was never persisted goes nowhere.
func (h *Handler) handleSendMessage(s *Session, payload json.RawMessage) {
	var req wire.SendMessagePayload
	if err := json.Unmarshal(payload, &req); err != nil || req.MessageID == "" {
		h.sendError(s, "invalid_payload", "send_message requires message_id")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := h.source.GetPersistedMessage(ctx, req.MessageID)
	if err != nil {
		h.sendError(s, "not_found", "message not persisted")
		return
	}
	if msg.SenderID != s.UserID {
		h.sendError(s, "forbidden", "sender mismatch")
		return
	}
	if req.ConversationID != "" && req.ConversationID != msg.ConversationID {
		h.sendError(s, "invalid_payload", "conversation mismatch")
		return
	}

	out, err := wire.NewEnvelope(wire.EventReceiveMessage, wire.Message{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Text:           msg.Text,
		CreatedAt:      msg.CreatedAt,
	})
	if err != nil {
		return
	}

	delivered := h.hub.Publish(msg.ConversationID, out, s)
	observability.MessagesPublishedTotal.WithLabelValues(h.serviceName).Add(float64(delivered))
	observability.MessageDeliveryLatency.WithLabelValues(h.serviceName).
		Observe(time.Since(msg.CreatedAt).Seconds())
}

func (h *Handler) sendError(s *Session, code, message string) {
	out, err := wire.NewEnvelope(wire.EventError, wire.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	s.TrySend(out)
}
