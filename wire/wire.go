// Package wire defines the JSON contracts shared by the messaging server
// and its clients, on both the REST and socket channels.
package wire

import (
	"encoding/json"
	"time"
)

// Socket event types.
const (
	EventJoinRoom       = "join_room"
	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
	EventError          = "error"
)

// Envelope frames every socket event in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}

// Message is the wire form of a persisted message, identical on REST and
// socket so clients reconcile both through one code path.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}

// JoinRoomPayload subscribes the connection to a conversation's room,
// leaving any previously joined room.
type JoinRoomPayload struct {
	ConversationID string `json:"conversation_id"`
}

// SendMessagePayload is the advisory fan-out trigger. The message must
// already be persisted via the REST append; the server re-reads it by ID
// before broadcasting.
type SendMessagePayload struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// ErrorPayload reports a rejected socket event.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Conversation is the wire form of a conversation with the counterpart's
// profile summary.
type Conversation struct {
	ID             string    `json:"id"`
	ParticipantIDs []string  `json:"participant_ids"`
	CreatedAt      time.Time `json:"created_at"`
	Other          Profile   `json:"other"`
}

type Profile struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"role"`
}
