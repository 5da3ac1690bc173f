package domain

import (
	"strings"
	"time"
)

const MaxMessageSize = 4000

// Message Invariants:
// 1. Ordering: CreatedAt is server-assigned and is the ordering key within
//    a conversation (ID breaks ties).
// 2. Immutability: all fields are immutable after creation.
// 3. Sender must be a participant of the owning conversation.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Text           string
	CreatedAt      time.Time
}

func NewMessage(id, conversationID, senderID, text string, now time.Time) (*Message, error) {
	if id == "" || conversationID == "" || senderID == "" {
		return nil, ErrInvalidInput
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrInvalidMessage
	}
	if len(text) > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}

	return &Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		CreatedAt:      now,
	}, nil
}

// Before reports whether m orders ahead of other in a conversation view.
func (m *Message) Before(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}
