package domain

import (
	"fmt"
	"time"
)

// Conversation Invariants:
// 1. Membership: exactly 2 distinct participants, fixed at creation.
// 2. Identity: one conversation per unordered participant pair (creation is
//    idempotent via LookupKey).
type Conversation struct {
	ID           string
	ParticipantA string
	ParticipantB string
	CreatedAt    time.Time
}

// Profile carries the public fields of the other participant, joined at
// read time for display. Writes belong to the marketplace account system.
type Profile struct {
	UserID    string
	Name      string
	AvatarURL string
	Role      string
}

// ConversationSummary is a conversation annotated with the counterpart's
// profile for the authenticated viewer.
type ConversationSummary struct {
	Conversation
	Other Profile
}

func NewConversation(id, userA, userB string, now time.Time) (*Conversation, error) {
	if id == "" || userA == "" || userB == "" {
		return nil, ErrInvalidInput
	}
	if userA == userB {
		return nil, ErrInvalidParticipants
	}
	return &Conversation{
		ID:           id,
		ParticipantA: userA,
		ParticipantB: userB,
		CreatedAt:    now,
	}, nil
}

func (c *Conversation) HasParticipant(userID string) bool {
	return userID == c.ParticipantA || userID == c.ParticipantB
}

func (c *Conversation) CanSend(userID string) error {
	if !c.HasParticipant(userID) {
		return ErrNotParticipant
	}
	return nil
}

// Other returns the counterpart of userID, assuming userID is a participant.
func (c *Conversation) Other(userID string) string {
	if userID == c.ParticipantA {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// LookupKey is the unordered-pair identity used for idempotent creation.
func LookupKey(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("direct:%s:%s", userA, userB)
}
