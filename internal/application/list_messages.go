package application

import (
	"context"

	"github.com/furniro/messaging/internal/domain"
)

func (s *Service) ListMessages(
	ctx context.Context,
	conversationID string,
	requesterID string,
) ([]*domain.Message, error) {

	// Verify membership
	conv, err := s.repo.GetConversation(ctx, nil, conversationID)
	if err != nil {
		return nil, err
	}

	if !conv.HasParticipant(requesterID) {
		return nil, domain.ErrNotParticipant
	}

	return s.repo.ListMessages(ctx, conversationID)
}

// GetPersistedMessage loads a message for the fan-out path. Publishing is
// gated on this lookup so an unpersisted message can never reach a room.
func (s *Service) GetPersistedMessage(
	ctx context.Context,
	messageID string,
) (*domain.Message, error) {
	return s.repo.GetMessage(ctx, messageID)
}
