package application

import (
	"context"

	"github.com/furniro/messaging/internal/domain"
)

func (s *Service) GetConversation(
	ctx context.Context,
	id string,
) (*domain.Conversation, error) {
	return s.repo.GetConversation(ctx, nil, id)
}
