package application

import (
	"context"

	"github.com/furniro/messaging/internal/domain"
)

func (s *Service) ListConversations(
	ctx context.Context,
	userID string,
) ([]*domain.ConversationSummary, error) {
	return s.repo.ListConversationsByUser(ctx, userID)
}
