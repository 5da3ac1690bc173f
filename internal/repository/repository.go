package repository

import (
	"context"
	"database/sql"

	"github.com/furniro/messaging/internal/domain"
)

type Repository interface {
	// Conversations
	InsertConversation(ctx context.Context, tx *sql.Tx, conv *domain.Conversation, lookupKey string) error
	GetConversation(ctx context.Context, tx *sql.Tx, id string) (*domain.Conversation, error)
	GetConversationByLookupKey(ctx context.Context, tx *sql.Tx, key string) (*domain.Conversation, error)
	ListConversationsByUser(ctx context.Context, userID string) ([]*domain.ConversationSummary, error)

	// Messages
	InsertMessage(ctx context.Context, tx *sql.Tx, msg *domain.Message) error
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	ListMessages(ctx context.Context, convID string) ([]*domain.Message, error)

	// Outbox
	InsertOutbox(ctx context.Context, tx *sql.Tx, aggregateType, aggregateID, eventType string, payload []byte) error
}
