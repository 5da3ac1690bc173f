package application

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/furniro/messaging/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateOrGetConversation is idempotent on the unordered participant pair:
// repeated "start conversation" requests for the same two users return the
// existing conversation.
func (s *Service) CreateOrGetConversation(
	ctx context.Context,
	userA, userB string,
) (*domain.Conversation, error) {

	if userA == "" || userB == "" {
		return nil, domain.ErrInvalidInput
	}
	if userA == userB {
		return nil, domain.ErrInvalidParticipants
	}

	lookupKey := domain.LookupKey(userA, userB)

	// Best-effort lookup before opening a transaction.
	if existing, err := s.repo.GetConversationByLookupKey(ctx, nil, lookupKey); err == nil && existing != nil {
		return existing, nil
	}

	var result *domain.Conversation
	txErr := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// Double-check inside the transaction.
		if existing, err := s.repo.GetConversationByLookupKey(ctx, tx, lookupKey); err == nil && existing != nil {
			result = existing
			return nil
		}

		conv, err := domain.NewConversation(uuid.NewString(), userA, userB, time.Now().UTC())
		if err != nil {
			return err
		}

		if err := s.repo.InsertConversation(ctx, tx, conv, lookupKey); err != nil {
			// On ErrConversationExists the transaction is already aborted;
			// any query through it would fail, so the refetch happens below,
			// after rollback.
			return err
		}

		if err := s.emitConversationCreated(ctx, tx, conv); err != nil {
			return err
		}

		result = conv
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, domain.ErrConversationExists) {
			return nil, txErr
		}
		// A concurrent creator won the insert race, reuse theirs.
		existing, err := s.repo.GetConversationByLookupKey(ctx, nil, lookupKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing conversation: %w", err)
		}
		result = existing
	}

	s.log.Info("conversation ready",
		zap.String("conversation_id", result.ID),
		zap.String("participant_a", result.ParticipantA),
		zap.String("participant_b", result.ParticipantB),
	)

	return result, nil
}

type conversationCreatedEvent struct {
	ConversationID string    `json:"conversation_id"`
	ParticipantA   string    `json:"participant_a"`
	ParticipantB   string    `json:"participant_b"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Service) emitConversationCreated(ctx context.Context, tx *sql.Tx, conv *domain.Conversation) error {
	payload, err := json.Marshal(conversationCreatedEvent{
		ConversationID: conv.ID,
		ParticipantA:   conv.ParticipantA,
		ParticipantB:   conv.ParticipantB,
		CreatedAt:      conv.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	if err := s.repo.InsertOutbox(ctx, tx, "conversation", conv.ID, "CONVERSATION_CREATED", payload); err != nil {
		return fmt.Errorf("failed to save outbox event: %w", err)
	}
	return nil
}
