package application

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/furniro/messaging/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SendMessageCommand struct {
	ConversationID string
	SenderID       string
	Text           string
}

// SendMessage validates the sender against the conversation membership and
// persists the message with server-assigned id and timestamp. Fan-out to
// live sockets happens only after this returns successfully.
func (s *Service) SendMessage(
	ctx context.Context,
	cmd SendMessageCommand,
) (*domain.Message, error) {

	var result *domain.Message

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		conv, err := s.repo.GetConversation(ctx, tx, cmd.ConversationID)
		if err != nil {
			return err
		}

		if err := conv.CanSend(cmd.SenderID); err != nil {
			return err
		}

		msg, err := domain.NewMessage(
			uuid.NewString(),
			cmd.ConversationID,
			cmd.SenderID,
			cmd.Text,
			time.Now().UTC(),
		)
		if err != nil {
			return err
		}

		if err := s.repo.InsertMessage(ctx, tx, msg); err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}

		if err := s.emitMessageSent(ctx, tx, msg); err != nil {
			return err
		}

		result = msg
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("message persisted",
		zap.String("message_id", result.ID),
		zap.String("conversation_id", result.ConversationID),
		zap.String("sender_id", result.SenderID),
	)

	return result, nil
}

type messageSentEvent struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Service) emitMessageSent(ctx context.Context, tx *sql.Tx, msg *domain.Message) error {
	payload, err := json.Marshal(messageSentEvent{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Text:           msg.Text,
		CreatedAt:      msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	if err := s.repo.InsertOutbox(ctx, tx, "message", msg.ConversationID, "MESSAGE_SENT", payload); err != nil {
		return fmt.Errorf("failed to save outbox event: %w", err)
	}
	return nil
}
