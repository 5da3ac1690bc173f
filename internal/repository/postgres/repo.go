package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/furniro/messaging/internal/domain"
)

type Repository struct {
	DB *sql.DB
}

type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *Repository) getter(tx *sql.Tx) queryable {
	if tx != nil {
		return tx
	}
	return r.DB
}

func (r *Repository) InsertConversation(
	ctx context.Context,
	tx *sql.Tx,
	conv *domain.Conversation,
	lookupKey string,
) error {
	q := r.getter(tx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO conversations (id, participant_a, participant_b, lookup_key, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, conv.ID, conv.ParticipantA, conv.ParticipantB, lookupKey, conv.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		// lookup_key unique violation: a concurrent creator won. The
		// surrounding transaction is aborted at this point, so the caller
		// must refetch outside of it.
		return domain.ErrConversationExists
	}
	return err
}

func (r *Repository) GetConversation(
	ctx context.Context,
	tx *sql.Tx,
	id string,
) (*domain.Conversation, error) {
	q := r.getter(tx)
	row := q.QueryRowContext(ctx, `
		SELECT id, participant_a, participant_b, created_at
		FROM conversations
		WHERE id = $1
	`, id)
	return scanConversation(row)
}

func (r *Repository) GetConversationByLookupKey(
	ctx context.Context,
	tx *sql.Tx,
	key string,
) (*domain.Conversation, error) {
	q := r.getter(tx)
	row := q.QueryRowContext(ctx, `
		SELECT id, participant_a, participant_b, created_at
		FROM conversations
		WHERE lookup_key = $1
	`, key)
	return scanConversation(row)
}

func scanConversation(row *sql.Row) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := row.Scan(&conv.ID, &conv.ParticipantA, &conv.ParticipantB, &conv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversationsByUser joins the counterpart's profile at read time so
// the caller gets display fields without a second round trip.
func (r *Repository) ListConversationsByUser(
	ctx context.Context,
	userID string,
) ([]*domain.ConversationSummary, error) {

	rows, err := r.DB.QueryContext(ctx, `
		SELECT c.id, c.participant_a, c.participant_b, c.created_at,
		       COALESCE(p.user_id, ''), COALESCE(p.name, ''),
		       COALESCE(p.avatar_url, ''), COALESCE(p.role, '')
		FROM conversations c
		LEFT JOIN profiles p
		  ON p.user_id = CASE WHEN c.participant_a = $1 THEN c.participant_b ELSE c.participant_a END
		WHERE c.participant_a = $1 OR c.participant_b = $1
		ORDER BY c.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*domain.ConversationSummary
	for rows.Next() {
		var s domain.ConversationSummary
		if err := rows.Scan(
			&s.ID,
			&s.ParticipantA,
			&s.ParticipantB,
			&s.CreatedAt,
			&s.Other.UserID,
			&s.Other.Name,
			&s.Other.AvatarURL,
			&s.Other.Role,
		); err != nil {
			return nil, err
		}
		if s.Other.UserID == "" {
			s.Other.UserID = s.Conversation.Other(userID)
		}
		summaries = append(summaries, &s)
	}

	return summaries, rows.Err()
}

func (r *Repository) InsertMessage(
	ctx context.Context,
	tx *sql.Tx,
	msg *domain.Message,
) error {
	q := r.getter(tx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.ID, msg.ConversationID, msg.SenderID, msg.Text, msg.CreatedAt)
	return err
}

func (r *Repository) GetMessage(
	ctx context.Context,
	id string,
) (*domain.Message, error) {
	var msg domain.Message
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, text, created_at
		FROM messages
		WHERE id = $1
	`, id).Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Text, &msg.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *Repository) ListMessages(
	ctx context.Context,
	convID string,
) ([]*domain.Message, error) {

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, text, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`, convID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderID,
			&msg.Text,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

func (r *Repository) InsertOutbox(
	ctx context.Context,
	tx *sql.Tx,
	aggregateType, aggregateID, eventType string,
	payload []byte,
) error {
	q := r.getter(tx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`, aggregateType, aggregateID, eventType, payload)
	return err
}
