package outbox

import (
	"context"
	"database/sql"
	"time"

	"github.com/furniro/messaging/internal/kafka"
	"github.com/furniro/messaging/internal/observability"
	"go.uber.org/zap"
)

// Worker drains the outbox table into Kafka so marketplace-side consumers
// (notifications, analytics) see message traffic without coupling to this
// process. Events are published at-least-once.
type Worker struct {
	DB        *sql.DB
	Producer  *kafka.Producer
	BatchSize int
	PollDelay time.Duration
}

func (w *Worker) Start(ctx context.Context) {
	log := observability.GetLogger(ctx)
	log.Info("outbox worker started")
	for {
		select {
		case <-ctx.Done():
			log.Info("outbox worker stopping")
			return
		default:
			if err := w.processBatch(ctx); err != nil {
				log.Warn("outbox worker error", zap.Error(err))
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) error {
	tx, err := w.DB.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`, w.BatchSize)

	if err != nil {
		tx.Rollback()
		return err
	}
	defer rows.Close()

	type event struct {
		id          int64
		aggregateID string
		eventType   string
		payload     []byte
	}

	var events []event
	for rows.Next() {
		var e event
		if err := rows.Scan(&e.id, &e.aggregateID, &e.eventType, &e.payload); err != nil {
			tx.Rollback()
			return err
		}
		events = append(events, e)
	}

	if len(events) == 0 {
		tx.Rollback()
		time.Sleep(w.PollDelay)
		return nil
	}

	log := observability.GetLogger(ctx)
	for _, e := range events {
		topic := ""
		switch e.eventType {
		case "MESSAGE_SENT":
			topic = "messaging.message.sent"
		case "CONVERSATION_CREATED":
			topic = "messaging.conversation.created"
		default:
			log.Warn("unknown event type in outbox", zap.String("event_type", e.eventType))
			continue
		}

		if err := w.Producer.Publish(ctx, topic, []byte(e.aggregateID), e.payload); err != nil {
			tx.Rollback()
			return err
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE outbox_events
			SET processed_at = NOW()
			WHERE id = $1
		`, e.id)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
