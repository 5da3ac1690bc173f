// Package kafka publishes the outbox event stream
// (messaging.message.sent, messaging.conversation.created) for the
// marketplace-side consumers: notifications and analytics.
package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer is the synchronous writer behind the outbox worker. Delivery is
// at-least-once: an event is only marked processed after Publish returns,
// so a crash between publish and mark replays it. Consumers key on the
// aggregate id to deduplicate.
type Producer struct {
	w *kafka.Writer
}

// NewProducer builds a writer that routes by the topic set per message.
// The topic comes from the outbox row's event type, so one writer serves
// every stream.
func NewProducer(brokers []string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Publish writes one event. Key is the aggregate id (conversation or
// message), which with the hash balancer keeps an aggregate's events in
// one partition and therefore in order.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	return p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

// Close flushes buffered writes and releases the connection pool.
func (p *Producer) Close() error { return p.w.Close() }
