package application

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/furniro/messaging/internal/domain"
	"go.uber.org/zap"
)

// errTxAborted mirrors postgres: once a statement in a transaction fails,
// every further statement in it fails until rollback.
var errTxAborted = errors.New("pq: current transaction is aborted, commands ignored until end of transaction block")

type mockTransactor struct{}

func (m *mockTransactor) WithTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return fn(ctx, new(sql.Tx))
}

// mockRepo is an in-memory Repository for service tests.
type mockRepo struct {
	mu       sync.Mutex
	convs    map[string]*domain.Conversation
	byLookup map[string]string
	messages map[string]*domain.Message
	profiles map[string]domain.Profile
	outbox   []string
	aborted  map[*sql.Tx]struct{}

	insertMessageErr error

	// beforeInsertConversation runs before the duplicate check, outside the
	// lock; tests use it to sneak in a racing winner.
	beforeInsertConversation func()
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		convs:    make(map[string]*domain.Conversation),
		byLookup: make(map[string]string),
		messages: make(map[string]*domain.Message),
		profiles: make(map[string]domain.Profile),
		aborted:  make(map[*sql.Tx]struct{}),
	}
}

func (m *mockRepo) txUsable(tx *sql.Tx) error {
	if tx == nil {
		return nil
	}
	if _, bad := m.aborted[tx]; bad {
		return errTxAborted
	}
	return nil
}

func newTestService(repo *mockRepo) *Service {
	return New(repo, &mockTransactor{}, zap.NewNop())
}

func (m *mockRepo) InsertConversation(ctx context.Context, tx *sql.Tx, conv *domain.Conversation, lookupKey string) error {
	if m.beforeInsertConversation != nil {
		m.beforeInsertConversation()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.txUsable(tx); err != nil {
		return err
	}
	if _, exists := m.byLookup[lookupKey]; exists {
		if tx != nil {
			m.aborted[tx] = struct{}{}
		}
		return domain.ErrConversationExists
	}
	m.convs[conv.ID] = conv
	m.byLookup[lookupKey] = conv.ID
	return nil
}

func (m *mockRepo) GetConversation(ctx context.Context, tx *sql.Tx, id string) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.txUsable(tx); err != nil {
		return nil, err
	}
	conv, ok := m.convs[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return conv, nil
}

func (m *mockRepo) GetConversationByLookupKey(ctx context.Context, tx *sql.Tx, key string) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.txUsable(tx); err != nil {
		return nil, err
	}
	id, ok := m.byLookup[key]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return m.convs[id], nil
}

func (m *mockRepo) ListConversationsByUser(ctx context.Context, userID string) ([]*domain.ConversationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ConversationSummary
	for _, c := range m.convs {
		if !c.HasParticipant(userID) {
			continue
		}
		s := &domain.ConversationSummary{Conversation: *c}
		s.Other = m.profiles[c.Other(userID)]
		if s.Other.UserID == "" {
			s.Other.UserID = c.Other(userID)
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *mockRepo) InsertMessage(ctx context.Context, tx *sql.Tx, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.txUsable(tx); err != nil {
		return err
	}
	if m.insertMessageErr != nil {
		if tx != nil {
			m.aborted[tx] = struct{}{}
		}
		return m.insertMessageErr
	}
	m.messages[msg.ID] = msg
	return nil
}

func (m *mockRepo) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	return msg, nil
}

func (m *mockRepo) ListMessages(ctx context.Context, convID string) ([]*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Message
	for _, msg := range m.messages {
		if msg.ConversationID == convID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (m *mockRepo) InsertOutbox(ctx context.Context, tx *sql.Tx, aggregateType, aggregateID, eventType string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.txUsable(tx); err != nil {
		return err
	}
	m.outbox = append(m.outbox, eventType)
	return nil
}

func (m *mockRepo) addConversation(conv *domain.Conversation, lookupKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs[conv.ID] = conv
	m.byLookup[lookupKey] = conv.ID
}

func (m *mockRepo) addMessage(id, convID, senderID, text string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[id] = &domain.Message{
		ID:             id,
		ConversationID: convID,
		SenderID:       senderID,
		Text:           text,
		CreatedAt:      at,
	}
}
