package application

import (
	"context"
	"testing"
	"time"

	"github.com/furniro/messaging/internal/domain"
)

func TestService_CreateOrGetConversation_Idempotency(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	s := newTestService(repo)

	c1, err := s.CreateOrGetConversation(ctx, "user-a", "user-b")
	if err != nil {
		t.Fatalf("failed to create: %v", err)
	}

	// Same pair in reverse order must return the same conversation.
	c2, err := s.CreateOrGetConversation(ctx, "user-b", "user-a")
	if err != nil {
		t.Fatalf("failed on repeat: %v", err)
	}

	if c1.ID != c2.ID {
		t.Errorf("expected same ID for repeated direct chat, got %s != %s", c1.ID, c2.ID)
	}

	if len(repo.convs) != 1 {
		t.Errorf("expected 1 stored conversation, got %d", len(repo.convs))
	}
}

func TestService_CreateOrGetConversation_SelfChatRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestService(newMockRepo())

	if _, err := s.CreateOrGetConversation(ctx, "user-a", "user-a"); err != domain.ErrInvalidParticipants {
		t.Errorf("expected ErrInvalidParticipants, got %v", err)
	}
}

func TestService_CreateOrGetConversation_Concurrent(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	s := newTestService(repo)

	const n = 8
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() {
			conv, err := s.CreateOrGetConversation(ctx, "user-a", "user-b")
			if err != nil {
				ids <- "error: " + err.Error()
				return
			}
			ids <- conv.ID
		}()
	}

	first := <-ids
	for i := 1; i < n; i++ {
		if got := <-ids; got != first {
			t.Errorf("concurrent create diverged: %s != %s", got, first)
		}
	}

	if len(repo.convs) != 1 {
		t.Errorf("expected 1 stored conversation, got %d", len(repo.convs))
	}
}

// A racer that slips past both lookups and loses the insert must still get
// the winner's conversation. The mock aborts the transaction on the unique
// violation like postgres does, so recovery has to happen outside of it.
func TestService_CreateOrGetConversation_LoserRecoversFromInsertRace(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	s := newTestService(repo)

	lookupKey := domain.LookupKey("user-a", "user-b")
	winner, err := domain.NewConversation("winner-id", "user-a", "user-b", time.Now().UTC())
	if err != nil {
		t.Fatalf("winner setup: %v", err)
	}

	// The winner commits between the loser's in-tx lookup and its insert.
	installed := false
	repo.beforeInsertConversation = func() {
		if !installed {
			installed = true
			repo.addConversation(winner, lookupKey)
		}
	}

	conv, err := s.CreateOrGetConversation(ctx, "user-a", "user-b")
	if err != nil {
		t.Fatalf("loser should recover, got %v", err)
	}
	if conv.ID != "winner-id" {
		t.Errorf("expected winner's conversation, got %s", conv.ID)
	}
	if len(repo.convs) != 1 {
		t.Errorf("expected 1 stored conversation, got %d", len(repo.convs))
	}
}

func TestService_CreateOrGetConversation_EmitsOutboxEvent(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	s := newTestService(repo)

	if _, err := s.CreateOrGetConversation(ctx, "user-a", "user-b"); err != nil {
		t.Fatalf("failed to create: %v", err)
	}

	if len(repo.outbox) != 1 || repo.outbox[0] != "CONVERSATION_CREATED" {
		t.Errorf("expected CONVERSATION_CREATED outbox event, got %v", repo.outbox)
	}
}
