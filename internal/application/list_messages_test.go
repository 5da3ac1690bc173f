package application

import (
	"context"
	"testing"
	"time"

	"github.com/furniro/messaging/internal/domain"
)

func TestService_ListMessages_OrderedByCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	s := newTestService(repo)
	conv := seedConversation(t, repo, s)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Inserted out of order on purpose.
	repo.addMessage("m3", conv.ID, "user-a", "third", base.Add(2*time.Second))
	repo.addMessage("m1", conv.ID, "user-a", "first", base)
	repo.addMessage("m2", conv.ID, "user-b", "second", base.Add(time.Second))

	msgs, err := s.ListMessages(ctx, conv.ID, "user-a")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	want := []string{"m1", "m2", "m3"}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(msgs))
	}
	for i, id := range want {
		if msgs[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, msgs[i].ID)
		}
	}
}

func TestService_ListMessages_Forbidden(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	s := newTestService(repo)
	conv := seedConversation(t, repo, s)

	if _, err := s.ListMessages(ctx, conv.ID, "user-c"); err != domain.ErrNotParticipant {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}
}

func TestService_ListConversations_ProfileAnnotation(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	s := newTestService(repo)
	conv := seedConversation(t, repo, s)

	repo.profiles["user-b"] = domain.Profile{
		UserID:    "user-b",
		Name:      "Beatrice",
		AvatarURL: "https://cdn.example.com/b.png",
		Role:      "seller",
	}

	summaries, err := s.ListConversations(ctx, "user-a")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(summaries))
	}
	got := summaries[0]
	if got.ID != conv.ID {
		t.Errorf("expected conversation %s, got %s", conv.ID, got.ID)
	}
	if got.Other.Name != "Beatrice" || got.Other.Role != "seller" {
		t.Errorf("expected counterpart profile annotation, got %+v", got.Other)
	}
}
