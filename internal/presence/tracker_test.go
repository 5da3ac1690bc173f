package presence

import (
	"context"
	"testing"
	"time"
)

type memoryStore struct {
	beats map[string]time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{beats: make(map[string]time.Time)}
}

func (m *memoryStore) Touch(ctx context.Context, userID string, at time.Time) error {
	m.beats[userID] = at
	return nil
}

func (m *memoryStore) ActiveSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	var out []string
	for id, at := range m.beats {
		if at.After(cutoff) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *memoryStore) TrimBefore(ctx context.Context, cutoff time.Time) error {
	for id, at := range m.beats {
		if !at.After(cutoff) {
			delete(m.beats, id)
		}
	}
	return nil
}

func TestTracker_TTLWindow(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	tr := NewTracker(store, 45*time.Second)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := t0
	tr.now = func() time.Time { return clock }

	if err := tr.Heartbeat(ctx, "user-a"); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	// 30s later: still inside the window (one missed beat tolerated).
	clock = t0.Add(30 * time.Second)
	active, err := tr.ActiveUsers(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 1 || active[0] != "user-a" {
		t.Errorf("expected user-a active at t+30s, got %v", active)
	}

	// 90s later without further heartbeats: aged out.
	clock = t0.Add(90 * time.Second)
	active, err = tr.ActiveUsers(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected empty active set at t+90s, got %v", active)
	}
}

// A heartbeat exactly one TTL old is stale: active means
// now - lastHeartbeatAt < ttl, strictly.
func TestTracker_TTLBoundaryIsExclusive(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(newMemoryStore(), 45*time.Second)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := t0
	tr.now = func() time.Time { return clock }

	tr.Heartbeat(ctx, "user-a")

	clock = t0.Add(45 * time.Second)
	active, err := tr.ActiveUsers(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("heartbeat exactly TTL old must be inactive, got %v", active)
	}
}

func TestTracker_HeartbeatRefreshesWindow(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(newMemoryStore(), 45*time.Second)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := t0
	tr.now = func() time.Time { return clock }

	tr.Heartbeat(ctx, "user-a")
	clock = t0.Add(30 * time.Second)
	tr.Heartbeat(ctx, "user-a")
	clock = t0.Add(60 * time.Second)

	ok, err := tr.IsActive(ctx, "user-a")
	if err != nil {
		t.Fatalf("isActive: %v", err)
	}
	if !ok {
		t.Error("refreshed heartbeat should keep user-a active at t+60s")
	}
}
