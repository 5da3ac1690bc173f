package presence

import (
	"context"
	"time"
)

// Store is the shared heartbeat record keeper. The redis implementation is
// the production one; tests swap in an in-memory store.
type Store interface {
	// Touch records a heartbeat for userID at the given time.
	Touch(ctx context.Context, userID string, at time.Time) error
	// ActiveSince returns user IDs with a heartbeat at or after cutoff.
	ActiveSince(ctx context.Context, cutoff time.Time) ([]string, error)
	// TrimBefore drops records older than cutoff.
	TrimBefore(ctx context.Context, cutoff time.Time) error
}

// Tracker maintains the time-bounded active set. A user is active iff their
// last heartbeat is younger than the TTL; records are never deleted
// explicitly, they age out of the window.
type Tracker struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

const DefaultTTL = 45 * time.Second

func NewTracker(store Store, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (t *Tracker) Heartbeat(ctx context.Context, userID string) error {
	return t.store.Touch(ctx, userID, t.now())
}

func (t *Tracker) ActiveUsers(ctx context.Context) ([]string, error) {
	cutoff := t.now().Add(-t.ttl)

	// Opportunistic trim keeps the set from growing unbounded; failures
	// here don't affect the answer.
	_ = t.store.TrimBefore(ctx, cutoff)

	return t.store.ActiveSince(ctx, cutoff)
}

func (t *Tracker) IsActive(ctx context.Context, userID string) (bool, error) {
	active, err := t.ActiveUsers(ctx)
	if err != nil {
		return false, err
	}
	for _, id := range active {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}
