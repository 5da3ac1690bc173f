package hub

import (
	"testing"
)

func TestSession_TrySendAfterClose(t *testing.T) {
	s := NewSession("s1", "user-a", nil)
	s.Close()

	if s.TrySend([]byte("x")) {
		t.Error("TrySend must fail on a closed session")
	}

	select {
	case <-s.Done():
	default:
		t.Error("Done channel should be closed")
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s := NewSession("s1", "user-a", nil)
	s.Close()
	s.Close() // must not panic on double close
}

func TestSession_BackpressureDisconnects(t *testing.T) {
	s := NewSession("s1", "user-a", nil)

	for i := 0; i < SendQueueSize; i++ {
		if !s.TrySend([]byte("x")) {
			t.Fatalf("send %d should fit in the queue", i)
		}
	}

	// Queue full and no writer draining it: the session must drop.
	if s.TrySend([]byte("overflow")) {
		t.Error("overflowing send should fail")
	}

	select {
	case <-s.Done():
	default:
		t.Error("overflow should close the session")
	}
}
