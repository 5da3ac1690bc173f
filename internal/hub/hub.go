package hub

import (
	"sync"
)

// Hub maps conversation rooms to live sessions. A session subscribes to at
// most one room at a time; joining a new room leaves the previous one.
// Joins, leaves, and publishes race across connections, so all map access
// is behind the lock.
type Hub struct {
	mu          sync.RWMutex
	rooms       map[string]map[*Session]struct{}
	sessionRoom map[*Session]string
}

func New() *Hub {
	return &Hub{
		rooms:       make(map[string]map[*Session]struct{}),
		sessionRoom: make(map[*Session]string),
	}
}

func (h *Hub) Join(s *Session, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(s)

	if h.rooms[conversationID] == nil {
		h.rooms[conversationID] = make(map[*Session]struct{})
	}
	h.rooms[conversationID][s] = struct{}{}
	h.sessionRoom[s] = conversationID
}

func (h *Hub) Leave(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(s)
}

func (h *Hub) leaveLocked(s *Session) {
	room, ok := h.sessionRoom[s]
	if !ok {
		return
	}
	delete(h.sessionRoom, s)
	if members := h.rooms[room]; members != nil {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Room returns the conversation a session is currently subscribed to.
func (h *Hub) Room(s *Session) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.sessionRoom[s]
	return room, ok
}

// Publish broadcasts payload to every subscriber of the conversation's
// room except origin. Origin may be nil to reach everyone. Returns the
// number of sessions the payload was queued for.
func (h *Hub) Publish(conversationID string, payload []byte, origin *Session) int {
	h.mu.RLock()
	members := make([]*Session, 0, len(h.rooms[conversationID]))
	for s := range h.rooms[conversationID] {
		if s == origin {
			continue
		}
		members = append(members, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range members {
		if s.TrySend(payload) {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) CloseAll() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessionRoom))
	for s := range h.sessionRoom {
		sessions = append(sessions, s)
	}
	h.rooms = make(map[string]map[*Session]struct{})
	h.sessionRoom = make(map[*Session]string)
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
