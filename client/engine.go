package client

import (
	"sort"
	"sync"
	"time"

	"github.com/furniro/messaging/wire"
)

// selfSentTTL bounds the "recently self-sent" set. Id-dedup alone already
// makes echoes harmless; this set only distinguishes "my own message came
// back" from "a new incoming message" for unread accounting.
const selfSentTTL = 5 * time.Second

// Engine merges the three message sources — initial/periodic REST
// snapshots, pushed socket events, and the client's own optimistic sends —
// into one deduplicated, ordered view per conversation, and keeps the
// unread counts. Safe for concurrent use from push, poll, and send paths:
// every mutation is an id-keyed upsert behind the lock.
type Engine struct {
	mu          sync.Mutex
	localUserID string
	views       map[string]*conversationView
	focused     string
	selfSent    map[string]time.Time
	now         func() time.Time
}

type conversationView struct {
	messages []wire.Message
	seen     map[string]struct{}
	unread   int
}

func NewEngine(localUserID string) *Engine {
	return &Engine{
		localUserID: localUserID,
		views:       make(map[string]*conversationView),
		selfSent:    make(map[string]time.Time),
		now:         time.Now,
	}
}

func (e *Engine) view(conversationID string) *conversationView {
	v, ok := e.views[conversationID]
	if !ok {
		v = &conversationView{seen: make(map[string]struct{})}
		e.views[conversationID] = v
	}
	return v
}

// Seed registers a conversation with a zero unread count. Unread state is
// session-scoped: it resets on reload.
func (e *Engine) Seed(conversationIDs ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range conversationIDs {
		e.view(id)
	}
}

// Apply reconciles one incoming message, from any channel. Duplicate ids
// are no-ops; position follows created_at, not arrival order.
func (e *Engine) Apply(m wire.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := e.view(m.ConversationID)

	if _, dup := v.seen[m.ID]; dup {
		return
	}
	v.seen[m.ID] = struct{}{}
	v.insert(m)

	if m.SenderID == e.localUserID {
		// The user's own message, accounted for at send time.
		e.expireSelfSentLocked()
		delete(e.selfSent, m.ID)
		return
	}

	if m.ConversationID != e.focused {
		v.unread++
	}
}

// ApplyAll reconciles a REST snapshot through the same path as pushes.
func (e *Engine) ApplyAll(msgs []wire.Message) {
	for _, m := range msgs {
		e.Apply(m)
	}
}

// RecordSend registers the result of a successful optimistic send: the
// message is inserted immediately and remembered as recently self-sent so
// a near-term echo is recognized.
func (e *Engine) RecordSend(m wire.Message) {
	e.mu.Lock()
	v := e.view(m.ConversationID)
	if _, dup := v.seen[m.ID]; !dup {
		v.seen[m.ID] = struct{}{}
		v.insert(m)
	}
	e.expireSelfSentLocked()
	e.selfSent[m.ID] = e.now()
	e.mu.Unlock()
}

// IsRecentlySelfSent reports whether id was sent by this client within the
// expiry window. Purely an optimization hook for UIs; correctness never
// depends on it.
func (e *Engine) IsRecentlySelfSent(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expireSelfSentLocked()
	_, ok := e.selfSent[id]
	return ok
}

func (e *Engine) expireSelfSentLocked() {
	cutoff := e.now().Add(-selfSentTTL)
	for id, at := range e.selfSent {
		if at.Before(cutoff) {
			delete(e.selfSent, id)
		}
	}
}

// MarkFocused opens a conversation: its unread count drops to zero and
// stays zero while focused. Any previously focused conversation is
// unfocused.
func (e *Engine) MarkFocused(conversationID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.focused = conversationID
	if conversationID != "" {
		e.view(conversationID).unread = 0
	}
}

// Unfocus clears focus entirely (e.g. widget closed).
func (e *Engine) Unfocus() {
	e.MarkFocused("")
}

func (e *Engine) Focused() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focused
}

// Messages returns the ordered, deduplicated view of a conversation.
func (e *Engine) Messages(conversationID string) []wire.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.views[conversationID]
	if !ok {
		return nil
	}
	out := make([]wire.Message, len(v.messages))
	copy(out, v.messages)
	return out
}

func (e *Engine) Unread(conversationID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.views[conversationID]
	if !ok {
		return 0
	}
	return v.unread
}

// TotalUnread is the badge count across all conversations.
func (e *Engine) TotalUnread() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, v := range e.views {
		total += v.unread
	}
	return total
}

// insert places m at the position implied by created_at (id as tiebreak),
// appending when it is the newest.
func (v *conversationView) insert(m wire.Message) {
	i := sort.Search(len(v.messages), func(i int) bool {
		other := v.messages[i]
		if !other.CreatedAt.Equal(m.CreatedAt) {
			return other.CreatedAt.After(m.CreatedAt)
		}
		return other.ID > m.ID
	})
	v.messages = append(v.messages, wire.Message{})
	copy(v.messages[i+1:], v.messages[i:])
	v.messages[i] = m
}
