package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/furniro/messaging/wire"
)

// rest is the slice of the API the orchestrator needs.
type rest interface {
	ListConversations(ctx context.Context) ([]wire.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]wire.Message, error)
	SendMessage(ctx context.Context, conversationID, text string) (*wire.Message, error)
	Heartbeat(ctx context.Context) error
	ActiveUsers(ctx context.Context) ([]string, error)
}

// socket is the push channel surface.
type socket interface {
	JoinRoom(conversationID string) error
	AnnounceSend(m wire.Message) error
}

// Options tune the periodic loops.
type Options struct {
	// PollInterval is the focused-conversation re-fetch cadence. Polling
	// runs regardless of transport state, purely as a correctness backstop.
	PollInterval time.Duration
	// HeartbeatInterval drives presence heartbeats.
	HeartbeatInterval time.Duration
}

func (o *Options) defaults() {
	if o.PollInterval == 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.HeartbeatInterval == 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
}

// Client is one live view of the messaging system, as used by a client
// surface (full messages page or floating widget). It owns a
// reconciliation engine and drives the REST and socket channels into it.
type Client struct {
	api    rest
	sock   socket
	engine *Engine
	opts   Options

	mu         sync.Mutex
	pollCancel context.CancelFunc
}

func New(localUserID string, api rest, sock socket, opts Options) *Client {
	opts.defaults()
	return &Client{
		api:    api,
		sock:   sock,
		engine: NewEngine(localUserID),
		opts:   opts,
	}
}

// Engine exposes the reconciled state for rendering.
func (c *Client) Engine() *Engine {
	return c.engine
}

// Bind wires a connection manager's callbacks into this client.
func (c *Client) Bind(conn *Conn) {
	conn.OnMessage = c.HandleMessage
	conn.OnReconnect = c.HandleReconnect
}

// Start seeds the conversation list and begins the heartbeat loop. Read
// failures are swallowed; the next tick retries.
func (c *Client) Start(ctx context.Context) error {
	convs, err := c.api.ListConversations(ctx)
	if err != nil {
		return err
	}
	for _, conv := range convs {
		c.engine.Seed(conv.ID)
	}

	if err := c.api.Heartbeat(ctx); err != nil && errors.Is(err, ErrUnauthorized) {
		return err
	}
	go c.heartbeatLoop(ctx)

	return nil
}

func (c *Client) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = c.api.Heartbeat(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// HandleMessage is the push-channel entry into the reconciliation engine.
func (c *Client) HandleMessage(m wire.Message) {
	c.engine.Apply(m)
}

// HandleReconnect re-joins the focused conversation's room and re-fetches
// its history to close any gap from the disconnected window. The id-dedup
// merge makes the re-fetch safe; no separate catch-up protocol exists.
func (c *Client) HandleReconnect() {
	focused := c.engine.Focused()
	if focused == "" {
		return
	}
	_ = c.sock.JoinRoom(focused)
	c.refetch(context.Background(), focused)
}

// Focus opens a conversation: joins its room, fetches history, zeroes its
// unread count, and starts the polling backstop. The previous
// conversation's polling loop is canceled; its room is left implicitly by
// the room switch.
func (c *Client) Focus(ctx context.Context, conversationID string) error {
	c.engine.MarkFocused(conversationID)

	// Best effort; REST below is the correctness path.
	_ = c.sock.JoinRoom(conversationID)

	msgs, err := c.api.ListMessages(ctx, conversationID)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden) {
			return err
		}
		// Recoverable read failure: the poll loop will retry.
		msgs = nil
	}
	c.engine.ApplyAll(msgs)

	pollCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.pollCancel != nil {
		c.pollCancel()
	}
	c.pollCancel = cancel
	c.mu.Unlock()

	go c.pollLoop(pollCtx, conversationID)
	return nil
}

// Blur closes the conversation view and stops its polling loop. In-flight
// sends are unaffected; their results reconcile into the unfocused state.
func (c *Client) Blur() {
	c.engine.Unfocus()
	c.mu.Lock()
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
	c.mu.Unlock()
}

func (c *Client) pollLoop(ctx context.Context, conversationID string) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.refetch(ctx, conversationID)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) refetch(ctx context.Context, conversationID string) {
	msgs, err := c.api.ListMessages(ctx, conversationID)
	if err != nil {
		// Swallowed: the UI degrades to last known state.
		return
	}
	c.engine.ApplyAll(msgs)
}

// Send performs the optimistic send: REST append first, then local insert
// with the known id, then the advisory socket event for low-latency
// fan-out to the other participant. On REST failure nothing is inserted
// and the error is surfaced for an explicit user retry.
func (c *Client) Send(ctx context.Context, conversationID, text string) (*wire.Message, error) {
	msg, err := c.api.SendMessage(ctx, conversationID, text)
	if err != nil {
		return nil, err
	}

	c.engine.RecordSend(*msg)

	// The origin doesn't need its own echo back; even without origin
	// suppression the id-dedup merge makes the echo a no-op.
	_ = c.sock.AnnounceSend(*msg)

	return msg, nil
}

// ActiveUsers returns the present user IDs for rendering "Active now".
func (c *Client) ActiveUsers(ctx context.Context) ([]string, error) {
	return c.api.ActiveUsers(ctx)
}
