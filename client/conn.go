package client

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/furniro/messaging/wire"
	"github.com/gorilla/websocket"
)

// ConnState is the socket connection state.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
)

// ConnConfig tunes the connection manager.
type ConnConfig struct {
	// URL is the ws:// or wss:// endpoint.
	URL   string
	Token string

	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
}

func (c *ConnConfig) defaults() {
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = time.Second
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = 30 * time.Second
	}
}

// Conn owns the socket lifecycle for a client instance: connect, read,
// reconnect with backoff. It replaces the ambient shared-connection global
// the UI surfaces used to reach for; each surface gets one injected.
type Conn struct {
	cfg ConnConfig

	mu    sync.Mutex
	ws    *websocket.Conn
	state ConnState

	// OnMessage receives every pushed message. OnReconnect fires after a
	// successful re-handshake so the owner can re-join its room and
	// re-fetch history.
	OnMessage   func(wire.Message)
	OnReconnect func()
	OnState     func(ConnState)
}

func NewConn(cfg ConnConfig) *Conn {
	cfg.defaults()
	return &Conn{cfg: cfg, state: StateDisconnected}
}

func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	cb := c.OnState
	c.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

// Run connects and keeps the connection alive until ctx is canceled.
// Transport errors are recoverable: the loop backs off and redials, and
// the REST polling backstop covers the gap.
func (c *Conn) Run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return
		}

		if attempt == 0 {
			c.setState(StateConnecting)
		} else {
			c.setState(StateReconnecting)
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				c.setState(StateDisconnected)
				return
			}
		}

		ws, err := c.dial(ctx)
		if err != nil {
			attempt++
			continue
		}

		c.mu.Lock()
		c.ws = ws
		c.mu.Unlock()
		c.setState(StateConnected)

		if attempt > 0 && c.OnReconnect != nil {
			c.OnReconnect()
		}
		attempt = 1

		c.readLoop(ctx, ws)

		c.mu.Lock()
		c.ws = nil
		c.mu.Unlock()
	}
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", c.cfg.Token)
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	return ws, err
}

func (c *Conn) readLoop(ctx context.Context, ws *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-done:
		}
	}()

	ws.SetPingHandler(func(appData string) error {
		return ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			ws.Close()
			return
		}

		var env wire.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}

		if env.Type != wire.EventReceiveMessage {
			continue
		}
		var msg wire.Message
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			continue
		}
		if c.OnMessage != nil {
			c.OnMessage(msg)
		}
	}
}

func (c *Conn) backoff(attempt int) time.Duration {
	d := float64(c.cfg.ReconnectBaseDelay) * math.Pow(2, float64(attempt-1))
	if d > float64(c.cfg.ReconnectMaxDelay) {
		d = float64(c.cfg.ReconnectMaxDelay)
	}
	// Jitter spreads reconnect storms.
	return time.Duration(d/2 + rand.Float64()*d/2)
}

// JoinRoom subscribes this connection to a conversation's room, leaving
// any previous room.
func (c *Conn) JoinRoom(conversationID string) error {
	return c.send(wire.EventJoinRoom, wire.JoinRoomPayload{ConversationID: conversationID})
}

// AnnounceSend emits the advisory fan-out trigger for an already-persisted
// message.
func (c *Conn) AnnounceSend(m wire.Message) error {
	return c.send(wire.EventSendMessage, wire.SendMessagePayload{
		ConversationID: m.ConversationID,
		MessageID:      m.ID,
	})
}

func (c *Conn) send(eventType string, payload interface{}) error {
	out, err := wire.NewEnvelope(eventType, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		return ErrSendFailed
	}
	return c.ws.WriteMessage(websocket.TextMessage, out)
}
