package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/furniro/messaging/wire"
)

type fakeAPI struct {
	mu sync.Mutex

	conversations []wire.Conversation
	messages      map[string][]wire.Message

	sendResult *wire.Message
	sendErr    error
	listErr    error

	listCalls      map[string]int
	heartbeatCalls int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		messages:  make(map[string][]wire.Message),
		listCalls: make(map[string]int),
	}
}

func (f *fakeAPI) ListConversations(ctx context.Context) ([]wire.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conversations, nil
}

func (f *fakeAPI) ListMessages(ctx context.Context, conversationID string) ([]wire.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls[conversationID]++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.messages[conversationID], nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, conversationID, text string) (*wire.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return f.sendResult, nil
}

func (f *fakeAPI) Heartbeat(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeatCalls++
	return nil
}

func (f *fakeAPI) ActiveUsers(ctx context.Context) ([]string, error) {
	return []string{"bob"}, nil
}

type fakeSocket struct {
	mu        sync.Mutex
	joined    []string
	announced []string
}

func (f *fakeSocket) JoinRoom(conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, conversationID)
	return nil
}

func (f *fakeSocket) AnnounceSend(m wire.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announced = append(f.announced, m.ID)
	return nil
}

func newTestClient(api *fakeAPI, sock *fakeSocket) *Client {
	return New("alice", api, sock, Options{
		PollInterval:      time.Hour,
		HeartbeatInterval: time.Hour,
	})
}

func TestClient_StartSeedsConversations(t *testing.T) {
	api := newFakeAPI()
	api.conversations = []wire.Conversation{{ID: "conv-1"}, {ID: "conv-2"}}
	c := newTestClient(api, &fakeSocket{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))

	assert.Equal(t, 0, c.Engine().TotalUnread())
	assert.Equal(t, 1, api.heartbeatCalls)
}

func TestClient_FocusJoinsRoomAndLoadsHistory(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	api := newFakeAPI()
	api.messages["conv-1"] = []wire.Message{
		msg("m1", "conv-1", "bob", "hey", base),
		msg("m2", "conv-1", "alice", "hi", base.Add(time.Second)),
	}
	sock := &fakeSocket{}
	c := newTestClient(api, sock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Focus(ctx, "conv-1"))

	assert.Equal(t, []string{"conv-1"}, sock.joined)
	assert.Equal(t, []string{"hey", "hi"}, texts(c.Engine().Messages("conv-1")))
	assert.Equal(t, "conv-1", c.Engine().Focused())
	assert.Equal(t, 0, c.Engine().Unread("conv-1"))
}

func TestClient_FocusForbiddenSurfacesError(t *testing.T) {
	api := newFakeAPI()
	api.listErr = ErrForbidden
	c := newTestClient(api, &fakeSocket{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := c.Focus(ctx, "conv-1")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestClient_SendInsertsAndAnnounces(t *testing.T) {
	api := newFakeAPI()
	persisted := msg("m1", "conv-1", "alice", "hello", time.Now().UTC())
	api.sendResult = &persisted
	sock := &fakeSocket{}
	c := newTestClient(api, sock)

	got, err := c.Send(context.Background(), "conv-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)

	assert.Equal(t, []string{"m1"}, sock.announced)
	assert.Len(t, c.Engine().Messages("conv-1"), 1)
	assert.True(t, c.Engine().IsRecentlySelfSent("m1"))
}

func TestClient_SendFailureInsertsNothing(t *testing.T) {
	api := newFakeAPI()
	api.sendErr = ErrSendFailed
	sock := &fakeSocket{}
	c := newTestClient(api, sock)

	_, err := c.Send(context.Background(), "conv-1", "hello")
	assert.ErrorIs(t, err, ErrSendFailed)

	assert.Empty(t, sock.announced)
	assert.Empty(t, c.Engine().Messages("conv-1"))
}

func TestClient_ReconnectRejoinsFocusedAndRefetches(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	api := newFakeAPI()
	sock := &fakeSocket{}
	c := newTestClient(api, sock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Focus(ctx, "conv-1"))

	// A message lands server-side while the socket is down.
	missed := msg("m1", "conv-1", "bob", "missed you", base)
	api.mu.Lock()
	api.messages["conv-1"] = []wire.Message{missed}
	api.mu.Unlock()

	c.HandleReconnect()

	assert.Equal(t, []string{"conv-1", "conv-1"}, sock.joined)
	assert.Equal(t, []string{"missed you"}, texts(c.Engine().Messages("conv-1")))
}

func TestClient_ReconnectWithoutFocusIsNoop(t *testing.T) {
	api := newFakeAPI()
	sock := &fakeSocket{}
	c := newTestClient(api, sock)

	c.HandleReconnect()

	assert.Empty(t, sock.joined)
	assert.Empty(t, api.listCalls)
}

func TestClient_BlurClearsFocus(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(api, &fakeSocket{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Focus(ctx, "conv-1"))
	c.Blur()

	assert.Equal(t, "", c.Engine().Focused())

	// Incoming messages now count as unread again.
	c.HandleMessage(msg("m1", "conv-1", "bob", "hey", time.Now()))
	assert.Equal(t, 1, c.Engine().Unread("conv-1"))
}
