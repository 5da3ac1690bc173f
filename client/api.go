package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/furniro/messaging/wire"
)

// API is the REST surface of the messaging server.
type API struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPI(baseURL, token string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &API{baseURL: baseURL, token: token, http: httpClient}
}

func (a *API) ListConversations(ctx context.Context) ([]wire.Conversation, error) {
	var out []wire.Conversation
	if err := a.do(ctx, http.MethodGet, "/api/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) CreateConversation(ctx context.Context, recipientID string) (*wire.Conversation, error) {
	body := map[string]string{"recipient_id": recipientID}
	var out wire.Conversation
	if err := a.do(ctx, http.MethodPost, "/api/conversations", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) ListMessages(ctx context.Context, conversationID string) ([]wire.Message, error) {
	var out []wire.Message
	path := "/api/conversations/" + conversationID + "/messages"
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) SendMessage(ctx context.Context, conversationID, text string) (*wire.Message, error) {
	body := map[string]string{"conversation_id": conversationID, "text": text}
	var out wire.Message
	if err := a.do(ctx, http.MethodPost, "/api/messages", body, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return &out, nil
}

func (a *API) Heartbeat(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/api/presence/heartbeat", nil, nil)
}

func (a *API) ActiveUsers(ctx context.Context) ([]string, error) {
	var out struct {
		Active []string `json:"active"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/presence/active", nil, &out); err != nil {
		return nil, err
	}
	return out.Active, nil
}

func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func statusError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		if body.Message != "" {
			return fmt.Errorf("%w: %s", ErrInvalidMessage, body.Message)
		}
		return ErrInvalidMessage
	default:
		return fmt.Errorf("http %d: %s", resp.StatusCode, body.Message)
	}
}
