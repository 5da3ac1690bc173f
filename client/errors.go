package client

import "errors"

var (
	// ErrUnauthorized means the credential is missing or invalid; the engine
	// never retries it.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the caller is not part of the conversation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidMessage means empty or over-length text; fix before resend.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrNotFound means the conversation or message does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSendFailed wraps a write-path failure. Sends are never silently
	// queued and retried; the user retries explicitly.
	ErrSendFailed = errors.New("send failed")
)
