package domain

import "errors"

var (
	ErrInvalidParticipants  = errors.New("invalid participants")
	ErrNotParticipant       = errors.New("user not participant")
	ErrInvalidMessage       = errors.New("invalid message")
	ErrConversationExists   = errors.New("conversation already exists")
	ErrMessageTooLarge      = errors.New("message too large")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrInvalidInput         = errors.New("invalid input")
)
