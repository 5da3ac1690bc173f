package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/furniro/messaging/internal/domain"
	"github.com/furniro/messaging/internal/observability"
	"go.uber.org/zap"
)

// DomainError maps the error taxonomy onto HTTP statuses. Anything outside
// the taxonomy is logged and reported as a 500 without leaking details.
func DomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrConversationNotFound),
		errors.Is(err, domain.ErrMessageNotFound):
		WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrNotParticipant):
		WriteError(w, http.StatusForbidden, "forbidden", "access denied")
	case errors.Is(err, domain.ErrInvalidParticipants),
		errors.Is(err, domain.ErrInvalidMessage),
		errors.Is(err, domain.ErrMessageTooLarge),
		errors.Is(err, domain.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	default:
		observability.GetLogger(context.Background()).Error("internal_error", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
