package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventpass/internal/status"

	"github.com/pocketbase/pocketbase/apis"
)

// apiError maps service errors onto HTTP responses.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrForbidden):
		return apis.NewForbiddenError("You are not allowed to perform this action", nil)

	case errors.Is(err, status.ErrTicketNotFound),
		errors.Is(err, status.ErrGroupNotFound),
		errors.Is(err, status.ErrEventNotFound),
		errors.Is(err, status.ErrJobNotFound),
		errors.Is(err, status.ErrAccessNotFound):
		return apis.NewNotFoundError(err.Error(), nil)

	case errors.Is(err, status.ErrInvalidTransition),
		errors.Is(err, status.ErrSecretAssigned),
		errors.Is(err, status.ErrInvalidBooking),
		errors.Is(err, status.ErrInvalidPayload):
		return apis.NewBadRequestError(err.Error(), nil)

	case errors.Is(err, status.ErrReminderRunning):
		return apis.NewApiError(http.StatusConflict, err.Error(), nil)

	case errors.Is(err, status.ErrRateLimited):
		return apis.NewTooManyRequestsError(err.Error(), nil)
	}

	slog.Error("Request failed", "error", err)
	return apis.NewApiError(http.StatusServiceUnavailable, "Service temporarily unavailable", nil)
}
