package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"eventpass/internal/services"
	"eventpass/internal/status"
	"eventpass/monitoring"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type Redeemer interface {
	Redeem(ctx context.Context, actor services.Actor, payload, eventID string) (*services.ScanResult, error)
}

type ScanHandler struct {
	redemptions Redeemer
	monitor     *monitoring.Monitor
}

func NewScanHandler(redemptions Redeemer, monitor *monitoring.Monitor) *ScanHandler {
	return &ScanHandler{redemptions: redemptions, monitor: monitor}
}

type scanRequest struct {
	Secret  string `json:"secret"`
	EventID string `json:"eventId"`
}

func (r scanRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.EventID, validation.Required),
	)
}

// Scan checks in a ticket. Every business outcome, including an invalid code, is a 200 with a
// status the operator can show; only transient failures are 5xx.
func (h *ScanHandler) Scan(e *core.RequestEvent) error {
	actor, err := actorFrom(e)
	if err != nil {
		return err
	}

	var req scanRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := req.Validate(); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	start := time.Now()
	result, err := h.redemptions.Redeem(e.Request.Context(), actor, req.Secret, req.EventID)
	if err != nil {
		if errors.Is(err, status.ErrForbidden) {
			return apiError(err)
		}
		slog.Error("Scan failed", "event_id", req.EventID, "actor", actor.ID, "error", err)
		h.monitor.TrackScan(req.EventID, string(services.ScanError), time.Since(start))
		return e.JSON(http.StatusServiceUnavailable, &services.ScanResult{
			Status:  services.ScanError,
			Message: "Network or server error",
		})
	}

	h.monitor.TrackScan(req.EventID, string(result.Status), time.Since(start))
	return e.JSON(http.StatusOK, result)
}
