package handlers

import (
	"context"
	"net/http"

	"eventpass/internal/services"
	"eventpass/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type ReminderRunner interface {
	Start(ctx context.Context, actor services.Actor, req services.ReminderRequest) (*services.ReminderJob, error)
	Job(ctx context.Context, actor services.Actor, id string) (*services.ReminderJob, error)
}

type ReminderHandler struct {
	reminders ReminderRunner
}

func NewReminderHandler(reminders ReminderRunner) *ReminderHandler {
	return &ReminderHandler{reminders: reminders}
}

type reminderRequest struct {
	EventID  string   `json:"eventId"`
	Statuses []string `json:"statuses"`
	Subject  string   `json:"subject"`
	Body     string   `json:"body"`
}

func (r reminderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Subject, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Body, validation.Required),
		validation.Field(&r.Statuses, validation.Each(validation.By(func(v any) error {
			_, err := models.ParseStatus(v.(string))
			return err
		}))),
	)
}

// Start queues a bulk reminder and returns the job to poll.
func (h *ReminderHandler) Start(e *core.RequestEvent) error {
	actor, err := actorFrom(e)
	if err != nil {
		return err
	}

	var req reminderRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := req.Validate(); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	statuses := make([]models.Status, len(req.Statuses))
	for i, s := range req.Statuses {
		statuses[i] = models.Status(s)
	}

	job, err := h.reminders.Start(e.Request.Context(), actor, services.ReminderRequest{
		EventID:  req.EventID,
		Statuses: statuses,
		Subject:  req.Subject,
		Body:     req.Body,
	})
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusAccepted, job)
}

func (h *ReminderHandler) Job(e *core.RequestEvent) error {
	actor, err := actorFrom(e)
	if err != nil {
		return err
	}

	job, err := h.reminders.Job(e.Request.Context(), actor, e.Request.PathValue("jobId"))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, job)
}
