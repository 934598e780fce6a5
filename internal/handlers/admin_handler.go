package handlers

import (
	"context"
	"fmt"
	"net/http"

	"eventpass/internal/services"
	"eventpass/models"
	"eventpass/monitoring"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type Decider interface {
	Approve(ctx context.Context, actor services.Actor, target services.Target) (*services.Decision, error)
	Reject(ctx context.Context, actor services.Actor, target services.Target, reason string) (*services.Decision, error)
}

type BandIssuer interface {
	Issue(ctx context.Context, actor services.Actor, target services.Target) ([]services.BandResult, error)
}

type AdminHandler struct {
	app       core.App
	approvals Decider
	bands     BandIssuer
	monitor   *monitoring.Monitor
	appURL    string
}

func NewAdminHandler(app core.App, approvals Decider, bands BandIssuer, monitor *monitoring.Monitor, appURL string) *AdminHandler {
	return &AdminHandler{
		app:       app,
		approvals: approvals,
		bands:     bands,
		monitor:   monitor,
		appURL:    appURL,
	}
}

type decisionRequest struct {
	TicketID string `json:"ticketId"`
	GroupID  string `json:"groupId"`
	Reason   string `json:"reason"`
}

func (r decisionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TicketID, validation.Required.When(r.GroupID == "").Error("ticketId or groupId is required")),
		validation.Field(&r.GroupID, validation.Empty.When(r.TicketID != "").Error("use either ticketId or groupId")),
		validation.Field(&r.Reason, validation.Length(0, 500)),
	)
}

func (r decisionRequest) target() services.Target {
	return services.Target{TicketID: r.TicketID, GroupID: r.GroupID}
}

func bindDecision(e *core.RequestEvent) (decisionRequest, error) {
	var req decisionRequest
	if err := e.BindBody(&req); err != nil {
		return req, apis.NewBadRequestError("Invalid request", err)
	}
	if err := req.Validate(); err != nil {
		return req, apis.NewBadRequestError("Invalid request", err)
	}
	return req, nil
}

// Approve issues the ticket, or every ticket of its booking group.
func (h *AdminHandler) Approve(e *core.RequestEvent) error {
	actor, err := actorFrom(e)
	if err != nil {
		return err
	}
	req, err := bindDecision(e)
	if err != nil {
		return err
	}

	decision, err := h.approvals.Approve(e.Request.Context(), actor, req.target())
	if err != nil {
		return apiError(err)
	}

	h.monitor.TrackDecision(string(decision.Status), len(decision.Tickets))
	return e.JSON(http.StatusOK, decision)
}

// Reject marks the ticket, or its whole booking group, as rejected.
func (h *AdminHandler) Reject(e *core.RequestEvent) error {
	actor, err := actorFrom(e)
	if err != nil {
		return err
	}
	req, err := bindDecision(e)
	if err != nil {
		return err
	}

	decision, err := h.approvals.Reject(e.Request.Context(), actor, req.target(), req.Reason)
	if err != nil {
		return apiError(err)
	}

	h.monitor.TrackDecision(string(decision.Status), len(decision.Tickets))
	return e.JSON(http.StatusOK, decision)
}

// IssueBands stamps wristbands. Repeating the call returns the original timestamps.
func (h *AdminHandler) IssueBands(e *core.RequestEvent) error {
	actor, err := actorFrom(e)
	if err != nil {
		return err
	}
	req, err := bindDecision(e)
	if err != nil {
		return err
	}

	results, err := h.bands.Issue(e.Request.Context(), actor, req.target())
	if err != nil {
		return apiError(err)
	}

	issued := 0
	for _, r := range results {
		if !r.AlreadyIssued {
			issued++
		}
	}
	h.monitor.TrackWristbands(issued)

	return e.JSON(http.StatusOK, map[string]any{"tickets": results})
}

// ProofURL returns a short-lived link to the protected payment proof of a ticket.
func (h *AdminHandler) ProofURL(e *core.RequestEvent) error {
	if _, err := actorFrom(e); err != nil {
		return err
	}

	id := e.Request.PathValue("id")
	if id == "" {
		return apis.NewBadRequestError("Ticket ID required", nil)
	}

	record, err := h.app.FindRecordById("tickets", id)
	if err != nil {
		return apis.NewNotFoundError("Ticket not found", nil)
	}

	filename := record.GetString("payment_proof")
	if filename == "" {
		return apis.NewNotFoundError("No payment proof uploaded", nil)
	}

	token, err := e.Auth.NewFileToken()
	if err != nil {
		return apis.NewBadRequestError("Failed to sign file access", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ticketId":   record.Id,
		"status":     models.Status(record.GetString("status")),
		"paymentRef": record.GetString("payment_ref"),
		"url": fmt.Sprintf("%s/api/files/%s/%s/%s?token=%s",
			h.appURL, record.Collection().Id, record.Id, filename, token),
	})
}
