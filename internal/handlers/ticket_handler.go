package handlers

import (
	"context"
	"net/http"

	"eventpass/internal/services"
	"eventpass/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

type Booker interface {
	Book(ctx context.Context, owner services.Actor, req services.BookingRequest) (*services.Booking, error)
	SubmitProof(ctx context.Context, owner services.Actor, target services.Target, paymentRef string) ([]*models.Ticket, error)
	ListMine(ctx context.Context, owner services.Actor) ([]*models.Ticket, error)
	Discard(ctx context.Context, owner services.Actor, ticketID string) (int, error)
}

type TicketHandler struct {
	tickets Booker
}

func NewTicketHandler(tickets Booker) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

type holderRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h holderRequest) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&h.Email, validation.Required, is.Email),
	)
}

type bookRequest struct {
	TicketType string          `json:"ticketType"`
	Holders    []holderRequest `json:"holders"`
	Amount     decimal.Decimal `json:"amount"`
	PaymentRef string          `json:"paymentRef"`
}

func (r bookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TicketType, validation.Required, validation.In("solo", "duo", "quad")),
		validation.Field(&r.Holders, validation.Required),
		validation.Field(&r.Amount, validation.By(func(any) error {
			if !r.Amount.IsPositive() {
				return validation.NewError("validation_amount_positive", "must be positive")
			}
			return nil
		})),
	)
}

func (h *TicketHandler) Book(e *core.RequestEvent) error {
	owner, err := actorFrom(e)
	if err != nil {
		return err
	}

	var req bookRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := req.Validate(); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	holders := make([]services.Holder, len(req.Holders))
	for i, hr := range req.Holders {
		holders[i] = services.Holder{Name: hr.Name, Email: hr.Email}
	}

	booking, err := h.tickets.Book(e.Request.Context(), owner, services.BookingRequest{
		TicketType: models.TicketType(req.TicketType),
		Holders:    holders,
		Amount:     req.Amount,
		PaymentRef: req.PaymentRef,
	})
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusCreated, booking)
}

func (h *TicketHandler) SubmitProof(e *core.RequestEvent) error {
	owner, err := actorFrom(e)
	if err != nil {
		return err
	}

	var req struct {
		PaymentRef string `json:"paymentRef"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.PaymentRef == "" {
		return apis.NewBadRequestError("Payment reference required", nil)
	}

	tickets, err := h.tickets.SubmitProof(e.Request.Context(), owner,
		services.Target{TicketID: e.Request.PathValue("id")}, req.PaymentRef)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"tickets": tickets})
}

func (h *TicketHandler) ListMine(e *core.RequestEvent) error {
	owner, err := actorFrom(e)
	if err != nil {
		return err
	}

	tickets, err := h.tickets.ListMine(e.Request.Context(), owner)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, tickets)
}

// Discard removes a rejected booking so the holder can submit a new one.
func (h *TicketHandler) Discard(e *core.RequestEvent) error {
	owner, err := actorFrom(e)
	if err != nil {
		return err
	}

	deleted, err := h.tickets.Discard(e.Request.Context(), owner, e.Request.PathValue("id"))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"deleted": deleted})
}
