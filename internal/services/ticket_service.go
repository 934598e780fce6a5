package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"eventpass/internal/status"
	"eventpass/models"

	"github.com/shopspring/decimal"
)

type TicketService struct {
	store TicketStore
}

func NewTicketService(store TicketStore) *TicketService {
	return &TicketService{store: store}
}

type Holder struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type BookingRequest struct {
	TicketType models.TicketType
	Holders    []Holder
	Amount     decimal.Decimal
	PaymentRef string
}

type Booking struct {
	Group   *models.BookingGroup `json:"group,omitempty"`
	Tickets []*models.Ticket     `json:"tickets"`
}

// Book records a purchase. Duo and quad purchases become a booking group with one ticket per holder.
func (s *TicketService) Book(ctx context.Context, owner Actor, req BookingRequest) (*Booking, error) {
	size := req.TicketType.PartySize()
	if size == 0 {
		return nil, fmt.Errorf("%w: unknown ticket type %q", status.ErrInvalidBooking, req.TicketType)
	}
	if len(req.Holders) != size {
		return nil, fmt.Errorf("%w: %s ticket needs %d holders, got %d", status.ErrInvalidBooking, req.TicketType, size, len(req.Holders))
	}

	initial := models.StatusPending
	if strings.TrimSpace(req.PaymentRef) != "" {
		initial = models.StatusPendingVerification
	}

	var group *models.BookingGroup
	if size > 1 {
		group = &models.BookingGroup{
			OwnerID:    owner.ID,
			Type:       req.TicketType,
			Amount:     req.Amount,
			PartySize:  size,
			Status:     initial,
			PaymentRef: req.PaymentRef,
		}
	}

	shares := models.SplitAmount(req.Amount, size)
	tickets := make([]*models.Ticket, size)
	for i, h := range req.Holders {
		tickets[i] = &models.Ticket{
			OwnerID:    owner.ID,
			HolderName: strings.TrimSpace(h.Name),
			Email:      strings.TrimSpace(h.Email),
			Type:       req.TicketType,
			Amount:     shares[i],
			Status:     initial,
			PaymentRef: req.PaymentRef,
		}
	}

	if err := s.store.CreateBooking(ctx, group, tickets); err != nil {
		return nil, fmt.Errorf("store.CreateBooking -> %w", err)
	}

	slog.Info("Booking created", "owner", owner.ID, "type", req.TicketType, "status", initial)

	return &Booking{Group: group, Tickets: tickets}, nil
}

// SubmitProof moves the owner's pending tickets to pending_verification.
func (s *TicketService) SubmitProof(ctx context.Context, owner Actor, target Target, paymentRef string) ([]*models.Ticket, error) {
	tickets, groupID, err := resolveTargets(ctx, s.store, target)
	if err != nil {
		return nil, err
	}

	updates := make([]models.TicketUpdate, len(tickets))
	for i, t := range tickets {
		if t.OwnerID != owner.ID {
			return nil, status.ErrForbidden
		}
		if !models.CanTransition(t.Status, models.StatusPendingVerification) {
			return nil, fmt.Errorf("ticket %s is %s: %w", t.ID, t.Status, status.ErrInvalidTransition)
		}
		updates[i] = models.TicketUpdate{
			ID:         t.ID,
			Status:     models.StatusPendingVerification,
			PaymentRef: paymentRef,
		}
	}

	if err := s.store.UpdateTickets(ctx, groupID, models.StatusPendingVerification, updates); err != nil {
		return nil, fmt.Errorf("store.UpdateTickets -> %w", err)
	}

	for _, t := range tickets {
		t.Status = models.StatusPendingVerification
		t.PaymentRef = paymentRef
	}
	return tickets, nil
}

// ListMine returns the owner's tickets. Secrets are only exposed on paid tickets.
func (s *TicketService) ListMine(ctx context.Context, owner Actor) ([]*models.Ticket, error) {
	tickets, err := s.store.ListOwnerTickets(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("store.ListOwnerTickets -> %w", err)
	}

	for _, t := range tickets {
		if t.Status != models.StatusPaid {
			t.Secret = ""
		}
	}
	return tickets, nil
}

// Discard deletes a rejected purchase, including its booking group, so the owner can start over.
func (s *TicketService) Discard(ctx context.Context, owner Actor, ticketID string) (int, error) {
	ticket, err := s.store.FindTicket(ctx, ticketID)
	if err != nil {
		return 0, err
	}
	if ticket.OwnerID != owner.ID {
		return 0, status.ErrForbidden
	}
	if ticket.Status != models.StatusRejected {
		return 0, fmt.Errorf("ticket %s is %s: %w", ticket.ID, ticket.Status, status.ErrInvalidTransition)
	}

	ids := []string{ticket.ID}
	if ticket.GroupID != "" {
		members, err := s.store.FindGroupTickets(ctx, ticket.GroupID)
		if err != nil {
			return 0, err
		}
		ids = ids[:0]
		for _, m := range members {
			if m.Status != models.StatusRejected {
				return 0, fmt.Errorf("group member %s is %s: %w", m.ID, m.Status, status.ErrInvalidTransition)
			}
			ids = append(ids, m.ID)
		}
	}

	if err := s.store.DeleteTickets(ctx, ticket.GroupID, ids); err != nil {
		return 0, fmt.Errorf("store.DeleteTickets -> %w", err)
	}

	slog.Info("Rejected booking discarded", "owner", owner.ID, "ticket_id", ticket.ID, "deleted", len(ids))

	return len(ids), nil
}
