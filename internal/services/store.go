package services

import (
	"context"
	"time"

	"eventpass/models"
)

// TicketStore persists tickets and booking groups. Multi-ticket writes are all-or-nothing.
type TicketStore interface {
	FindTicket(ctx context.Context, id string) (*models.Ticket, error)
	FindTicketBySecret(ctx context.Context, secret string) (*models.Ticket, error)
	FindGroupTickets(ctx context.Context, groupID string) ([]*models.Ticket, error)
	ListOwnerTickets(ctx context.Context, ownerID string) ([]*models.Ticket, error)
	CreateBooking(ctx context.Context, group *models.BookingGroup, tickets []*models.Ticket) error
	UpdateTickets(ctx context.Context, groupID string, groupStatus models.Status, updates []models.TicketUpdate) error
	DeleteTickets(ctx context.Context, groupID string, ticketIDs []string) error

	// IssueBands stamps band_issued_at only on tickets that do not have one yet.
	IssueBands(ctx context.Context, ticketIDs []string, at time.Time) error
}

// RedemptionStore is the append-only check-in log. InsertRedemption returns
// status.ErrAlreadyRedeemed when the (ticket, event) pair already exists.
type RedemptionStore interface {
	FindEvent(ctx context.Context, id string) (*models.Event, error)
	InsertRedemption(ctx context.Context, r *models.Redemption) error
	FindRedemption(ctx context.Context, ticketID, eventID string) (*models.Redemption, error)
}

type RecipientStore interface {
	// ListRecipients returns distinct holders in the given statuses. With a non-empty eventID
	// only holders not yet checked in at that event are returned.
	ListRecipients(ctx context.Context, eventID string, statuses []models.Status) ([]models.Recipient, error)
}

type AccessStore interface {
	CreateAccessPassword(ctx context.Context, p *models.AccessPassword) error
	ListAccessPasswords(ctx context.Context, activeOnly bool) ([]*models.AccessPassword, error)
	SetAccessPasswordActive(ctx context.Context, id string, active bool) error
	IncrementAccessUses(ctx context.Context, id string) error
}
