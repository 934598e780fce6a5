package services

import (
	"context"

	"eventpass/internal/status"
	"eventpass/models"
)

type Role string

const (
	RoleParticipant Role = "participant"
	RoleAdmin       Role = "admin"
	RoleSuperAdmin  Role = "super_admin"
)

// Actor is the caller of a request, resolved once from the authenticated session.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSuperAdmin
}

// IsSuperAdmin reports the elevated tier allowed to decide payments.
func (a Actor) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

// Target names either a single ticket or a booking group.
type Target struct {
	TicketID string `json:"ticketId"`
	GroupID  string `json:"groupId"`
}

// resolveTargets expands a target into the tickets it covers. A ticket that belongs to a
// booking group always expands to every member of that group.
func resolveTargets(ctx context.Context, store TicketStore, target Target) ([]*models.Ticket, string, error) {
	groupID := target.GroupID

	if groupID == "" {
		if target.TicketID == "" {
			return nil, "", status.ErrTicketNotFound
		}

		ticket, err := store.FindTicket(ctx, target.TicketID)
		if err != nil {
			return nil, "", err
		}
		if ticket.GroupID == "" {
			return []*models.Ticket{ticket}, "", nil
		}
		groupID = ticket.GroupID
	}

	tickets, err := store.FindGroupTickets(ctx, groupID)
	if err != nil {
		return nil, "", err
	}
	if len(tickets) == 0 {
		return nil, "", status.ErrGroupNotFound
	}

	return tickets, groupID, nil
}
