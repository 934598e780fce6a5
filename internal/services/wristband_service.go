package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventpass/internal/status"
	"eventpass/models"
)

type WristbandService struct {
	store TicketStore
	now   func() time.Time
}

func NewWristbandService(store TicketStore) *WristbandService {
	return &WristbandService{store: store, now: time.Now}
}

type BandResult struct {
	TicketID      string    `json:"ticketId"`
	HolderName    string    `json:"holderName"`
	BandIssuedAt  time.Time `json:"bandIssuedAt"`
	AlreadyIssued bool      `json:"alreadyIssued"`
}

// Issue stamps the band for a ticket, or for every member of its booking group. Tickets that
// already have a band keep their original timestamp.
func (s *WristbandService) Issue(ctx context.Context, actor Actor, target Target) ([]BandResult, error) {
	if !actor.IsAdmin() {
		return nil, status.ErrForbidden
	}

	tickets, _, err := resolveTargets(ctx, s.store, target)
	if err != nil {
		return nil, err
	}

	pending := make([]string, 0, len(tickets))
	for _, t := range tickets {
		if t.Status != models.StatusPaid {
			return nil, fmt.Errorf("ticket %s is %s: %w", t.ID, t.Status, status.ErrInvalidTransition)
		}
		if t.BandIssuedAt == nil {
			pending = append(pending, t.ID)
		}
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	if len(pending) > 0 {
		if err := s.store.IssueBands(ctx, pending, now); err != nil {
			return nil, fmt.Errorf("store.IssueBands -> %w", err)
		}
	}

	// Read back: a concurrent call may have stamped some tickets first.
	results := make([]BandResult, 0, len(tickets))
	for _, t := range tickets {
		current, err := s.store.FindTicket(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("store.FindTicket -> %w", err)
		}
		if current.BandIssuedAt == nil {
			return nil, fmt.Errorf("ticket %s: band not recorded", t.ID)
		}

		results = append(results, BandResult{
			TicketID:      current.ID,
			HolderName:    current.HolderName,
			BandIssuedAt:  *current.BandIssuedAt,
			AlreadyIssued: t.BandIssuedAt != nil || !current.BandIssuedAt.Equal(now),
		})
	}

	slog.Info("Wristbands issued", "requested", len(tickets), "new", len(pending), "actor", actor.ID)

	return results, nil
}
