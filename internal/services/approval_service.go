package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventpass/internal/status"
	"eventpass/models"
	"eventpass/utils"
)

// maxDecisionAttempts bounds retries when a drawn secret is already taken in storage.
const maxDecisionAttempts = 3

type ApprovalService struct {
	store     TicketStore
	notifier  Notifier
	realtime  Realtime
	newSecret func() (string, error)
	now       func() time.Time
}

func NewApprovalService(store TicketStore, notifier Notifier, realtime Realtime) *ApprovalService {
	return &ApprovalService{
		store:     store,
		notifier:  notifier,
		realtime:  realtime,
		newSecret: utils.GenerateSecret,
		now:       time.Now,
	}
}

type DecidedTicket struct {
	ID         string        `json:"id"`
	HolderName string        `json:"holderName"`
	Email      string        `json:"email"`
	Status     models.Status `json:"status"`
}

type Decision struct {
	GroupID   string          `json:"groupId,omitempty"`
	Status    models.Status   `json:"status"`
	DecidedBy string          `json:"decidedBy"`
	DecidedAt time.Time       `json:"decidedAt"`
	Tickets   []DecidedTicket `json:"tickets"`
}

// Approve issues every ticket of the target: each gets a fresh secret and becomes paid, in one
// storage transaction. Holders are notified after the commit.
func (s *ApprovalService) Approve(ctx context.Context, actor Actor, target Target) (*Decision, error) {
	return s.decide(ctx, actor, target, models.StatusPaid, "")
}

// Reject marks every ticket of the target rejected without assigning a secret.
func (s *ApprovalService) Reject(ctx context.Context, actor Actor, target Target, reason string) (*Decision, error) {
	return s.decide(ctx, actor, target, models.StatusRejected, reason)
}

func (s *ApprovalService) decide(ctx context.Context, actor Actor, target Target, to models.Status, reason string) (*Decision, error) {
	if !actor.IsSuperAdmin() {
		return nil, status.ErrForbidden
	}

	tickets, groupID, err := resolveTargets(ctx, s.store, target)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()

	var updates []models.TicketUpdate
	for attempt := 1; ; attempt++ {
		updates, err = s.buildUpdates(actor, tickets, to, reason, now)
		if err != nil {
			return nil, err
		}

		err = s.store.UpdateTickets(ctx, groupID, to, updates)
		if err == nil {
			break
		}
		if errors.Is(err, status.ErrSecretCollision) && attempt < maxDecisionAttempts {
			slog.Warn("Secret collided with an issued ticket, retrying", "group_id", groupID, "attempt", attempt)
			continue
		}
		return nil, fmt.Errorf("store.UpdateTickets -> %w", err)
	}

	decision := &Decision{
		GroupID:   groupID,
		Status:    to,
		DecidedBy: actor.ID,
		DecidedAt: now,
		Tickets:   make([]DecidedTicket, len(tickets)),
	}
	for i, t := range tickets {
		t.Status = to
		t.Secret = updates[i].Secret
		t.RejectReason = reason
		t.DecidedBy = actor.ID
		t.DecidedAt = &now

		decision.Tickets[i] = DecidedTicket{ID: t.ID, HolderName: t.HolderName, Email: t.Email, Status: to}
	}

	slog.Info("Payment decision applied",
		"status", to,
		"group_id", groupID,
		"tickets", len(tickets),
		"actor", actor.ID,
	)

	s.notify(context.WithoutCancel(ctx), tickets, to, reason)

	return decision, nil
}

// buildUpdates checks every transition and draws fresh secrets for an approval.
func (s *ApprovalService) buildUpdates(actor Actor, tickets []*models.Ticket, to models.Status, reason string, now time.Time) ([]models.TicketUpdate, error) {
	updates := make([]models.TicketUpdate, 0, len(tickets))
	issued := make(map[string]struct{}, len(tickets))

	for _, t := range tickets {
		if !models.CanTransition(t.Status, to) {
			return nil, fmt.Errorf("ticket %s is %s: %w", t.ID, t.Status, status.ErrInvalidTransition)
		}

		u := models.TicketUpdate{
			ID:           t.ID,
			Status:       to,
			RejectReason: reason,
			DecidedBy:    actor.ID,
			DecidedAt:    now,
		}

		if to == models.StatusPaid {
			if t.Secret != "" {
				return nil, fmt.Errorf("ticket %s: %w", t.ID, status.ErrSecretAssigned)
			}
			secret, err := s.uniqueSecret(issued)
			if err != nil {
				return nil, err
			}
			u.Secret = secret
		}

		updates = append(updates, u)
	}

	return updates, nil
}

func (s *ApprovalService) uniqueSecret(issued map[string]struct{}) (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		secret, err := s.newSecret()
		if err != nil {
			return "", fmt.Errorf("generate secret: %w", err)
		}
		if _, dup := issued[secret]; dup {
			continue
		}
		issued[secret] = struct{}{}
		return secret, nil
	}
	return "", fmt.Errorf("generate secret: no unique value after retries")
}

// notify runs after the commit. Failures are logged and never affect the decision.
func (s *ApprovalService) notify(ctx context.Context, tickets []*models.Ticket, to models.Status, reason string) {
	owners := make(map[string]struct{})

	for _, t := range tickets {
		var evt Notification
		switch to {
		case models.StatusPaid:
			evt = models.TicketApproved{
				Header:     models.NewHeader(),
				TicketID:   t.ID,
				OwnerID:    t.OwnerID,
				HolderName: t.HolderName,
				Email:      t.Email,
				TicketType: t.Type,
			}
		case models.StatusRejected:
			evt = models.TicketRejected{
				Header:     models.NewHeader(),
				TicketID:   t.ID,
				OwnerID:    t.OwnerID,
				HolderName: t.HolderName,
				Email:      t.Email,
				Reason:     reason,
			}
		default:
			continue
		}

		if err := s.notifier.Publish(ctx, evt); err != nil {
			slog.Error("Failed to publish ticket notification",
				"ticket_id", t.ID,
				"topic", evt.Topic(),
				"error", err,
			)
		}

		if t.OwnerID != "" {
			owners[t.OwnerID] = struct{}{}
		}
	}

	for owner := range owners {
		s.realtime.Publish(fmt.Sprintf("user-%s", owner), map[string]any{
			"type":   "ticket_status",
			"status": to,
		})
	}
}
