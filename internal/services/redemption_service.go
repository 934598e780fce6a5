package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventpass/internal/status"
	"eventpass/models"
)

type ScanStatus string

const (
	ScanSuccess   ScanStatus = "SUCCESS"
	ScanDuplicate ScanStatus = "DUPLICATE"
	ScanError     ScanStatus = "ERROR"
)

const (
	msgInvalidTicket = "Invalid ticket"
	msgUnknownEvent  = "Unknown event"
)

// ScanResult is what the operator sees after a scan.
type ScanResult struct {
	Status     ScanStatus        `json:"status"`
	HolderName string            `json:"holderName,omitempty"`
	TicketType models.TicketType `json:"ticketType,omitempty"`
	ScannedAt  *time.Time        `json:"scannedAt,omitempty"`
	Message    string            `json:"message,omitempty"`
}

func scanError(message string) *ScanResult {
	return &ScanResult{Status: ScanError, Message: message}
}

type RedemptionService struct {
	tickets     TicketStore
	redemptions RedemptionStore
	realtime    Realtime
	timeout     time.Duration
	now         func() time.Time
}

func NewRedemptionService(tickets TicketStore, redemptions RedemptionStore, realtime Realtime, timeout time.Duration) *RedemptionService {
	return &RedemptionService{
		tickets:     tickets,
		redemptions: redemptions,
		realtime:    realtime,
		timeout:     timeout,
		now:         time.Now,
	}
}

// Redeem checks a ticket in at an event. The first scan of a (ticket, event) pair succeeds; every
// later scan of the same pair reports DUPLICATE with the original timestamp. Uniqueness is left
// to the store's constraint, there is no read-before-insert.
//
// A non-nil error means a transient storage failure; nothing was recorded.
func (s *RedemptionService) Redeem(ctx context.Context, actor Actor, payload, eventID string) (*ScanResult, error) {
	if !actor.IsAdmin() {
		return nil, status.ErrForbidden
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.redeem(ctx, actor, payload, eventID)
	if err != nil {
		return nil, err
	}

	s.realtime.Publish(fmt.Sprintf("checkin-%s", eventID), map[string]any{
		"type":        "scan",
		"status":      result.Status,
		"holder_name": result.HolderName,
		"scanned_by":  actor.ID,
	})

	return result, nil
}

func (s *RedemptionService) redeem(ctx context.Context, actor Actor, payload, eventID string) (*ScanResult, error) {
	secret, err := ParseQRPayload(payload)
	if err != nil {
		return scanError(msgInvalidTicket), nil
	}

	if _, err := s.redemptions.FindEvent(ctx, eventID); err != nil {
		if errors.Is(err, status.ErrEventNotFound) {
			return scanError(msgUnknownEvent), nil
		}
		return nil, fmt.Errorf("redemptions.FindEvent -> %w", err)
	}

	ticket, err := s.tickets.FindTicketBySecret(ctx, secret)
	if err != nil {
		if errors.Is(err, status.ErrTicketNotFound) {
			return scanError(msgInvalidTicket), nil
		}
		return nil, fmt.Errorf("tickets.FindTicketBySecret -> %w", err)
	}

	if !ticket.Redeemable() {
		slog.Warn("Scan of non-redeemable ticket", "ticket_id", ticket.ID, "status", ticket.Status, "event_id", eventID)
		return scanError(msgInvalidTicket), nil
	}

	redemption := &models.Redemption{
		TicketID:  ticket.ID,
		EventID:   eventID,
		ScannedBy: actor.ID,
		ScannedAt: s.now().UTC().Truncate(time.Millisecond),
	}

	err = s.redemptions.InsertRedemption(ctx, redemption)
	switch {
	case err == nil:
		return &ScanResult{
			Status:     ScanSuccess,
			HolderName: ticket.HolderName,
			TicketType: ticket.Type,
			ScannedAt:  &redemption.ScannedAt,
		}, nil

	case errors.Is(err, status.ErrAlreadyRedeemed):
		prior, err := s.redemptions.FindRedemption(ctx, ticket.ID, eventID)
		if err != nil {
			return nil, fmt.Errorf("redemptions.FindRedemption -> %w", err)
		}
		return &ScanResult{
			Status:     ScanDuplicate,
			HolderName: ticket.HolderName,
			TicketType: ticket.Type,
			ScannedAt:  &prior.ScannedAt,
			Message:    "Already scanned",
		}, nil

	default:
		return nil, fmt.Errorf("redemptions.InsertRedemption -> %w", err)
	}
}
