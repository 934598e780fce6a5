package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TicketType string

const (
	TicketSolo TicketType = "solo"
	TicketDuo  TicketType = "duo"
	TicketQuad TicketType = "quad"
)

func ParseTicketType(s string) (TicketType, error) {
	switch tt := TicketType(s); tt {
	case TicketSolo, TicketDuo, TicketQuad:
		return tt, nil
	}
	return "", fmt.Errorf("unknown ticket type %q", s)
}

// PartySize is the number of admissions a purchase of this type covers.
func (t TicketType) PartySize() int {
	switch t {
	case TicketDuo:
		return 2
	case TicketQuad:
		return 4
	case TicketSolo:
		return 1
	}
	return 0
}

type Ticket struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"owner_id"`
	GroupID      string          `json:"booking_group,omitempty"`
	HolderName   string          `json:"holder_name"`
	Email        string          `json:"email"`
	Type         TicketType      `json:"ticket_type"`
	Amount       decimal.Decimal `json:"amount"`
	Status       Status          `json:"status"`
	Secret       string          `json:"secret,omitempty"`
	PaymentRef   string          `json:"payment_ref,omitempty"`
	PaymentProof string          `json:"payment_proof,omitempty"`
	RejectReason string          `json:"reject_reason,omitempty"`
	DecidedBy    string          `json:"decided_by,omitempty"`
	DecidedAt    *time.Time      `json:"decided_at,omitempty"`
	BandIssuedAt *time.Time      `json:"band_issued_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Redeemable reports whether the ticket may be checked in at an event.
func (t *Ticket) Redeemable() bool {
	return t.Status == StatusPaid && t.Secret != ""
}

type BookingGroup struct {
	ID         string          `json:"id"`
	OwnerID    string          `json:"owner_id"`
	Type       TicketType      `json:"ticket_type"`
	Amount     decimal.Decimal `json:"amount"`
	PartySize  int             `json:"party_size"`
	Status     Status          `json:"status"`
	PaymentRef string          `json:"payment_ref,omitempty"`
}

// TicketUpdate is one member of a decision applied atomically to a set of tickets.
type TicketUpdate struct {
	ID           string
	Status       Status
	Secret       string
	PaymentRef   string
	RejectReason string
	DecidedBy    string
	DecidedAt    time.Time
}

// Redemption is one successful check-in of a ticket at an event.
type Redemption struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket"`
	EventID   string    `json:"event"`
	ScannedBy string    `json:"scanned_by"`
	ScannedAt time.Time `json:"scanned_at"`
}

// Recipient is a distinct mail address selected for a bulk reminder.
type Recipient struct {
	Email      string
	HolderName string
}

// SplitAmount divides a group amount across n members, giving the rounding remainder to the first.
func SplitAmount(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	share := total.DivRound(decimal.NewFromInt(int64(n)), 2)
	shares := make([]decimal.Decimal, n)
	for i := range shares {
		shares[i] = share
	}
	rest := total.Sub(share.Mul(decimal.NewFromInt(int64(n))))
	shares[0] = shares[0].Add(rest)
	return shares
}
