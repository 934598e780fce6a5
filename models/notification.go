package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TopicTicketApproved = "TicketApproved"
	TopicTicketRejected = "TicketRejected"
)

type Header struct {
	ID          string    `json:"id"`
	PublishedAt time.Time `json:"published_at"`
}

func NewHeader() Header {
	return Header{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}

type TicketApproved struct {
	Header     Header     `json:"header"`
	TicketID   string     `json:"ticket_id"`
	OwnerID    string     `json:"owner_id"`
	HolderName string     `json:"holder_name"`
	Email      string     `json:"email"`
	TicketType TicketType `json:"ticket_type"`
}

func (e TicketApproved) Topic() string {
	return TopicTicketApproved
}

type TicketRejected struct {
	Header     Header `json:"header"`
	TicketID   string `json:"ticket_id"`
	OwnerID    string `json:"owner_id"`
	HolderName string `json:"holder_name"`
	Email      string `json:"email"`
	Reason     string `json:"reason,omitempty"`
}

func (e TicketRejected) Topic() string {
	return TopicTicketRejected
}
