package models

import (
	"time"
)

type Event struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Venue    string    `json:"venue"`
	StartsAt time.Time `json:"starts_at"`
	Status   string    `json:"status"` // draft, published, closed
}
