package models

import "time"

// AccessPassword unlocks restricted registration. Only the bcrypt hash is stored.
type AccessPassword struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Hash      string    `json:"-"`
	Active    bool      `json:"active"`
	Uses      int       `json:"uses"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
