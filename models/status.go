package models

import "fmt"

// Status is the lifecycle state of a ticket or booking group.
type Status string

const (
	StatusPending             Status = "pending"
	StatusPendingVerification Status = "pending_verification"
	StatusPaid                Status = "paid"
	StatusRejected            Status = "rejected"
)

var transitions = map[Status][]Status{
	StatusPending:             {StatusPendingVerification},
	StatusPendingVerification: {StatusPaid, StatusRejected},
}

// ParseStatus rejects anything outside the closed set of statuses.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusPendingVerification, StatusPaid, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown ticket status %q", s)
}

func (s Status) String() string {
	return string(s)
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
