package status

import "errors"

var (
	ErrTicketNotFound    = errors.New("ticket: ticket not found")
	ErrGroupNotFound     = errors.New("ticket: booking group not found")
	ErrEventNotFound     = errors.New("event: event not found")
	ErrInvalidTransition = errors.New("ticket: status transition not allowed")
	ErrSecretAssigned    = errors.New("ticket: secret already assigned")
	ErrSecretCollision   = errors.New("ticket: secret already in use")
	ErrForbidden         = errors.New("auth: action not permitted for this role")
	ErrAlreadyRedeemed   = errors.New("redemption: ticket already redeemed for event")
	ErrRedemptionMissing = errors.New("redemption: redemption not found")
	ErrInvalidPayload    = errors.New("scan: empty or malformed qr payload")
	ErrReminderRunning   = errors.New("reminder: a batch for this scope is already running")
	ErrJobNotFound       = errors.New("reminder: job not found")
	ErrAccessNotFound    = errors.New("access: password not found")
	ErrRateLimited       = errors.New("security: rate limit exceeded")
	ErrInvalidBooking    = errors.New("ticket: invalid booking request")
)
