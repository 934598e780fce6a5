package cmd

import (
	"fmt"

	"eventpass/internal/services"
	"eventpass/internal/status"
	"eventpass/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

// protectedTicketFields may only change through the service layer, never from a collection API
// request.
var protectedTicketFields = []string{
	"status",
	"secret",
	"band_issued_at",
	"decided_by",
	"decided_at",
	"reject_reason",
	"owner",
	"booking_group",
	"amount",
	"ticket_type",
}

func registerTicketHooks(app core.App) {
	app.OnRecordCreateRequest(services.TicketsCollection).BindFunc(func(e *core.RecordRequestEvent) error {
		if e.HasSuperuserAuth() {
			return e.Next()
		}
		if err := checkClientTicket(e.Record); err != nil {
			return apis.NewBadRequestError(err.Error(), nil)
		}
		resetClientTicket(e.Record)
		return e.Next()
	})

	app.OnRecordUpdateRequest(services.TicketsCollection).BindFunc(func(e *core.RecordRequestEvent) error {
		if e.HasSuperuserAuth() {
			return e.Next()
		}
		if field := changedProtectedField(e.Record.Original(), e.Record); field != "" {
			return apis.NewForbiddenError(fmt.Sprintf("Field %q cannot be modified", field), nil)
		}
		return e.Next()
	})

	app.OnRecordUpdate(services.TicketsCollection).BindFunc(func(e *core.RecordEvent) error {
		if err := guardTicketChange(e.Record.Original(), e.Record); err != nil {
			return err
		}
		return e.Next()
	})
}

// checkClientTicket allows only what a solo booking could produce. Group members exist only
// through the booking endpoint, which enforces the party size.
func checkClientTicket(record *core.Record) error {
	if record.GetString("booking_group") != "" {
		return fmt.Errorf("%w: tickets cannot join a booking group directly", status.ErrInvalidBooking)
	}
	if models.TicketType(record.GetString("ticket_type")) != models.TicketSolo {
		return fmt.Errorf("%w: only solo tickets can be created directly", status.ErrInvalidBooking)
	}
	if record.GetFloat("amount") <= 0 {
		return fmt.Errorf("%w: amount must be positive", status.ErrInvalidBooking)
	}
	return nil
}

// resetClientTicket strips whatever a participant tried to set on a new ticket beyond the booking
// details.
func resetClientTicket(record *core.Record) {
	record.Set("secret", "")
	record.Set("band_issued_at", "")
	record.Set("decided_by", "")
	record.Set("decided_at", "")
	record.Set("reject_reason", "")

	if record.GetString("payment_ref") != "" {
		record.Set("status", string(models.StatusPendingVerification))
	} else {
		record.Set("status", string(models.StatusPending))
	}
}

func changedProtectedField(before, after *core.Record) string {
	for _, field := range protectedTicketFields {
		if before.GetString(field) != after.GetString(field) {
			return field
		}
	}
	return ""
}

// guardTicketChange enforces the lifecycle on every ticket save, whichever path it comes from.
func guardTicketChange(before, after *core.Record) error {
	from := models.Status(before.GetString("status"))
	to := models.Status(after.GetString("status"))

	if from != to && !models.CanTransition(from, to) {
		return fmt.Errorf("ticket %s %s -> %s: %w", after.Id, from, to, status.ErrInvalidTransition)
	}

	oldSecret := before.GetString("secret")
	if oldSecret != "" && after.GetString("secret") != oldSecret {
		return fmt.Errorf("ticket %s: %w", after.Id, status.ErrSecretAssigned)
	}

	return nil
}
