package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventpass/internal/status"
	"eventpass/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

const (
	TicketsCollection     = "tickets"
	GroupsCollection      = "booking_groups"
	RedemptionsCollection = "redemptions"
	EventsCollection      = "events"
	AccessCollection      = "access_passwords"
	AdminsCollection      = "admins"
	UsersCollection       = "users"
)

// RecordStore implements the storage interfaces on top of PocketBase collections.
type RecordStore struct {
	app core.App
}

func NewRecordStore(app core.App) *RecordStore {
	return &RecordStore{app: app}
}

func (s *RecordStore) findOne(ctx context.Context, collection string, where dbx.Expression) (*core.Record, error) {
	record := &core.Record{}
	err := s.app.RecordQuery(collection).
		WithContext(ctx).
		AndWhere(where).
		Limit(1).
		One(record)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *RecordStore) findAll(ctx context.Context, collection string, where dbx.Expression, orderBy string) ([]*core.Record, error) {
	records := []*core.Record{}
	err := s.app.RecordQuery(collection).
		WithContext(ctx).
		AndWhere(where).
		OrderBy(orderBy).
		All(&records)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *RecordStore) FindTicket(ctx context.Context, id string) (*models.Ticket, error) {
	record, err := s.findOne(ctx, TicketsCollection, dbx.HashExp{"id": id})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrTicketNotFound
		}
		return nil, fmt.Errorf("s.findOne(tickets) -> %w", err)
	}
	return ticketFromRecord(record), nil
}

func (s *RecordStore) FindTicketBySecret(ctx context.Context, secret string) (*models.Ticket, error) {
	if secret == "" {
		return nil, status.ErrTicketNotFound
	}

	record, err := s.findOne(ctx, TicketsCollection, dbx.HashExp{"secret": secret})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrTicketNotFound
		}
		return nil, fmt.Errorf("s.findOne(tickets by secret) -> %w", err)
	}
	return ticketFromRecord(record), nil
}

func (s *RecordStore) FindGroupTickets(ctx context.Context, groupID string) ([]*models.Ticket, error) {
	records, err := s.findAll(ctx, TicketsCollection, dbx.HashExp{"booking_group": groupID}, "created ASC")
	if err != nil {
		return nil, fmt.Errorf("s.findAll(group tickets) -> %w", err)
	}
	if len(records) == 0 {
		return nil, status.ErrGroupNotFound
	}

	tickets := make([]*models.Ticket, len(records))
	for i, record := range records {
		tickets[i] = ticketFromRecord(record)
	}
	return tickets, nil
}

func (s *RecordStore) ListOwnerTickets(ctx context.Context, ownerID string) ([]*models.Ticket, error) {
	records, err := s.findAll(ctx, TicketsCollection, dbx.HashExp{"owner": ownerID}, "created DESC")
	if err != nil {
		return nil, fmt.Errorf("s.findAll(owner tickets) -> %w", err)
	}

	tickets := make([]*models.Ticket, len(records))
	for i, record := range records {
		tickets[i] = ticketFromRecord(record)
	}
	return tickets, nil
}

func (s *RecordStore) CreateBooking(ctx context.Context, group *models.BookingGroup, tickets []*models.Ticket) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		groupID := ""

		if group != nil {
			collection, err := txApp.FindCachedCollectionByNameOrId(GroupsCollection)
			if err != nil {
				return fmt.Errorf("txApp.FindCachedCollectionByNameOrId -> %w", err)
			}

			record := core.NewRecord(collection)
			record.Set("owner", group.OwnerID)
			record.Set("ticket_type", string(group.Type))
			record.Set("amount", group.Amount.InexactFloat64())
			record.Set("party_size", group.PartySize)
			record.Set("status", string(group.Status))
			record.Set("payment_ref", group.PaymentRef)
			if err := txApp.SaveWithContext(ctx, record); err != nil {
				return fmt.Errorf("txApp.Save(booking_group) -> %w", err)
			}

			group.ID = record.Id
			groupID = record.Id
		}

		collection, err := txApp.FindCachedCollectionByNameOrId(TicketsCollection)
		if err != nil {
			return fmt.Errorf("txApp.FindCachedCollectionByNameOrId -> %w", err)
		}

		for _, t := range tickets {
			record := core.NewRecord(collection)
			record.Set("owner", t.OwnerID)
			record.Set("booking_group", groupID)
			record.Set("holder_name", t.HolderName)
			record.Set("email", t.Email)
			record.Set("ticket_type", string(t.Type))
			record.Set("amount", t.Amount.InexactFloat64())
			record.Set("status", string(t.Status))
			record.Set("payment_ref", t.PaymentRef)
			if err := txApp.SaveWithContext(ctx, record); err != nil {
				return fmt.Errorf("txApp.Save(ticket) -> %w", err)
			}

			t.ID = record.Id
			t.GroupID = groupID
			t.CreatedAt = record.GetDateTime("created").Time()
		}

		return nil
	})
}

func (s *RecordStore) UpdateTickets(ctx context.Context, groupID string, groupStatus models.Status, updates []models.TicketUpdate) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		for _, u := range updates {
			record, err := txApp.FindRecordById(TicketsCollection, u.ID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return status.ErrTicketNotFound
				}
				return fmt.Errorf("txApp.FindRecordById -> %w", err)
			}

			current := models.Status(record.GetString("status"))
			if !models.CanTransition(current, u.Status) {
				return fmt.Errorf("ticket %s is %s: %w", u.ID, current, status.ErrInvalidTransition)
			}

			if u.Secret != "" {
				if record.GetString("secret") != "" {
					return fmt.Errorf("ticket %s: %w", u.ID, status.ErrSecretAssigned)
				}
				record.Set("secret", u.Secret)
			}
			if u.PaymentRef != "" {
				record.Set("payment_ref", u.PaymentRef)
			}
			if u.DecidedBy != "" {
				record.Set("decided_by", u.DecidedBy)
				record.Set("decided_at", u.DecidedAt)
			}
			record.Set("status", string(u.Status))
			record.Set("reject_reason", u.RejectReason)

			if err := txApp.SaveWithContext(ctx, record); err != nil {
				if u.Secret != "" && isUniqueViolation(err) {
					return fmt.Errorf("ticket %s: %w", u.ID, status.ErrSecretCollision)
				}
				return fmt.Errorf("txApp.Save(ticket %s) -> %w", u.ID, err)
			}
		}

		if groupID != "" {
			group, err := txApp.FindRecordById(GroupsCollection, groupID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return status.ErrGroupNotFound
				}
				return fmt.Errorf("txApp.FindRecordById(group) -> %w", err)
			}

			group.Set("status", string(groupStatus))
			if err := txApp.SaveWithContext(ctx, group); err != nil {
				return fmt.Errorf("txApp.Save(group) -> %w", err)
			}
		}

		return nil
	})
}

func (s *RecordStore) DeleteTickets(ctx context.Context, groupID string, ticketIDs []string) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		for _, id := range ticketIDs {
			record, err := txApp.FindRecordById(TicketsCollection, id)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					continue
				}
				return fmt.Errorf("txApp.FindRecordById -> %w", err)
			}
			if err := txApp.DeleteWithContext(ctx, record); err != nil {
				return fmt.Errorf("txApp.Delete(ticket %s) -> %w", id, err)
			}
		}

		if groupID == "" {
			return nil
		}

		group, err := txApp.FindRecordById(GroupsCollection, groupID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("txApp.FindRecordById(group) -> %w", err)
		}
		return txApp.DeleteWithContext(ctx, group)
	})
}

func (s *RecordStore) IssueBands(ctx context.Context, ticketIDs []string, at time.Time) error {
	if len(ticketIDs) == 0 {
		return nil
	}

	issuedAt, err := types.ParseDateTime(at)
	if err != nil {
		return fmt.Errorf("types.ParseDateTime -> %w", err)
	}

	ids := make([]any, len(ticketIDs))
	for i, id := range ticketIDs {
		ids[i] = id
	}

	// Conditional update: tickets that already carry a band keep their original timestamp.
	_, err = s.app.NonconcurrentDB().Update(
		TicketsCollection,
		dbx.Params{
			"band_issued_at": issuedAt.String(),
			"updated":        issuedAt.String(),
		},
		dbx.And(
			dbx.In("id", ids...),
			dbx.HashExp{"status": string(models.StatusPaid)},
			dbx.Or(dbx.HashExp{"band_issued_at": ""}, dbx.NewExp("band_issued_at IS NULL")),
		),
	).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("db.Update(band_issued_at) -> %w", err)
	}

	return nil
}

func (s *RecordStore) FindEvent(ctx context.Context, id string) (*models.Event, error) {
	record, err := s.findOne(ctx, EventsCollection, dbx.HashExp{"id": id})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrEventNotFound
		}
		return nil, fmt.Errorf("s.findOne(events) -> %w", err)
	}

	return &models.Event{
		ID:       record.Id,
		Name:     record.GetString("name"),
		Venue:    record.GetString("venue"),
		StartsAt: record.GetDateTime("starts_at").Time(),
		Status:   record.GetString("status"),
	}, nil
}

func (s *RecordStore) InsertRedemption(ctx context.Context, r *models.Redemption) error {
	collection, err := s.app.FindCachedCollectionByNameOrId(RedemptionsCollection)
	if err != nil {
		return fmt.Errorf("app.FindCachedCollectionByNameOrId -> %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("ticket", r.TicketID)
	record.Set("event", r.EventID)
	record.Set("scanned_by", r.ScannedBy)
	record.Set("scanned_at", r.ScannedAt)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		if isUniqueViolation(err) {
			return status.ErrAlreadyRedeemed
		}
		return fmt.Errorf("app.Save(redemption) -> %w", err)
	}

	r.ID = record.Id
	return nil
}

func (s *RecordStore) FindRedemption(ctx context.Context, ticketID, eventID string) (*models.Redemption, error) {
	record, err := s.findOne(ctx, RedemptionsCollection, dbx.HashExp{"ticket": ticketID, "event": eventID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrRedemptionMissing
		}
		return nil, fmt.Errorf("s.findOne(redemptions) -> %w", err)
	}

	return &models.Redemption{
		ID:        record.Id,
		TicketID:  record.GetString("ticket"),
		EventID:   record.GetString("event"),
		ScannedBy: record.GetString("scanned_by"),
		ScannedAt: record.GetDateTime("scanned_at").Time(),
	}, nil
}

func (s *RecordStore) ListRecipients(ctx context.Context, eventID string, statuses []models.Status) ([]models.Recipient, error) {
	values := make([]any, len(statuses))
	for i, st := range statuses {
		values[i] = string(st)
	}

	query := s.app.DB().
		Select("email", "holder_name").
		From(TicketsCollection).
		Where(dbx.In("status", values...)).
		AndWhere(dbx.NewExp("email != ''")).
		OrderBy("created ASC")

	if eventID != "" {
		query.AndWhere(dbx.NewExp(
			"id NOT IN (SELECT ticket FROM redemptions WHERE event = {:event})",
			dbx.Params{"event": eventID},
		))
	}

	var rows []struct {
		Email      string `db:"email"`
		HolderName string `db:"holder_name"`
	}
	if err := query.WithContext(ctx).All(&rows); err != nil {
		return nil, fmt.Errorf("query.All(recipients) -> %w", err)
	}

	seen := make(map[string]struct{}, len(rows))
	recipients := make([]models.Recipient, 0, len(rows))
	for _, row := range rows {
		key := strings.ToLower(strings.TrimSpace(row.Email))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		recipients = append(recipients, models.Recipient{Email: row.Email, HolderName: row.HolderName})
	}
	return recipients, nil
}

func (s *RecordStore) CreateAccessPassword(ctx context.Context, p *models.AccessPassword) error {
	collection, err := s.app.FindCachedCollectionByNameOrId(AccessCollection)
	if err != nil {
		return fmt.Errorf("app.FindCachedCollectionByNameOrId -> %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("label", p.Label)
	record.Set("password_hash", p.Hash)
	record.Set("active", p.Active)
	record.Set("uses", 0)
	record.Set("created_by", p.CreatedBy)
	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("app.Save(access_password) -> %w", err)
	}

	p.ID = record.Id
	p.CreatedAt = record.GetDateTime("created").Time()
	return nil
}

func (s *RecordStore) ListAccessPasswords(ctx context.Context, activeOnly bool) ([]*models.AccessPassword, error) {
	var where dbx.Expression = dbx.NewExp("1=1")
	if activeOnly {
		where = dbx.HashExp{"active": true}
	}

	records, err := s.findAll(ctx, AccessCollection, where, "created DESC")
	if err != nil {
		return nil, fmt.Errorf("s.findAll(access_passwords) -> %w", err)
	}

	passwords := make([]*models.AccessPassword, len(records))
	for i, record := range records {
		passwords[i] = &models.AccessPassword{
			ID:        record.Id,
			Label:     record.GetString("label"),
			Hash:      record.GetString("password_hash"),
			Active:    record.GetBool("active"),
			Uses:      record.GetInt("uses"),
			CreatedBy: record.GetString("created_by"),
			CreatedAt: record.GetDateTime("created").Time(),
		}
	}
	return passwords, nil
}

func (s *RecordStore) SetAccessPasswordActive(ctx context.Context, id string, active bool) error {
	record, err := s.app.FindRecordById(AccessCollection, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrAccessNotFound
		}
		return fmt.Errorf("app.FindRecordById -> %w", err)
	}

	record.Set("active", active)
	return s.app.SaveWithContext(ctx, record)
}

func (s *RecordStore) IncrementAccessUses(ctx context.Context, id string) error {
	_, err := s.app.NonconcurrentDB().
		NewQuery("UPDATE access_passwords SET uses = uses + 1 WHERE id = {:id}").
		Bind(dbx.Params{"id": id}).
		WithContext(ctx).
		Execute()
	return err
}

func ticketFromRecord(record *core.Record) *models.Ticket {
	t := &models.Ticket{
		ID:           record.Id,
		OwnerID:      record.GetString("owner"),
		GroupID:      record.GetString("booking_group"),
		HolderName:   record.GetString("holder_name"),
		Email:        record.GetString("email"),
		Type:         models.TicketType(record.GetString("ticket_type")),
		Amount:       decimal.NewFromFloat(record.GetFloat("amount")),
		Status:       models.Status(record.GetString("status")),
		Secret:       record.GetString("secret"),
		PaymentRef:   record.GetString("payment_ref"),
		PaymentProof: record.GetString("payment_proof"),
		RejectReason: record.GetString("reject_reason"),
		DecidedBy:    record.GetString("decided_by"),
		CreatedAt:    record.GetDateTime("created").Time(),
	}

	if dt := record.GetDateTime("decided_at"); !dt.IsZero() {
		decidedAt := dt.Time()
		t.DecidedAt = &decidedAt
	}
	if dt := record.GetDateTime("band_issued_at"); !dt.IsZero() {
		issuedAt := dt.Time()
		t.BandIssuedAt = &issuedAt
	}

	return t
}

// isUniqueViolation recognises both the record validator's unique check and the
// SQLite constraint error raised when two inserts race past validation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		for _, fieldErr := range fieldErrs {
			var verr validation.Error
			if errors.As(fieldErr, &verr) && verr.Code() == "validation_not_unique" {
				return true
			}
		}
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
