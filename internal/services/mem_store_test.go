package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"eventpass/internal/status"
	"eventpass/models"
)

// memStore is an in-memory store with the same atomicity as RecordStore.
type memStore struct {
	mu          sync.Mutex
	seq         int
	tickets     map[string]*models.Ticket
	groups      map[string]*models.BookingGroup
	events      map[string]*models.Event
	redemptions map[string]*models.Redemption
	access      map[string]*models.AccessPassword

	failUpdate error
	failInsert error
}

func newMemStore() *memStore {
	return &memStore{
		tickets:     map[string]*models.Ticket{},
		groups:      map[string]*models.BookingGroup{},
		events:      map[string]*models.Event{},
		redemptions: map[string]*models.Redemption{},
		access:      map[string]*models.AccessPassword{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s%d", prefix, s.seq)
}

func cloneTicket(t *models.Ticket) *models.Ticket {
	cp := *t
	return &cp
}

func (s *memStore) addEvent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id] = &models.Event{ID: id, Name: id, Status: "published"}
}

func (s *memStore) addTicket(t *models.Ticket) *models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = s.nextID("t")
	}
	if t.GroupID != "" {
		if _, ok := s.groups[t.GroupID]; !ok {
			s.groups[t.GroupID] = &models.BookingGroup{ID: t.GroupID, OwnerID: t.OwnerID, Status: t.Status}
		}
	}
	s.tickets[t.ID] = cloneTicket(t)
	return t
}

func (s *memStore) ticket(id string) *models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil
	}
	return cloneTicket(t)
}

func (s *memStore) redemptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redemptions)
}

func (s *memStore) FindTicket(_ context.Context, id string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, status.ErrTicketNotFound
	}
	return cloneTicket(t), nil
}

func (s *memStore) FindTicketBySecret(_ context.Context, secret string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if secret != "" && t.Secret == secret {
			return cloneTicket(t), nil
		}
	}
	return nil, status.ErrTicketNotFound
}

func (s *memStore) FindGroupTickets(_ context.Context, groupID string) ([]*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Ticket
	for _, t := range s.tickets {
		if t.GroupID == groupID {
			out = append(out, cloneTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ListOwnerTickets(_ context.Context, ownerID string) ([]*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Ticket
	for _, t := range s.tickets {
		if t.OwnerID == ownerID {
			out = append(out, cloneTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) CreateBooking(_ context.Context, group *models.BookingGroup, tickets []*models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	groupID := ""
	if group != nil {
		group.ID = s.nextID("g")
		groupID = group.ID
		cp := *group
		s.groups[group.ID] = &cp
	}
	for _, t := range tickets {
		t.ID = s.nextID("t")
		t.GroupID = groupID
		t.CreatedAt = time.Now().UTC()
		s.tickets[t.ID] = cloneTicket(t)
	}
	return nil
}

func (s *memStore) UpdateTickets(_ context.Context, groupID string, groupStatus models.Status, updates []models.TicketUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failUpdate != nil {
		return s.failUpdate
	}

	// validate everything before touching anything
	for _, u := range updates {
		t, ok := s.tickets[u.ID]
		if !ok {
			return status.ErrTicketNotFound
		}
		if !models.CanTransition(t.Status, u.Status) {
			return status.ErrInvalidTransition
		}
		if u.Secret != "" && t.Secret != "" {
			return status.ErrSecretAssigned
		}
		if u.Secret != "" {
			for id, other := range s.tickets {
				if id != u.ID && other.Secret == u.Secret {
					return status.ErrSecretCollision
				}
			}
		}
	}

	for _, u := range updates {
		t := s.tickets[u.ID]
		t.Status = u.Status
		if u.Secret != "" {
			t.Secret = u.Secret
		}
		if u.PaymentRef != "" {
			t.PaymentRef = u.PaymentRef
		}
		t.RejectReason = u.RejectReason
		if u.DecidedBy != "" {
			t.DecidedBy = u.DecidedBy
			at := u.DecidedAt
			t.DecidedAt = &at
		}
	}
	if g, ok := s.groups[groupID]; ok {
		g.Status = groupStatus
	}
	return nil
}

func (s *memStore) DeleteTickets(_ context.Context, groupID string, ticketIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ticketIDs {
		delete(s.tickets, id)
	}
	if groupID != "" {
		delete(s.groups, groupID)
	}
	return nil
}

func (s *memStore) IssueBands(_ context.Context, ticketIDs []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ticketIDs {
		t, ok := s.tickets[id]
		if !ok || t.Status != models.StatusPaid || t.BandIssuedAt != nil {
			continue
		}
		stamp := at
		t.BandIssuedAt = &stamp
	}
	return nil
}

func (s *memStore) FindEvent(_ context.Context, id string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, status.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func redemptionKey(ticketID, eventID string) string {
	return ticketID + "|" + eventID
}

func (s *memStore) InsertRedemption(_ context.Context, r *models.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert != nil {
		return s.failInsert
	}
	key := redemptionKey(r.TicketID, r.EventID)
	if _, exists := s.redemptions[key]; exists {
		return status.ErrAlreadyRedeemed
	}
	r.ID = s.nextID("r")
	cp := *r
	s.redemptions[key] = &cp
	return nil
}

func (s *memStore) FindRedemption(_ context.Context, ticketID, eventID string) (*models.Redemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.redemptions[redemptionKey(ticketID, eventID)]
	if !ok {
		return nil, status.ErrRedemptionMissing
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) ListRecipients(_ context.Context, eventID string, statuses []models.Status) ([]models.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := map[models.Status]bool{}
	for _, st := range statuses {
		wanted[st] = true
	}

	ids := make([]string, 0, len(s.tickets))
	for id := range s.tickets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	seen := map[string]bool{}
	var out []models.Recipient
	for _, id := range ids {
		t := s.tickets[id]
		if !wanted[t.Status] || t.Email == "" || seen[t.Email] {
			continue
		}
		if eventID != "" {
			if _, done := s.redemptions[redemptionKey(t.ID, eventID)]; done {
				continue
			}
		}
		seen[t.Email] = true
		out = append(out, models.Recipient{Email: t.Email, HolderName: t.HolderName})
	}
	return out, nil
}

func (s *memStore) CreateAccessPassword(_ context.Context, p *models.AccessPassword) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID("a")
	cp := *p
	s.access[p.ID] = &cp
	return nil
}

func (s *memStore) ListAccessPasswords(_ context.Context, activeOnly bool) ([]*models.AccessPassword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AccessPassword
	for _, p := range s.access {
		if activeOnly && !p.Active {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) SetAccessPasswordActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.access[id]
	if !ok {
		return status.ErrAccessNotFound
	}
	p.Active = active
	return nil
}

func (s *memStore) IncrementAccessUses(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.access[id]
	if !ok {
		return status.ErrAccessNotFound
	}
	p.Uses++
	return nil
}

type published struct {
	mu     sync.Mutex
	events []Notification
	err    error
}

func (p *published) Publish(_ context.Context, n Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, n)
	return p.err
}

func (p *published) all() []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Notification(nil), p.events...)
}

type realtimeSpy struct {
	mu       sync.Mutex
	channels []string
}

func (r *realtimeSpy) Publish(channel string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = append(r.channels, channel)
}

func (r *realtimeSpy) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.channels...)
}

type sentMail struct {
	To      string
	Subject string
	HTML    string
}

type mailerSpy struct {
	mu     sync.Mutex
	sent   []sentMail
	failTo map[string]error
}

func (m *mailerSpy) Send(_ context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failTo[to]; ok {
		return err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, HTML: html})
	return nil
}

func (m *mailerSpy) all() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

var errStorageDown = errors.New("storage unavailable")

var (
	superAdmin  = Actor{ID: "sa1", Email: "root@example.com", Role: RoleSuperAdmin}
	gateAdmin   = Actor{ID: "ad1", Email: "gate@example.com", Role: RoleAdmin}
	participant = Actor{ID: "u1", Email: "user@example.com", Role: RoleParticipant}
)
