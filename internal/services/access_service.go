package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eventpass/internal/status"
	"eventpass/models"

	"golang.org/x/crypto/bcrypt"
)

type AccessService struct {
	store AccessStore
	cost  int
}

func NewAccessService(store AccessStore) *AccessService {
	return &AccessService{store: store, cost: bcrypt.DefaultCost}
}

func (s *AccessService) Create(ctx context.Context, actor Actor, label, password string) (*models.AccessPassword, error) {
	if !actor.IsSuperAdmin() {
		return nil, status.ErrForbidden
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt.GenerateFromPassword -> %w", err)
	}

	p := &models.AccessPassword{
		Label:     strings.TrimSpace(label),
		Hash:      string(hash),
		Active:    true,
		CreatedBy: actor.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateAccessPassword(ctx, p); err != nil {
		return nil, fmt.Errorf("store.CreateAccessPassword -> %w", err)
	}
	return p, nil
}

func (s *AccessService) List(ctx context.Context, actor Actor) ([]*models.AccessPassword, error) {
	if !actor.IsAdmin() {
		return nil, status.ErrForbidden
	}
	return s.store.ListAccessPasswords(ctx, false)
}

func (s *AccessService) SetActive(ctx context.Context, actor Actor, id string, active bool) error {
	if !actor.IsSuperAdmin() {
		return status.ErrForbidden
	}
	return s.store.SetAccessPasswordActive(ctx, id, active)
}

// Verify returns the active access password matching password and counts the use. It returns nil
// when nothing matches.
func (s *AccessService) Verify(ctx context.Context, password string) (*models.AccessPassword, error) {
	if password == "" {
		return nil, nil
	}

	passwords, err := s.store.ListAccessPasswords(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("store.ListAccessPasswords -> %w", err)
	}

	for _, p := range passwords {
		if bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(password)) != nil {
			continue
		}
		if err := s.store.IncrementAccessUses(ctx, p.ID); err != nil {
			return nil, fmt.Errorf("store.IncrementAccessUses -> %w", err)
		}
		p.Uses++
		return p, nil
	}
	return nil, nil
}
