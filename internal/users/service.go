package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ManualIDPrefix marks subject ids minted by admins rather than the identity provider.
const ManualIDPrefix = "manual-"

// ClaimFunc is called when a real sign-in replaces an admin-registered
// placeholder, so data keyed by the placeholder id can follow the user.
type ClaimFunc func(ctx context.Context, placeholderID, subjectID string) error

// Service is the user directory. Lookups by email scan every record; that is
// fine for an admin tool with hundreds of users and there is no email index.
type Service struct {
	repo    Repository
	onClaim []ClaimFunc
	now     func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// OnClaim registers fn to run after a placeholder has been claimed.
func (s *Service) OnClaim(fn ClaimFunc) {
	s.onClaim = append(s.onClaim, fn)
}

// Touch records activity for the subject, creating the record on first sight.
func (s *Service) Touch(ctx context.Context, subjectID, email, name string) error {
	user, err := s.repo.Get(ctx, subjectID)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	if user != nil {
		user.LastActiveAt = &now
		if email != "" {
			user.Email = email
		}
		if name != "" {
			user.Name = name
		}
		return s.repo.Put(ctx, user)
	}

	user = &User{
		ID:           subjectID,
		Email:        email,
		Name:         name,
		LastActiveAt: &now,
		CreatedAt:    now,
	}

	placeholder, err := s.findPlaceholder(ctx, email)
	if err != nil {
		return err
	}
	if placeholder != nil {
		if user.Name == "" {
			user.Name = placeholder.Name
		}
		user.CreatedAt = placeholder.CreatedAt
	}

	if err := s.repo.Put(ctx, user); err != nil {
		return err
	}
	if placeholder != nil {
		s.claim(ctx, placeholder, subjectID)
	}
	return nil
}

// Add registers a user ahead of their first sign-in.
func (s *Service) Add(ctx context.Context, email, name string) (*User, error) {
	email = strings.TrimSpace(email)

	_, err := s.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrDuplicateEmail
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	user := &User{
		ID:            ManualIDPrefix + uuid.New().String(),
		Email:         email,
		Name:          strings.TrimSpace(name),
		ManuallyAdded: true,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.Put(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Remove deletes the user record with the given email and returns it.
// Quota and limit data are keyed by subject id and are not touched here.
func (s *Service) Remove(ctx context.Context, email string) (*User, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// GetByEmail scans the directory for a case-insensitive email match.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(email)
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if strings.EqualFold(all[i].Email, email) {
			return &all[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// List returns every user in store order.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) findPlaceholder(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, nil
	}
	u, err := s.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up placeholder: %w", err)
	}
	if !u.ManuallyAdded {
		return nil, nil
	}
	return u, nil
}

func (s *Service) claim(ctx context.Context, placeholder *User, subjectID string) {
	for _, fn := range s.onClaim {
		if err := fn(ctx, placeholder.ID, subjectID); err != nil {
			slog.Warn("moving placeholder data", "placeholder", placeholder.ID, "subject", subjectID, "error", err)
		}
	}
	if err := s.repo.Delete(ctx, placeholder.ID); err != nil {
		slog.Warn("deleting claimed placeholder", "placeholder", placeholder.ID, "error", err)
		return
	}
	slog.Info("placeholder user claimed", "placeholder", placeholder.ID, "subject", subjectID, "email", placeholder.Email)
}
