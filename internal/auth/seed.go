package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// EnsureSeedAdmin makes sure an Admin account exists for email.
//
//   - no user with email: one is registered with role Admin (no session is started)
//   - a User with email: promoted to Admin
//   - an Admin with email: nothing happens
//
// An existing password hash is never replaced, and password is never
// logged. Empty email or password fails with ErrConfiguration.
func (s *Service) EnsureSeedAdmin(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.record("seed", ErrConfiguration)
		return nil, fmt.Errorf("%w: seed admin requires an email and a password", ErrConfiguration)
	}

	s.opMu.Lock()
	user, action, err := s.ensureAdmin(ctx, email, password)
	state := s.state(ReasonSeed)
	s.opMu.Unlock()

	s.record("seed", err)
	if err != nil {
		return nil, fmt.Errorf("seeding admin: %w", err)
	}

	s.logger.Info("seed admin ensured", "user_id", user.ID, "action", action)
	if action != "unchanged" {
		s.publish(state)
	}
	return user, nil
}

func (s *Service) ensureAdmin(ctx context.Context, email, password string) (*User, string, error) {
	if err := s.dir.Load(ctx); err != nil {
		return nil, "", err
	}

	existing := s.dir.FindByEmail(email)
	if existing == nil {
		user, err := s.dir.Register(ctx, RegisterInput{
			Email:    email,
			Password: password,
			Role:     string(RoleAdmin),
		})
		switch {
		case err == nil:
			return user, "created", nil
		case errors.Is(err, ErrConflict):
			// Another context created it since our Load.
		default:
			return nil, "", err
		}
	} else if existing.IsAdmin() {
		return existing, "unchanged", nil
	}

	user, err := s.dir.UpsertRole(ctx, email, RoleAdmin)
	if err != nil {
		return nil, "", err
	}
	return user, "promoted", nil
}
