package services

import (
	"context"
	"errors"
	"fmt"

	"concerto/internal/domain"
	applog "concerto/internal/log"
	"concerto/internal/security"
	"concerto/internal/validate"
)

type RoleStore interface {
	FindByName(ctx context.Context, name string) ([]domain.Role, error)
	Create(ctx context.Context, role *domain.Role) error
}

type UserStore interface {
	FindByUsername(ctx context.Context, username string) ([]domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}

// DefaultUser describes the account created on first setup.
type DefaultUser struct {
	Username string
	Password string
	Email    string
	Roles    []string
}

// SeedService creates baseline reference data when it is absent. Existing
// records are never modified.
type SeedService struct {
	Roles   RoleStore
	Users   UserStore
	Encoder security.PasswordEncoder
	NewSalt func() (string, error)
}

func NewSeedService(roles RoleStore, users UserStore, enc security.PasswordEncoder) *SeedService {
	return &SeedService{Roles: roles, Users: users, Encoder: enc, NewSalt: security.NewSalt}
}

// EnsureRole returns the role called name, creating it first if needed.
func (s *SeedService) EnsureRole(ctx context.Context, name string) (domain.Role, bool, error) {
	if _, ok := validate.RoleName(name); !ok {
		return domain.Role{}, false, fmt.Errorf("invalid role name %q", name)
	}
	found, err := s.Roles.FindByName(ctx, name)
	if err != nil {
		return domain.Role{}, false, fmt.Errorf("looking up role %s: %w", name, err)
	}
	if len(found) > 0 {
		return found[0], false, nil
	}

	role := domain.Role{Name: name, Role: name}
	if err := s.Roles.Create(ctx, &role); err != nil {
		return domain.Role{}, false, fmt.Errorf("creating role %s: %w", name, err)
	}
	applog.Audit("seed.role.created", map[string]any{"role": name, "id": role.ID})
	return role, true, nil
}

// EnsureDefaultUser returns the default account, creating it with the roles
// named in def.Roles if no account with that username exists. Every named
// role must be present in seeded.
func (s *SeedService) EnsureDefaultUser(ctx context.Context, def DefaultUser, seeded map[string]domain.Role) (*domain.User, bool, error) {
	username, ok := validate.Username(def.Username)
	if !ok {
		return nil, false, fmt.Errorf("invalid default username %q", def.Username)
	}
	found, err := s.Users.FindByUsername(ctx, username)
	if err != nil {
		return nil, false, fmt.Errorf("looking up user %s: %w", username, err)
	}
	if len(found) > 0 {
		return &found[0], false, nil
	}

	email, ok := validate.Email(def.Email)
	if !ok {
		return nil, false, fmt.Errorf("invalid default user email %q", def.Email)
	}
	if !validate.Password(def.Password) {
		return nil, false, errors.New("invalid default user password")
	}
	if len(def.Roles) == 0 {
		return nil, false, errors.New("default user has no roles configured")
	}
	roles := make([]domain.Role, 0, len(def.Roles))
	for _, name := range def.Roles {
		r, ok := seeded[name]
		if !ok {
			return nil, false, fmt.Errorf("default user role %s is not among the seeded roles", name)
		}
		roles = append(roles, r)
	}

	salt, err := s.NewSalt()
	if err != nil {
		return nil, false, fmt.Errorf("generating salt: %w", err)
	}
	hash, err := s.Encoder.Encode(def.Password, salt)
	if err != nil {
		return nil, false, fmt.Errorf("encoding password: %w", err)
	}

	u := &domain.User{Username: username, Email: email, Hash: hash, Salt: salt, Roles: roles}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, false, fmt.Errorf("creating user %s: %w", username, err)
	}
	applog.Audit("seed.user.created", map[string]any{"username": username, "id": u.ID, "roles": def.Roles})
	return u, true, nil
}
