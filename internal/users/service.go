package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pressroom-cms/pressroom/internal/audit"
	"github.com/pressroom-cms/pressroom/internal/authz"
	"github.com/pressroom-cms/pressroom/internal/identity"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

// Service handles panel user lifecycle.
type Service struct {
	repo     RepositoryPort
	engine   *authz.Engine
	provider identity.Provider
	recorder *audit.Recorder
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, engine *authz.Engine, provider identity.Provider, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, engine: engine, provider: provider, recorder: recorder, logger: logger}
}

// List returns a filtered page of users.
func (s *Service) List(ctx context.Context, actor authz.Actor, filters ListFilters) ([]User, shared.Pagination, error) {
	if err := s.engine.Require(ctx, actor, authz.PermUsersView); err != nil {
		return nil, shared.Pagination{}, err
	}
	result, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(filters.Page, filters.PerPage, total), nil
}

// Get fetches one user.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (User, error) {
	if err := s.engine.Require(ctx, actor, authz.PermUsersView); err != nil {
		return User{}, err
	}
	return s.repo.Get(ctx, id)
}

// Create provisions an identity account and a profile row in one step, with
// the account auto-confirmed and the profile immediately active. The identity
// account is deleted if the profile insert fails, so no orphaned credential
// survives a partial failure.
func (s *Service) Create(ctx context.Context, actor authz.Actor, email, name, password string, roleID int64) (User, error) {
	if err := s.engine.Require(ctx, actor, authz.PermUsersCreate); err != nil {
		return User{}, err
	}
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)
	if email == "" || name == "" {
		return User{}, fmt.Errorf("%w: email and name are required", shared.ErrInvalid)
	}
	if len(password) < 8 {
		return User{}, fmt.Errorf("%w: password must be at least 8 characters", shared.ErrInvalid)
	}
	if roleID <= 0 {
		return User{}, fmt.Errorf("%w: role is required", shared.ErrInvalid)
	}

	ident, err := s.provider.CreateAccount(ctx, email, password, true)
	if err != nil {
		if errors.Is(err, identity.ErrDuplicateAccount) {
			return User{}, fmt.Errorf("%w: email already registered", shared.ErrConflict)
		}
		return User{}, fmt.Errorf("%w: create identity account", shared.ErrUnavailable)
	}

	user, err := s.repo.Create(ctx, NewUser{
		IdentityID: ident.ID,
		Email:      email,
		Name:       name,
		Status:     StatusActive,
		RoleID:     roleID,
	})
	if err != nil {
		if delErr := s.provider.DeleteAccount(ctx, ident.ID); delErr != nil && s.logger != nil {
			s.logger.Error("rollback identity account", slog.String("identity_id", ident.ID), slog.Any("error", delErr))
		}
		if errors.Is(err, shared.ErrConflict) {
			return User{}, fmt.Errorf("%w: email already in use", shared.ErrConflict)
		}
		return User{}, err
	}

	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionUserCreated,
		TargetType: "user",
		TargetID:   strconv.FormatInt(user.ID, 10),
		Meta:       map[string]any{"email": user.Email, "role_id": roleID},
	})
	return user, nil
}

// Update modifies name, role and avatar. Email is immutable after creation.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, name string, roleID int64, avatarURL string) (User, error) {
	if err := s.engine.Require(ctx, actor, authz.PermUsersEdit); err != nil {
		return User{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, fmt.Errorf("%w: name is required", shared.ErrInvalid)
	}
	if roleID <= 0 {
		return User{}, fmt.Errorf("%w: role is required", shared.ErrInvalid)
	}
	if err := s.repo.Update(ctx, id, name, roleID, avatarURL); err != nil {
		return User{}, err
	}
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionUserUpdated,
		TargetType: "user",
		TargetID:   strconv.FormatInt(id, 10),
		Meta:       map[string]any{"role_id": roleID},
	})
	return user, nil
}

// SetActive toggles a user between active and inactive.
func (s *Service) SetActive(ctx context.Context, actor authz.Actor, id int64, active bool) (User, error) {
	if err := s.engine.Require(ctx, actor, authz.PermUsersEdit); err != nil {
		return User{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if current.Status == StatusDeleted || current.Status == StatusInvited {
		return User{}, fmt.Errorf("%w: user in status %q cannot be toggled", shared.ErrConflict, current.Status)
	}
	target := StatusInactive
	action := audit.ActionUserDeactivated
	if active {
		target = StatusActive
		action = audit.ActionUserActivated
	}
	if current.Status == target {
		return current, nil
	}
	if err := s.repo.SetStatus(ctx, id, target); err != nil {
		return User{}, err
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     action,
		TargetType: "user",
		TargetID:   strconv.FormatInt(id, 10),
	})
	return s.repo.Get(ctx, id)
}

// Delete soft-deletes a user. The row is kept for audit trails.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	if err := s.engine.Require(ctx, actor, authz.PermUsersDelete); err != nil {
		return err
	}
	if actor.ID == id {
		return fmt.Errorf("%w: cannot delete your own account", shared.ErrConflict)
	}
	if err := s.repo.SetStatus(ctx, id, StatusDeleted); err != nil {
		return err
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionUserDeleted,
		TargetType: "user",
		TargetID:   strconv.FormatInt(id, 10),
	})
	return nil
}

// ActivateAfterSetup transitions an invited user to active once the identity
// provider has confirmed password setup. Idempotent: an already-active user is
// a no-op success and records no duplicate audit entry.
func (s *Service) ActivateAfterSetup(ctx context.Context, identityID string) (User, error) {
	user, err := s.repo.GetByIdentity(ctx, identityID)
	if err != nil {
		return User{}, err
	}
	switch user.Status {
	case StatusActive:
		return user, nil
	case StatusInvited:
		changed, err := s.repo.SetStatusIf(ctx, user.ID, StatusInvited, StatusActive)
		if err != nil {
			return User{}, err
		}
		if changed {
			s.recorder.MustRecord(ctx, audit.Entry{
				ActorID:    &user.ID,
				Action:     audit.ActionUserActivated,
				TargetType: "user",
				TargetID:   strconv.FormatInt(user.ID, 10),
				Meta:       map[string]any{"via": "password_setup"},
			})
		}
		return s.repo.Get(ctx, user.ID)
	default:
		return User{}, fmt.Errorf("%w: user in status %q cannot be activated", shared.ErrConflict, user.Status)
	}
}

// RecordLogin stamps last_login_at after a successful authentication.
func (s *Service) RecordLogin(ctx context.Context, id int64) {
	_ = s.repo.TouchLastLogin(ctx, id)
}
