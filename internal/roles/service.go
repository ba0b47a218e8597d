package roles

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pressroom-cms/pressroom/internal/audit"
	"github.com/pressroom-cms/pressroom/internal/authz"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

// Service enforces role invariants on top of the repository.
type Service struct {
	repo     RepositoryPort
	engine   *authz.Engine
	recorder *audit.Recorder
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, engine *authz.Engine, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, engine: engine, recorder: recorder}
}

// List returns all roles.
func (s *Service) List(ctx context.Context, actor authz.Actor) ([]Role, error) {
	if err := s.engine.Require(ctx, actor, authz.PermRolesView); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// Get fetches one role.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (Role, error) {
	if err := s.engine.Require(ctx, actor, authz.PermRolesView); err != nil {
		return Role{}, err
	}
	return s.repo.Get(ctx, id)
}

// Permissions returns the keys assigned to a role.
func (s *Service) Permissions(ctx context.Context, actor authz.Actor, id int64) ([]string, error) {
	if err := s.engine.Require(ctx, actor, authz.PermRolesView); err != nil {
		return nil, err
	}
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsSuperAdmin {
		// Join rows are irrelevant for a super admin role; the engine
		// short-circuits before consulting them.
		return authz.CatalogKeys(), nil
	}
	return s.repo.PermissionKeys(ctx, id)
}

// Create inserts a new role.
func (s *Service) Create(ctx context.Context, actor authz.Actor, name, description string) (Role, error) {
	if err := s.engine.Require(ctx, actor, authz.PermRolesManage); err != nil {
		return Role{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrInvalid)
	}
	role, err := s.repo.Create(ctx, name, strings.TrimSpace(description))
	if err != nil {
		return Role{}, wrapConflict(err, "role name already in use")
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionRoleCreated,
		TargetType: "role",
		TargetID:   strconv.FormatInt(role.ID, 10),
		Meta:       map[string]any{"name": role.Name},
	})
	return role, nil
}

// Update renames a role. Super admin roles are immutable; system roles keep
// their name but may change description.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, name, description string) (Role, error) {
	if err := s.engine.Require(ctx, actor, authz.PermRolesManage); err != nil {
		return Role{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if current.IsSuperAdmin {
		return Role{}, fmt.Errorf("%w: the super admin role cannot be modified", shared.ErrForbidden)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrInvalid)
	}
	if current.IsSystem && name != current.Name {
		return Role{}, fmt.Errorf("%w: system roles cannot be renamed", shared.ErrForbidden)
	}
	role, err := s.repo.Update(ctx, id, name, strings.TrimSpace(description))
	if err != nil {
		return Role{}, wrapConflict(err, "role name already in use")
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionRoleUpdated,
		TargetType: "role",
		TargetID:   strconv.FormatInt(id, 10),
		Meta:       map[string]any{"name": role.Name},
	})
	return role, nil
}

// Delete removes a role. Super admin and system roles are never deletable,
// nor is any role that still has assigned users.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	if err := s.engine.Require(ctx, actor, authz.PermRolesManage); err != nil {
		return err
	}
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSuperAdmin {
		return fmt.Errorf("%w: the super admin role cannot be deleted", shared.ErrForbidden)
	}
	if role.IsSystem {
		return fmt.Errorf("%w: system roles cannot be deleted", shared.ErrForbidden)
	}
	if role.UserCount > 0 {
		return fmt.Errorf("%w: role has %d assigned user(s)", shared.ErrConflict, role.UserCount)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionRoleDeleted,
		TargetType: "role",
		TargetID:   strconv.FormatInt(id, 10),
		Meta:       map[string]any{"name": role.Name},
	})
	return nil
}

// SetPermissions replaces the role's permission set. Unknown keys are
// rejected; super admin roles never carry explicit assignments.
func (s *Service) SetPermissions(ctx context.Context, actor authz.Actor, id int64, keys []string) error {
	if err := s.engine.Require(ctx, actor, authz.PermRolesManage); err != nil {
		return err
	}
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSuperAdmin {
		return fmt.Errorf("%w: the super admin role cannot be modified", shared.ErrForbidden)
	}
	normalized := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(strings.ToLower(key))
		if key == "" {
			continue
		}
		if !authz.KnownKey(key) {
			return fmt.Errorf("%w: unknown permission %q", shared.ErrInvalid, key)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		normalized = append(normalized, key)
	}
	if err := s.repo.ReplacePermissions(ctx, id, normalized); err != nil {
		return err
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionRolePermsChanged,
		TargetType: "role",
		TargetID:   strconv.FormatInt(id, 10),
		Meta:       map[string]any{"permissions": normalized},
	})
	return nil
}

func wrapConflict(err error, detail string) error {
	if errors.Is(err, shared.ErrConflict) {
		return fmt.Errorf("%w: %s", shared.ErrConflict, detail)
	}
	return err
}
