package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressroom-cms/pressroom/internal/shared"
)

// DirectoryStore provides the actor and role-permission lookups the engine
// needs. Kept narrow so tests can substitute a fake.
type DirectoryStore interface {
	FindActorByIdentity(ctx context.Context, identityID string) (Actor, error)
	RoleHasPermission(ctx context.Context, roleID int64, key string) (bool, error)
	RolePermissionKeys(ctx context.Context, roleID int64) ([]string, error)
}

// PGDirectoryStore implements DirectoryStore using PostgreSQL.
type PGDirectoryStore struct {
	pool *pgxpool.Pool
}

// NewDirectoryStore constructs a PostgreSQL-backed DirectoryStore.
func NewDirectoryStore(pool *pgxpool.Pool) *PGDirectoryStore {
	return &PGDirectoryStore{pool: pool}
}

// FindActorByIdentity resolves the panel profile joined with its role.
func (s *PGDirectoryStore) FindActorByIdentity(ctx context.Context, identityID string) (Actor, error) {
	var actor Actor
	err := s.pool.QueryRow(ctx,
		`SELECT u.id, u.identity_id, u.email, u.name, u.status,
		        r.id, r.name, r.description, r.is_super_admin, r.is_system
		 FROM users u
		 JOIN roles r ON r.id = u.role_id
		 WHERE u.identity_id = $1 AND u.status <> 'deleted'`,
		identityID,
	).Scan(
		&actor.ID, &actor.IdentityID, &actor.Email, &actor.Name, &actor.Status,
		&actor.Role.ID, &actor.Role.Name, &actor.Role.Description,
		&actor.Role.IsSuperAdmin, &actor.Role.IsSystem,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Actor{}, shared.ErrNotFound
		}
		return Actor{}, fmt.Errorf("%w: %v", shared.ErrUnavailable, err)
	}
	return actor, nil
}

// RoleHasPermission checks the role-permission join for one key.
func (s *PGDirectoryStore) RoleHasPermission(ctx context.Context, roleID int64, key string) (bool, error) {
	var granted bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM role_permissions WHERE role_id = $1 AND permission_key = $2)`,
		roleID, key,
	).Scan(&granted)
	if err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrUnavailable, err)
	}
	return granted, nil
}

// RolePermissionKeys lists every permission key assigned to the role.
func (s *PGDirectoryStore) RolePermissionKeys(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT permission_key FROM role_permissions WHERE role_id = $1 ORDER BY permission_key`,
		roleID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnavailable, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

var _ DirectoryStore = (*PGDirectoryStore)(nil)
