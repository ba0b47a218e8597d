package roles

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressroom-cms/pressroom/internal/platform/db"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id int64) (Role, error)
	Create(ctx context.Context, name, description string) (Role, error)
	Update(ctx context.Context, id int64, name, description string) (Role, error)
	Delete(ctx context.Context, id int64) error
	PermissionKeys(ctx context.Context, roleID int64) ([]string, error)
	ReplacePermissions(ctx context.Context, roleID int64, keys []string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) RepositoryPort {
	return &repository{pool: pool}
}

const roleColumns = `r.id, r.name, r.description, r.is_super_admin, r.is_system,
	(SELECT COUNT(*) FROM users u WHERE u.role_id = r.id AND u.status <> 'deleted'),
	r.created_at, r.updated_at`

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.IsSuperAdmin,
		&role.IsSystem, &role.UserCount, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

// List returns all roles with their live user counts.
func (r *repository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles r ORDER BY r.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// Get fetches a role by ID.
func (r *repository) Get(ctx context.Context, id int64) (Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles r WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// Create inserts a new non-system role.
func (r *repository) Create(ctx context.Context, name, description string) (Role, error) {
	now := time.Now().UTC()
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, is_super_admin, is_system, created_at, updated_at)
		 VALUES ($1, $2, FALSE, FALSE, $3, $3) RETURNING id`,
		name, description, now,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Role{}, shared.ErrConflict
		}
		return Role{}, err
	}
	return r.Get(ctx, id)
}

// Update renames a role.
func (r *repository) Update(ctx context.Context, id int64, name, description string) (Role, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE roles SET name = $2, description = $3, updated_at = NOW() WHERE id = $1`,
		id, name, description,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Role{}, shared.ErrConflict
		}
		return Role{}, err
	}
	if tag.RowsAffected() == 0 {
		return Role{}, shared.ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes a role and its permission assignments.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return tx.Commit(ctx)
}

// PermissionKeys lists the keys assigned to the role.
func (r *repository) PermissionKeys(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT permission_key FROM role_permissions WHERE role_id = $1 ORDER BY permission_key`, roleID)
	if err != nil {
		return nil, err
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

// ReplacePermissions diffs the assigned set against the requested set,
// attaching and detaching inside one transaction.
func (r *repository) ReplacePermissions(ctx context.Context, roleID int64, keys []string) error {
	existing, err := r.PermissionKeys(ctx, roleID)
	if err != nil {
		return err
	}
	current := make(map[string]struct{}, len(existing))
	for _, key := range existing {
		current[key] = struct{}{}
	}
	keep := make(map[string]struct{}, len(keys))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, key := range keys {
		keep[key] = struct{}{}
		if _, ok := current[key]; !ok {
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_permissions (role_id, permission_key) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				roleID, key); err != nil {
				return err
			}
		}
	}
	for key := range current {
		if _, ok := keep[key]; !ok {
			if _, err := tx.Exec(ctx,
				`DELETE FROM role_permissions WHERE role_id = $1 AND permission_key = $2`,
				roleID, key); err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

var _ RepositoryPort = (*repository)(nil)
