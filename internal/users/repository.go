package users

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressroom-cms/pressroom/internal/platform/db"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

// NewUser carries the fields required to insert a user row.
type NewUser struct {
	IdentityID string
	Email      string
	Name       string
	Status     string
	RoleID     int64
	AvatarURL  string
}

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context, filters ListFilters) ([]User, int, error)
	Get(ctx context.Context, id int64) (User, error)
	GetByIdentity(ctx context.Context, identityID string) (User, error)
	Create(ctx context.Context, user NewUser) (User, error)
	Update(ctx context.Context, id int64, name string, roleID int64, avatarURL string) error
	SetStatus(ctx context.Context, id int64, status string) error
	SetStatusIf(ctx context.Context, id int64, from, to string) (bool, error)
	TouchLastLogin(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) RepositoryPort {
	return &repository{pool: pool}
}

const userColumns = `u.id, u.identity_id, u.email, u.name, u.status, u.role_id, r.name,
	COALESCE(u.avatar_url, ''), u.last_login_at, u.created_at, u.updated_at`

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.IdentityID, &user.Email, &user.Name, &user.Status,
		&user.RoleID, &user.RoleName, &user.AvatarURL, &user.LastLoginAt,
		&user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// List returns a filtered page of users, excluding soft-deleted rows unless
// they are requested explicitly.
func (r *repository) List(ctx context.Context, filters ListFilters) ([]User, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Status != "" {
		argCount++
		where += ` AND u.status = $` + strconv.Itoa(argCount)
		args = append(args, filters.Status)
	} else {
		where += ` AND u.status <> '` + StatusDeleted + `'`
	}
	if filters.RoleID > 0 {
		argCount++
		where += ` AND u.role_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.RoleID)
	}
	if filters.Search != "" {
		argCount++
		where += ` AND (u.name ILIKE $` + strconv.Itoa(argCount) + ` OR u.email ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filters.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	query := `SELECT ` + userColumns + ` FROM users u JOIN roles r ON r.id = u.role_id` +
		where + ` ORDER BY u.name` +
		` LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, user)
	}
	return result, total, rows.Err()
}

// Get fetches a user by ID.
func (r *repository) Get(ctx context.Context, id int64) (User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users u JOIN roles r ON r.id = u.role_id WHERE u.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// GetByIdentity fetches a user by identity-provider account ID.
func (r *repository) GetByIdentity(ctx context.Context, identityID string) (User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users u JOIN roles r ON r.id = u.role_id WHERE u.identity_id = $1`, identityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// Create inserts a new user row.
func (r *repository) Create(ctx context.Context, user NewUser) (User, error) {
	now := time.Now().UTC()
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (identity_id, email, name, status, role_id, avatar_url, created_at, updated_at)
		 VALUES ($1, lower($2), $3, $4, $5, NULLIF($6, ''), $7, $7) RETURNING id`,
		user.IdentityID, user.Email, user.Name, user.Status, user.RoleID, user.AvatarURL, now,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, shared.ErrConflict
		}
		return User{}, err
	}
	return r.Get(ctx, id)
}

// Update modifies mutable profile fields. Email is deliberately absent.
func (r *repository) Update(ctx context.Context, id int64, name string, roleID int64, avatarURL string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $2, role_id = $3, avatar_url = NULLIF($4, ''), updated_at = NOW() WHERE id = $1`,
		id, name, roleID, avatarURL,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetStatus updates the lifecycle status unconditionally.
func (r *repository) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetStatusIf performs a conditional transition and reports whether a row
// actually changed.
func (r *repository) SetStatusIf(ctx context.Context, id int64, from, to string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// TouchLastLogin stamps the last successful login.
func (r *repository) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

var _ RepositoryPort = (*repository)(nil)
