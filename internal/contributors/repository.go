package contributors

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressroom-cms/pressroom/internal/platform/db"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

// RepositoryPort defines data access methods for contributors.
type RepositoryPort interface {
	List(ctx context.Context) ([]Contributor, error)
	Get(ctx context.Context, id int64) (Contributor, error)
	Create(ctx context.Context, draft Draft) (Contributor, error)
	Update(ctx context.Context, id int64, draft Draft) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) RepositoryPort {
	return &repository{pool: pool}
}

const contributorColumns = `id, display_name, COALESCE(bio, ''), COALESCE(avatar_url, ''),
	user_id, created_at, updated_at`

func scanContributor(row pgx.Row) (Contributor, error) {
	var c Contributor
	err := row.Scan(&c.ID, &c.DisplayName, &c.Bio, &c.AvatarURL, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// List returns every contributor ordered by display name.
func (r *repository) List(ctx context.Context) ([]Contributor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+contributorColumns+` FROM contributors ORDER BY display_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Contributor
	for rows.Next() {
		c, err := scanContributor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Get fetches a contributor by ID.
func (r *repository) Get(ctx context.Context, id int64) (Contributor, error) {
	c, err := scanContributor(r.pool.QueryRow(ctx,
		`SELECT `+contributorColumns+` FROM contributors WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contributor{}, shared.ErrNotFound
		}
		return Contributor{}, err
	}
	return c, nil
}

// Create inserts a contributor. A user may back at most one profile.
func (r *repository) Create(ctx context.Context, draft Draft) (Contributor, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contributors (display_name, bio, avatar_url, user_id, created_at, updated_at)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, NOW(), NOW()) RETURNING id`,
		draft.DisplayName, draft.Bio, draft.AvatarURL, draft.UserID,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Contributor{}, shared.ErrConflict
		}
		return Contributor{}, err
	}
	return r.Get(ctx, id)
}

// Update modifies the writable fields of a contributor.
func (r *repository) Update(ctx context.Context, id int64, draft Draft) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE contributors SET display_name = $2, bio = NULLIF($3, ''), avatar_url = NULLIF($4, ''),
		 user_id = $5, updated_at = NOW() WHERE id = $1`,
		id, draft.DisplayName, draft.Bio, draft.AvatarURL, draft.UserID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a contributor. Posts keep a null byline via FK SET NULL.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contributors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*repository)(nil)
