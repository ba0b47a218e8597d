package jobposts

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressroom-cms/pressroom/internal/shared"
)

// RepositoryPort defines data access methods for job listings.
type RepositoryPort interface {
	List(ctx context.Context, filters ListFilters) ([]JobPost, int, error)
	Get(ctx context.Context, id int64) (JobPost, error)
	Create(ctx context.Context, draft Draft, createdBy int64) (JobPost, error)
	Update(ctx context.Context, id int64, draft Draft) error
	SetStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) RepositoryPort {
	return &repository{pool: pool}
}

const jobPostColumns = `id, title, location, employment_type, apply_url, status,
	created_by, created_at, updated_at`

func scanJobPost(row pgx.Row) (JobPost, error) {
	var j JobPost
	err := row.Scan(&j.ID, &j.Title, &j.Location, &j.EmploymentType, &j.ApplyURL,
		&j.Status, &j.CreatedBy, &j.CreatedAt, &j.UpdatedAt)
	return j, err
}

// List returns a filtered page of listings, newest first.
func (r *repository) List(ctx context.Context, filters ListFilters) ([]JobPost, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Status != "" {
		argCount++
		where += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, filters.Status)
	}
	if filters.Search != "" {
		argCount++
		where += ` AND (title ILIKE $` + strconv.Itoa(argCount) + ` OR location ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM job_posts`+where, args...).Scan(&total); err != nil {
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
	query := `SELECT ` + jobPostColumns + ` FROM job_posts` + where +
		` ORDER BY created_at DESC, id DESC` +
		` LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []JobPost
	for rows.Next() {
		post, err := scanJobPost(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, post)
	}
	return result, total, rows.Err()
}

// Get fetches a listing by ID.
func (r *repository) Get(ctx context.Context, id int64) (JobPost, error) {
	post, err := scanJobPost(r.pool.QueryRow(ctx,
		`SELECT `+jobPostColumns+` FROM job_posts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JobPost{}, shared.ErrNotFound
		}
		return JobPost{}, err
	}
	return post, nil
}

// Create inserts an open listing.
func (r *repository) Create(ctx context.Context, draft Draft, createdBy int64) (JobPost, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO job_posts (title, location, employment_type, apply_url, status, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW()) RETURNING id`,
		draft.Title, draft.Location, draft.EmploymentType, draft.ApplyURL, StatusOpen, createdBy,
	).Scan(&id)
	if err != nil {
		return JobPost{}, err
	}
	return r.Get(ctx, id)
}

// Update modifies the writable fields of a listing.
func (r *repository) Update(ctx context.Context, id int64, draft Draft) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE job_posts SET title = $2, location = $3, employment_type = $4, apply_url = $5, updated_at = NOW()
		 WHERE id = $1`,
		id, draft.Title, draft.Location, draft.EmploymentType, draft.ApplyURL,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetStatus flips a listing between open and closed.
func (r *repository) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE job_posts SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a listing.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM job_posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*repository)(nil)
