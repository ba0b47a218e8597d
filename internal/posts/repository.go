package posts

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

// RepositoryPort defines data access methods for posts.
type RepositoryPort interface {
	List(ctx context.Context, filters ListFilters) ([]Post, int, error)
	Get(ctx context.Context, id int64) (Post, error)
	Create(ctx context.Context, draft Draft, createdBy int64) (Post, error)
	Update(ctx context.Context, id int64, draft Draft) error
	SetPublished(ctx context.Context, id int64, publishedAt *time.Time) error
	Delete(ctx context.Context, id int64) error
	CountByCategory(ctx context.Context, categoryID int64) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) RepositoryPort {
	return &repository{pool: pool}
}

const postColumns = `id, title, slug, body, category_id, contributor_id, status,
	published_at, created_by, created_at, updated_at`

func scanPost(row pgx.Row) (Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Body, &p.CategoryID, &p.ContributorID,
		&p.Status, &p.PublishedAt, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// List returns a filtered page of posts, newest first.
func (r *repository) List(ctx context.Context, filters ListFilters) ([]Post, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Status != "" {
		argCount++
		where += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, filters.Status)
	}
	if filters.CategoryID > 0 {
		argCount++
		where += ` AND category_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.CategoryID)
	}
	if filters.Search != "" {
		argCount++
		where += ` AND (title ILIKE $` + strconv.Itoa(argCount) + ` OR slug ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`+where, args...).Scan(&total); err != nil {
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
	query := `SELECT ` + postColumns + ` FROM posts` + where +
		` ORDER BY created_at DESC, id DESC` +
		` LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, post)
	}
	return result, total, rows.Err()
}

// Get fetches a post by ID.
func (r *repository) Get(ctx context.Context, id int64) (Post, error) {
	post, err := scanPost(r.pool.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, shared.ErrNotFound
		}
		return Post{}, err
	}
	return post, nil
}

// Create inserts a draft post.
func (r *repository) Create(ctx context.Context, draft Draft, createdBy int64) (Post, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO posts (title, slug, body, category_id, contributor_id, status, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING id`,
		draft.Title, draft.Slug, draft.Body, draft.CategoryID, draft.ContributorID, StatusDraft, createdBy,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Post{}, shared.ErrConflict
		}
		return Post{}, err
	}
	return r.Get(ctx, id)
}

// Update modifies the writable fields of a post.
func (r *repository) Update(ctx context.Context, id int64, draft Draft) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE posts SET title = $2, slug = $3, body = $4, category_id = $5, contributor_id = $6, updated_at = NOW()
		 WHERE id = $1`,
		id, draft.Title, draft.Slug, draft.Body, draft.CategoryID, draft.ContributorID,
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

// SetPublished flips the publication state. A nil publishedAt reverts to draft.
func (r *repository) SetPublished(ctx context.Context, id int64, publishedAt *time.Time) error {
	status := StatusDraft
	if publishedAt != nil {
		status = StatusPublished
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE posts SET status = $2, published_at = $3, updated_at = NOW() WHERE id = $1`,
		id, status, publishedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a post.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountByCategory reports how many posts reference the category.
func (r *repository) CountByCategory(ctx context.Context, categoryID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE category_id = $1`, categoryID).Scan(&n)
	return n, err
}

var _ RepositoryPort = (*repository)(nil)
