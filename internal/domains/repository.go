package domains

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressroom-cms/pressroom/internal/platform/db"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

// RepositoryPort defines data access methods for the domain allow list.
type RepositoryPort interface {
	List(ctx context.Context) ([]AllowedDomain, error)
	Add(ctx context.Context, domain string, addedBy int64) (AllowedDomain, error)
	Remove(ctx context.Context, id int64) (string, error)
	Exists(ctx context.Context, domain string) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) RepositoryPort {
	return &repository{pool: pool}
}

// List returns the allow list ordered alphabetically.
func (r *repository) List(ctx context.Context) ([]AllowedDomain, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, domain, added_by, created_at FROM allowed_domains ORDER BY domain`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AllowedDomain
	for rows.Next() {
		var d AllowedDomain
		if err := rows.Scan(&d.ID, &d.Domain, &d.AddedBy, &d.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// Add inserts a domain. The unique index is the duplicate gate.
func (r *repository) Add(ctx context.Context, domain string, addedBy int64) (AllowedDomain, error) {
	var d AllowedDomain
	err := r.pool.QueryRow(ctx,
		`INSERT INTO allowed_domains (domain, added_by, created_at) VALUES ($1, $2, NOW())
		 RETURNING id, domain, added_by, created_at`,
		domain, addedBy,
	).Scan(&d.ID, &d.Domain, &d.AddedBy, &d.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return AllowedDomain{}, shared.ErrConflict
		}
		return AllowedDomain{}, err
	}
	return d, nil
}

// Remove deletes an entry and returns the removed domain name.
func (r *repository) Remove(ctx context.Context, id int64) (string, error) {
	var domain string
	err := r.pool.QueryRow(ctx,
		`DELETE FROM allowed_domains WHERE id = $1 RETURNING domain`, id).Scan(&domain)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return domain, nil
}

// Exists reports whether the domain is on the allow list.
func (r *repository) Exists(ctx context.Context, domain string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM allowed_domains WHERE domain = $1)`, domain).Scan(&exists)
	return exists, err
}

var _ RepositoryPort = (*repository)(nil)
