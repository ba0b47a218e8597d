package invites

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressroom-cms/pressroom/internal/shared"
)

// RepositoryPort defines data access methods for invitations.
type RepositoryPort interface {
	Create(ctx context.Context, inv Invitation) (Invitation, error)
	// FindPendingByTokenHash resolves a hash to an invitation that has not
	// been accepted. Expiry is checked by the caller.
	FindPendingByTokenHash(ctx context.Context, hash string) (Invitation, error)
	// MarkAccepted sets accepted_at only if it is still null, reporting
	// whether this caller won the write.
	MarkAccepted(ctx context.Context, id int64, at time.Time) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) RepositoryPort {
	return &repository{pool: pool}
}

// Create inserts a new invitation.
func (r *repository) Create(ctx context.Context, inv Invitation) (Invitation, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO invitations (email, name, role_id, token_hash, expires_at, created_by, created_at)
		 VALUES (lower($1), $2, $3, $4, $5, $6, NOW())
		 RETURNING id, created_at`,
		inv.Email, inv.Name, inv.RoleID, inv.TokenHash, inv.ExpiresAt, inv.CreatedBy,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return Invitation{}, err
	}
	return inv, nil
}

// FindPendingByTokenHash looks up an unconsumed invitation by token hash.
func (r *repository) FindPendingByTokenHash(ctx context.Context, hash string) (Invitation, error) {
	var inv Invitation
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, role_id, token_hash, expires_at, accepted_at, created_by, created_at
		 FROM invitations
		 WHERE token_hash = $1 AND accepted_at IS NULL`,
		hash,
	).Scan(&inv.ID, &inv.Email, &inv.Name, &inv.RoleID, &inv.TokenHash,
		&inv.ExpiresAt, &inv.AcceptedAt, &inv.CreatedBy, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invitation{}, shared.ErrNotFound
		}
		return Invitation{}, err
	}
	return inv, nil
}

// MarkAccepted performs the compare-and-swap on accepted_at.
func (r *repository) MarkAccepted(ctx context.Context, id int64, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invitations SET accepted_at = $2 WHERE id = $1 AND accepted_at IS NULL`,
		id, at.UTC(),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

var _ RepositoryPort = (*repository)(nil)
