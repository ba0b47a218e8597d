package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/pressroom-cms/pressroom/internal/platform/db"
)

// LocalProvider implements Provider on top of Postgres for self-hosted
// deployments where no external auth service exists. Passwords are stored
// as bcrypt hashes; access tokens are opaque random strings with a TTL.
type LocalProvider struct {
	pool       *pgxpool.Pool
	sessionTTL time.Duration
}

// NewLocalProvider constructs a LocalProvider.
func NewLocalProvider(pool *pgxpool.Pool, sessionTTL time.Duration) *LocalProvider {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &LocalProvider{pool: pool, sessionTTL: sessionTTL}
}

// Authenticate validates credentials and issues an access token.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (Identity, string, error) {
	var (
		id        string
		hash      string
		confirmed bool
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, password_hash, confirmed FROM identity_accounts WHERE lower(email) = lower($1)`,
		email,
	).Scan(&id, &hash, &confirmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, "", ErrInvalidCredentials
		}
		return Identity{}, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Identity{}, "", ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return Identity{}, "", err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO identity_sessions (token, account_id, expires_at) VALUES ($1, $2, $3)`,
		token, id, time.Now().UTC().Add(p.sessionTTL),
	)
	if err != nil {
		return Identity{}, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Identity{ID: id, Email: email, EmailConfirmed: confirmed}, token, nil
}

// ValidateSession resolves an unexpired access token to its account.
func (p *LocalProvider) ValidateSession(ctx context.Context, accessToken string) (Identity, error) {
	if accessToken == "" {
		return Identity{}, ErrInvalidSession
	}
	var ident Identity
	err := p.pool.QueryRow(ctx,
		`SELECT a.id, a.email, a.confirmed
		 FROM identity_sessions s
		 JOIN identity_accounts a ON a.id = s.account_id
		 WHERE s.token = $1 AND s.expires_at > NOW()`,
		accessToken,
	).Scan(&ident.ID, &ident.Email, &ident.EmailConfirmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, ErrInvalidSession
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ident, nil
}

// RevokeSession deletes the session row for the token.
func (p *LocalProvider) RevokeSession(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	if _, err := p.pool.Exec(ctx, `DELETE FROM identity_sessions WHERE token = $1`, accessToken); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// CreateAccount inserts a new account with a bcrypt password hash.
func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string, confirmed bool) (Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, err
	}
	id := uuid.NewString()
	_, err = p.pool.Exec(ctx,
		`INSERT INTO identity_accounts (id, email, password_hash, confirmed, created_at) VALUES ($1, lower($2), $3, $4, NOW())`,
		id, email, string(hash), confirmed,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Identity{}, ErrDuplicateAccount
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Identity{ID: id, Email: email, EmailConfirmed: confirmed}, nil
}

// DeleteAccount removes the account and any sessions it holds.
func (p *LocalProvider) DeleteAccount(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM identity_accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	_, _ = p.pool.Exec(ctx, `DELETE FROM identity_sessions WHERE account_id = $1`, id)
	return nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

var _ Provider = (*LocalProvider)(nil)
