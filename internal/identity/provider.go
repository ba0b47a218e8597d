// Package identity abstracts the external authentication service that owns
// credentials and sessions. The application never trusts a cookie-derived
// value without a round trip through a Provider.
package identity

import (
	"context"
	"errors"
)

// Identity is the provider-side account record.
type Identity struct {
	ID             string
	Email          string
	EmailConfirmed bool
}

// Sentinel errors returned by providers.
var (
	// ErrInvalidCredentials indicates a failed email/password login.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrInvalidSession indicates a missing, expired or revoked access token.
	ErrInvalidSession = errors.New("identity: invalid session")
	// ErrDuplicateAccount indicates the email is already registered.
	ErrDuplicateAccount = errors.New("identity: duplicate account")
	// ErrNotFound indicates the account does not exist.
	ErrNotFound = errors.New("identity: account not found")
	// ErrUnavailable indicates the provider could not be reached. Callers must
	// treat it as deny, never as allow.
	ErrUnavailable = errors.New("identity: unavailable")
)

// Provider is the boundary to the hosted auth service. The privileged client
// handle behind an implementation is constructed once at startup and injected;
// it is never an ambient global.
type Provider interface {
	// Authenticate exchanges credentials for an identity and an access token.
	Authenticate(ctx context.Context, email, password string) (Identity, string, error)
	// ValidateSession verifies an access token against the provider.
	ValidateSession(ctx context.Context, accessToken string) (Identity, error)
	// RevokeSession invalidates an access token.
	RevokeSession(ctx context.Context, accessToken string) error
	// CreateAccount registers a new account. When confirmed is true the email
	// is marked verified without a confirmation round trip.
	CreateAccount(ctx context.Context, email, password string, confirmed bool) (Identity, error)
	// DeleteAccount removes an account and its sessions.
	DeleteAccount(ctx context.Context, id string) error
}
