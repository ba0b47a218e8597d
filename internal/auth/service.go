package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pressroom-cms/pressroom/internal/authz"
	"github.com/pressroom-cms/pressroom/internal/identity"
	"github.com/pressroom-cms/pressroom/internal/shared"
	"github.com/pressroom-cms/pressroom/internal/users"
)

// DomainPolicy restricts which email domains may sign in. Satisfied by the
// domains service.
type DomainPolicy interface {
	Allows(ctx context.Context, email string) (bool, error)
}

// Service wraps the login and logout flows around the identity provider.
type Service struct {
	provider identity.Provider
	engine   *authz.Engine
	users    *users.Service
	domains  DomainPolicy
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(provider identity.Provider, engine *authz.Engine, userService *users.Service, domains DomainPolicy, logger *slog.Logger) *Service {
	return &Service{provider: provider, engine: engine, users: userService, domains: domains, logger: logger}
}

// Login exchanges credentials for an access token and the resolved actor. A
// profile still in the invited state is activated here, since a successful
// password login proves the invitee finished setup. Credential failures and
// disabled profiles collapse into the same generic error.
func (s *Service) Login(ctx context.Context, email, password string) (authz.Actor, string, error) {
	if s.domains != nil {
		allowed, err := s.domains.Allows(ctx, email)
		if err != nil {
			return authz.Actor{}, "", fmt.Errorf("%w: try again", shared.ErrUnavailable)
		}
		if !allowed {
			return authz.Actor{}, "", fmt.Errorf("%w: email domain is not allowed", shared.ErrForbidden)
		}
	}

	ident, token, err := s.provider.Authenticate(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			return authz.Actor{}, "", fmt.Errorf("%w: invalid email or password", shared.ErrUnauthenticated)
		case errors.Is(err, identity.ErrUnavailable):
			return authz.Actor{}, "", fmt.Errorf("%w: try again", shared.ErrUnavailable)
		default:
			if s.logger != nil {
				s.logger.Error("authenticate", slog.Any("error", err))
			}
			return authz.Actor{}, "", fmt.Errorf("%w: try again", shared.ErrUnavailable)
		}
	}

	user, err := s.users.ActivateAfterSetup(ctx, ident.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrConflict) {
			// Credential exists but no usable profile does. Revoke the token we
			// just minted and deny without explaining which half failed.
			s.revokeBestEffort(ctx, token)
			return authz.Actor{}, "", fmt.Errorf("%w: invalid email or password", shared.ErrUnauthenticated)
		}
		s.revokeBestEffort(ctx, token)
		return authz.Actor{}, "", fmt.Errorf("%w: try again", shared.ErrUnavailable)
	}

	actor, err := s.engine.ResolveIdentity(ctx, token)
	if err != nil {
		s.revokeBestEffort(ctx, token)
		return authz.Actor{}, "", err
	}

	s.users.RecordLogin(ctx, user.ID)
	return actor, token, nil
}

// Logout revokes the access token at the provider. Revocation failure is not
// fatal: the local session is destroyed either way.
func (s *Service) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	s.revokeBestEffort(ctx, token)
}

// Permissions lists the actor's effective permission keys for the client.
func (s *Service) Permissions(ctx context.Context, actor authz.Actor) ([]string, error) {
	return s.engine.ListPermissions(ctx, actor)
}

func (s *Service) revokeBestEffort(ctx context.Context, token string) {
	if err := s.provider.RevokeSession(ctx, token); err != nil && s.logger != nil {
		s.logger.Warn("revoke session", slog.Any("error", err))
	}
}
