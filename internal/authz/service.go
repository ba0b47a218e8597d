package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pressroom-cms/pressroom/internal/identity"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

// UserStatusActive is the only actor status allowed through authorization.
const UserStatusActive = "active"

// Engine is the single authorization entry point. Every protected boundary
// resolves identity through it; there is no second, looser check path.
type Engine struct {
	provider identity.Provider
	store    DirectoryStore
	logger   *slog.Logger
}

// NewEngine constructs an Engine.
func NewEngine(provider identity.Provider, store DirectoryStore, logger *slog.Logger) *Engine {
	return &Engine{provider: provider, store: store, logger: logger}
}

// ResolveIdentity re-validates the access token against the identity provider
// and loads the matching actor profile. A cookie-derived value alone is never
// trusted. Ambiguity resolves to deny: infrastructure failures return
// shared.ErrUnavailable, everything else shared.ErrUnauthenticated.
func (e *Engine) ResolveIdentity(ctx context.Context, accessToken string) (Actor, error) {
	if accessToken == "" {
		return Actor{}, shared.ErrUnauthenticated
	}

	ident, err := e.provider.ValidateSession(ctx, accessToken)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidSession):
			return Actor{}, shared.ErrUnauthenticated
		case errors.Is(err, identity.ErrUnavailable):
			if e.logger != nil {
				e.logger.Error("identity provider unreachable", slog.Any("error", err))
			}
			return Actor{}, shared.ErrUnavailable
		default:
			if e.logger != nil {
				e.logger.Error("identity validation failed", slog.Any("error", err))
			}
			return Actor{}, shared.ErrUnavailable
		}
	}

	actor, err := e.store.FindActorByIdentity(ctx, ident.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Actor{}, shared.ErrUnauthenticated
		}
		if e.logger != nil {
			e.logger.Error("load actor profile", slog.Any("error", err))
		}
		return Actor{}, shared.ErrUnavailable
	}
	if actor.Status != UserStatusActive {
		return Actor{}, shared.ErrUnauthenticated
	}
	return actor, nil
}

// HasPermission reports whether the actor holds the capability. Super-admin
// roles grant everything without consulting the join table. Unknown keys
// return false, never an error.
func (e *Engine) HasPermission(ctx context.Context, actor Actor, key string) (bool, error) {
	if !KnownKey(key) {
		return false, nil
	}
	if actor.Role.IsSuperAdmin {
		return true, nil
	}
	return e.store.RoleHasPermission(ctx, actor.Role.ID, key)
}

// ListPermissions returns the actor's effective permission keys. Super admins
// receive the entire catalog so "what can I do" reflects reality without
// special-casing every check site.
func (e *Engine) ListPermissions(ctx context.Context, actor Actor) ([]string, error) {
	if actor.Role.IsSuperAdmin {
		return CatalogKeys(), nil
	}
	return e.store.RolePermissionKeys(ctx, actor.Role.ID)
}

// Require returns shared.ErrForbidden when the actor lacks the capability.
// Services call it before every mutation so the route gate is never the only
// line of defence.
func (e *Engine) Require(ctx context.Context, actor Actor, key string) error {
	granted, err := e.HasPermission(ctx, actor, key)
	if err != nil {
		return err
	}
	if !granted {
		return fmt.Errorf("%w: requires %s", shared.ErrForbidden, key)
	}
	return nil
}
