package authz

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pressroom-cms/pressroom/internal/observability"
	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

// Middleware wires the engine into the HTTP layer.
type Middleware struct {
	Engine  *Engine
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Gate resolves identity for every request and applies the route gate. The
// resolved actor is placed in context for downstream permission checks.
func (m Middleware) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var token string
		if sess := shared.SessionFromContext(ctx); sess != nil {
			token = sess.AccessToken()
		}

		state := StateUnauthenticated
		actor, err := m.Engine.ResolveIdentity(ctx, token)
		switch {
		case err == nil:
			state = StateAuthenticated
		case errors.Is(err, shared.ErrUnavailable):
			state = StateUnavailable
		}

		decision := GuardRoute(r.URL.Path, state)
		if !decision.Allow {
			if m.Metrics != nil && state != StateAuthenticated {
				m.Metrics.AuthDenied(denialReason(state))
			}
			http.Redirect(w, r, decision.RedirectURL(), http.StatusSeeOther)
			return
		}

		if state == StateAuthenticated {
			ctx = ContextWithActor(ctx, actor)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAny ensures the current actor has at least one of the permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			for _, perm := range perms {
				granted, err := m.Engine.HasPermission(r.Context(), actor, perm)
				if err != nil {
					if m.Logger != nil {
						m.Logger.Error("permission check", slog.String("perm", perm), slog.Any("error", err))
					}
					httpx.RespondError(w, shared.ErrUnavailable)
					return
				}
				if granted {
					next.ServeHTTP(w, r)
					return
				}
			}
			if m.Metrics != nil {
				m.Metrics.AuthDenied("forbidden")
			}
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

func denialReason(state SessionState) string {
	if state == StateUnavailable {
		return "unavailable"
	}
	return "unauthenticated"
}
