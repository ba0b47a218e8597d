package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pressroom-cms/pressroom/internal/audit"
	"github.com/pressroom-cms/pressroom/internal/auth"
	"github.com/pressroom-cms/pressroom/internal/authz"
	"github.com/pressroom-cms/pressroom/internal/categories"
	"github.com/pressroom-cms/pressroom/internal/contributors"
	"github.com/pressroom-cms/pressroom/internal/domains"
	"github.com/pressroom-cms/pressroom/internal/invites"
	"github.com/pressroom-cms/pressroom/internal/jobposts"
	"github.com/pressroom-cms/pressroom/internal/observability"
	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/posts"
	"github.com/pressroom-cms/pressroom/internal/roles"
	"github.com/pressroom-cms/pressroom/internal/shared"
	"github.com/pressroom-cms/pressroom/internal/users"
	"github.com/pressroom-cms/pressroom/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guard          authz.Middleware

	AuthHandler         *auth.Handler
	InvitesHandler      *invites.Handler
	UsersHandler        *users.Handler
	RolesHandler        *roles.Handler
	PostsHandler        *posts.Handler
	JobPostsHandler     *jobposts.Handler
	CategoriesHandler   *categories.Handler
	ContributorsHandler *contributors.Handler
	DomainsHandler      *domains.Handler
	AuditHandler        *audit.Handler
	JobHandler          *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router for the panel.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/admin", func(r chi.Router) {
		r.Use(params.Guard.Gate)

		// Clients fetch the CSRF token before their first mutating call.
		r.Get("/csrf", func(w http.ResponseWriter, req *http.Request) {
			sess := shared.SessionFromContext(req.Context())
			token, err := params.CSRFManager.EnsureToken(req.Context(), sess)
			if err != nil {
				httpx.RespondError(w, shared.ErrUnavailable)
				return
			}
			httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
		})

		params.AuthHandler.MountRoutes(r)
		r.Route("/accept-invite", params.InvitesHandler.MountAcceptRoutes)
		params.AuthHandler.MountSessionRoutes(r)

		r.Route("/invites", func(r chi.Router) {
			r.Use(params.Guard.RequireAny(authz.PermUsersCreate))
			params.InvitesHandler.MountIssueRoutes(r)
		})
		r.Route("/users", func(r chi.Router) {
			r.Use(params.Guard.RequireAny(authz.PermUsersView, authz.PermUsersCreate, authz.PermUsersEdit, authz.PermUsersDelete))
			params.UsersHandler.MountRoutes(r)
		})
		r.Route("/roles", func(r chi.Router) {
			r.Use(params.Guard.RequireAny(authz.PermRolesView, authz.PermRolesManage))
			params.RolesHandler.MountRoutes(r)
		})
		r.Route("/posts", func(r chi.Router) {
			r.Use(params.Guard.RequireAny(authz.PermPostsView, authz.PermPostsCreate, authz.PermPostsEdit, authz.PermPostsDelete, authz.PermPostsPublish))
			params.PostsHandler.MountRoutes(r)
		})
		r.Route("/job-posts", func(r chi.Router) {
			r.Use(params.Guard.RequireAny(authz.PermJobPostsView, authz.PermJobPostsCreate, authz.PermJobPostsEdit, authz.PermJobPostsDelete))
			params.JobPostsHandler.MountRoutes(r)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Use(params.Guard.RequireAny(authz.PermCategoriesView, authz.PermCategoriesManage))
			params.CategoriesHandler.MountRoutes(r)
		})
		r.Route("/contributors", func(r chi.Router) {
			r.Use(params.Guard.RequireAny(authz.PermContributorsView, authz.PermContributorsManage))
			params.ContributorsHandler.MountRoutes(r)
		})
		r.Route("/domains", func(r chi.Router) {
			r.Use(params.Guard.RequireAny(authz.PermDomainsManage))
			params.DomainsHandler.MountRoutes(r)
		})
		r.Route("/audit", func(r chi.Router) {
			r.Use(params.Guard.RequireAny(authz.PermAuditView, authz.PermAuditPurge))
			params.AuditHandler.MountRoutes(r)
		})

		// Permission catalog for the role editor UI.
		r.Get("/permissions", func(w http.ResponseWriter, req *http.Request) {
			if _, ok := authz.ActorFromContext(req.Context()); !ok {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			httpx.JSON(w, http.StatusOK, map[string]any{"groups": authz.GroupedCatalog()})
		})

		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			actor, ok := authz.ActorFromContext(req.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			httpx.JSON(w, http.StatusOK, map[string]any{
				"status": "ok",
				"user":   map[string]any{"id": actor.ID, "name": actor.Name, "role": actor.Role.Name},
			})
		})
	})

	return r
}
