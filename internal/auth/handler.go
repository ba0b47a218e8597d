package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pressroom-cms/pressroom/internal/authz"
	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/forgot-password", h.handleForgotPassword)
}

// MountSessionRoutes registers routes that require an authenticated actor.
func (h *Handler) MountSessionRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Redirect string `json:"redirect"`
}

type loginResponse struct {
	User        actorView `json:"user"`
	Permissions []string  `json:"permissions"`
	Redirect    string    `json:"redirect"`
}

type actorView struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid", "malformed request body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid", "email and password are required")
		return
	}

	actor, token, err := h.service.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.RespondError(w, shared.ErrUnavailable)
		return
	}
	sess.SetUser(strconv.FormatInt(actor.ID, 10))
	sess.SetAccessToken(token)

	perms, err := h.service.Permissions(r.Context(), actor)
	if err != nil {
		h.logger.Warn("list permissions", slog.Any("error", err))
		perms = []string{}
	}

	httpx.JSON(w, http.StatusOK, loginResponse{
		User:        viewOf(actor),
		Permissions: perms,
		Redirect:    safeRedirect(form.Redirect),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.service.Logout(r.Context(), sess.AccessToken())
		h.sessionManager.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"redirect": authz.LoginPath})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	perms, err := h.service.Permissions(r.Context(), actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{User: viewOf(actor), Permissions: perms})
}

// handleForgotPassword always acknowledges so the endpoint cannot be used to
// probe which emails exist. The reset itself is handled by the identity
// provider's own flow.
func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var form struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid", "malformed request body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid", "a valid email is required")
		return
	}
	h.logger.Info("password reset requested", slog.String("email", form.Email))
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func viewOf(actor authz.Actor) actorView {
	return actorView{
		ID:           actor.ID,
		Email:        actor.Email,
		Name:         actor.Name,
		Role:         actor.Role.Name,
		IsSuperAdmin: actor.Role.IsSuperAdmin,
	}
}

// safeRedirect keeps post-login redirects inside the panel. Anything that is
// not a plain local path falls back to the dashboard.
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return authz.DashboardPath
	}
	return target
}
