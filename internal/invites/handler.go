package invites

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pressroom-cms/pressroom/internal/authz"
	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

// Handler exposes invitation issuance and acceptance over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountIssueRoutes registers the privileged issuance route.
func (h *Handler) MountIssueRoutes(r chi.Router) {
	r.Post("/", h.issue)
}

// MountAcceptRoutes registers the unauthenticated verify/accept routes.
func (h *Handler) MountAcceptRoutes(r chi.Router) {
	r.Get("/", h.verify)
	r.Post("/", h.accept)
}

type issueForm struct {
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"name" validate:"required,max=200"`
	RoleID int64  `json:"role_id" validate:"required,gt=0"`
}

type acceptForm struct {
	Token    string `json:"token" validate:"required"`
	Name     string `json:"name" validate:"required,max=200"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	var form issueForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid", "malformed request body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid", err.Error())
		return
	}
	inv, err := h.service.Issue(r.Context(), actor, form.Email, form.Name, form.RoleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	claims, err := h.service.VerifyToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, claims)
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	var form acceptForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid", "malformed request body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid", err.Error())
		return
	}
	user, err := h.service.Accept(r.Context(), form.Token, form.Name, form.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("invitation accepted", slog.Int64("user_id", user.ID))
	httpx.JSON(w, http.StatusCreated, user)
}
