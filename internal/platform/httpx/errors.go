package httpx

import (
	"errors"
	"net/http"

	"github.com/pressroom-cms/pressroom/internal/shared"
)

// RespondError maps the shared error taxonomy to HTTP problem responses.
// Infrastructure errors never leak detail to the caller.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "Unauthenticated", "please log in")
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrExpired):
		Problem(w, http.StatusGone, "Expired", err.Error())
	case errors.Is(err, shared.ErrInvalid):
		Problem(w, http.StatusBadRequest, "Invalid", err.Error())
	case errors.Is(err, shared.ErrUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Unavailable", "try again later")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
