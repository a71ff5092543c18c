package api

import (
	"context"
	"errors"
	"net/http"

	"usersvc/cmd/identity"
	"usersvc/cmd/internal/validation"
)

func isValidation(err error) bool {
	var errs validation.Errors
	return errors.As(err, &errs)
}

func isInvalidCredentials(err error) bool { return identity.IsInvalidCredentials(err) }

// writeServiceError maps service errors onto the error envelope.
// credStatus is the status used for InvalidCredentials, which differs between
// login (401) and password change (400).
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, event string, credStatus int, err error) {
	var errs validation.Errors
	switch {
	case errors.As(err, &errs):
		writeValidation(w, errs)
	case identity.IsInvalidCredentials(err):
		writeError(w, credStatus, "invalid_credentials", "invalid credentials")
	case identity.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", "user not found")
	case identity.IsConflict(err):
		writeError(w, http.StatusConflict, "conflict", "email already exists")
	case identity.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid input")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.log.Warn(event+".aborted", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
	case identity.IsUnavailable(err):
		h.log.Error(event+".store_unavailable", "err", err, "path", r.URL.Path)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "storage unavailable")
	default:
		h.log.Error(event+".fail", "err", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}
