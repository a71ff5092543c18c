// Package api exposes the user service over HTTP under /api/v1/users and
// /api/v2/users. Version 2 adds the password change endpoint.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"usersvc/cmd/identity"
	"usersvc/cmd/internal/patch"
	"usersvc/cmd/internal/users"

	"github.com/go-chi/chi/v5"
)

const defaultMaxBodyBytes = 1 << 20

type Config struct {
	MaxBodyBytes int64
}

// Handler wires HTTP endpoints to the user service.
type Handler struct {
	log     *slog.Logger
	cfg     Config
	svc     *users.Service
	tokens  TokenVerifier
	metrics *Metrics
}

type HandlerOption func(*Handler)

func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) {
		if m != nil {
			h.metrics = m
		}
	}
}

func NewHandler(log *slog.Logger, cfg Config, svc *users.Service, tokens TokenVerifier, opts ...HandlerOption) (*Handler, error) {
	if svc == nil || tokens == nil {
		return nil, errors.New("users api: nil dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	h := &Handler{log: log, cfg: cfg, svc: svc, tokens: tokens}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register mounts both API versions on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1/users", func(r chi.Router) { h.routes(r, 1) })
	r.Route("/api/v2/users", func(r chi.Router) { h.routes(r, 2) })
}

func (h *Handler) routes(r chi.Router, version int) {
	r.Post("/", h.handleCreate)
	r.Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.AuthN)

		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Patch("/{id}", h.handlePatch)
		if version >= 2 {
			r.Patch("/{id}/password", h.handleChangePassword)
		}

		r.With(h.AuthZ(identity.RoleAdmin)).Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	v, err := h.svc.Create(r.Context(), users.CreateInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeServiceError(w, r, "users.api.create", http.StatusUnauthorized, err)
		return
	}

	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+v.ID)
	writeJSON(w, http.StatusCreated, toUserResponse(v))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	res, err := h.svc.Authenticate(r.Context(), users.LoginInput{Email: req.Email, Password: req.Password})
	h.metrics.login(outcomeOf(err))
	if err != nil {
		h.writeServiceError(w, r, "users.api.login", http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		TokenType: "Bearer",
		ExpiresAt: res.ExpiresAt,
		User:      toUserResponse(res.User),
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	vs, err := h.svc.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "users.api.list", http.StatusUnauthorized, err)
		return
	}
	out := make([]userResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, toUserResponse(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "users.api.get", http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(v))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	v, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), users.UpdateInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		h.writeServiceError(w, r, "users.api.update", http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(v))
}

func (h *Handler) handlePatch(w http.ResponseWriter, r *http.Request) {
	// A JSON null body decodes to a nil slice, which the service rejects.
	var ops []patch.Operation
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &ops); err != nil {
		writeDecodeError(w, err)
		return
	}

	v, err := h.svc.Patch(r.Context(), chi.URLParam(r, "id"), ops)
	if err != nil {
		h.writeServiceError(w, r, "users.api.patch", http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(v))
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	err := h.svc.ChangePassword(r.Context(), chi.URLParam(r, "id"), users.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	h.metrics.passwordChange(outcomeOf(err))
	if err != nil {
		h.writeServiceError(w, r, "users.api.change_password", http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, "users.api.delete", http.StatusUnauthorized, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
