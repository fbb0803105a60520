package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tmarlen/quillpost/internal/auth"
	"github.com/tmarlen/quillpost/internal/domain"
	"github.com/tmarlen/quillpost/internal/service"
)

// UserHandler serves the admin-only user management endpoints.
type UserHandler struct {
	users  *service.UserService
	logger zerolog.Logger
}

// NewUserHandler creates a new user management handler.
func NewUserHandler(users *service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger.With().Str("handler", "user").Logger(),
	}
}

// Block handles PUT /api/user/block/{id}.
func (h *UserHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true, "User blocked successfully")
}

// Unblock handles PUT /api/user/unblock/{id}.
func (h *UserHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false, "User unblocked successfully")
}

func (h *UserHandler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool, message string) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, domain.ErrMissingToken.Error())
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, domain.ErrUserNotFound.Error())
		return
	}

	user, err := h.users.SetBlocked(r.Context(), principal, id, blocked)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"user":    user,
	})
}

// List handles GET /api/user/all. The password hash never serializes.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	result, err := h.users.List(r.Context(), page, limit)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(result.Items))
}
