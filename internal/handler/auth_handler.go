package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tmarlen/quillpost/internal/domain"
	"github.com/tmarlen/quillpost/internal/service"
)

// AuthHandler serves registration and sign-in.
type AuthHandler struct {
	auth   *service.AuthService
	logger zerolog.Logger
}

// NewAuthHandler creates a new authentication handler.
func NewAuthHandler(auth *service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger.With().Str("handler", "auth").Logger(),
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// SignUp handles POST /api/auth/signup. Asking for the admin role while an
// admin already exists returns {"replaceAdmin": true} with nothing created;
// the client confirms via ReplaceAdmin.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.auth.SignUp(r.Context(), service.SignUpInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	if result.AdminExists {
		writeJSON(w, http.StatusOK, map[string]bool{"replaceAdmin": true})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

// ReplaceAdmin handles POST /api/auth/replace-admin: deletes the current
// admin and installs the given credentials as the new one.
func (h *AuthHandler) ReplaceAdmin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.auth.ReplaceAdmin(r.Context(), service.SignUpInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	}); err != nil {
		handleError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "Admin replaced successfully"})
}

// SignIn handles POST /api/auth/signin. An unknown username is a 400 while a
// wrong password is a 401.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.auth.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusBadRequest, domain.ErrUserNotFound.Error())
			return
		}
		handleError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token": result.Token,
		"role":  string(result.Role),
	})
}
