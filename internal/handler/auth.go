package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/msomdec/library-api/internal/domain"
	"github.com/msomdec/library-api/internal/service"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// HandleRegister processes a JSON registration request.
// POST /auth/register
// Request:  {"username":"...","email":"...","password":"..."}
// Response: {"id":"...","username":"...","email":"..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := readJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateUsername):
			writeMessage(w, http.StatusConflict, "Username already exists.")
		case errors.Is(err, domain.ErrDuplicateEmail):
			writeMessage(w, http.StatusConflict, "Email already exists.")
		case errors.Is(err, domain.ErrInvalidInput):
			writeMessage(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("register user", "error", err)
			writeMessage(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		}
		return
	}

	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// HandleLogin exchanges credentials for a bearer token.
// POST /auth/login
// Request:  {"username":"...","password":"..."}
// Response: {"token":"..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := readJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		slog.Error("login user", "error", err)
		writeMessage(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}
