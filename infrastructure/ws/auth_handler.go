package ws

import (
	"encoding/json"
	goerrors "errors"
	"log/slog"
	"net/http"

	"chat-relay/errors"
	"chat-relay/services"
)

// AuthHandler is the HTTP face of account creation and login. It only
// exists so clients can obtain the bearer token the gateway expects.
type AuthHandler struct {
	log     *slog.Logger
	service services.IAuthService
}

func NewAuthHandler(log *slog.Logger, service services.IAuthService) *AuthHandler {
	return &AuthHandler{log: log, service: service}
}

func (h *AuthHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	token, err := h.service.Register(r.Context(), services.RegisterCommand{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, tokenResponse{Token: token.String()})
	case goerrors.Is(err, errors.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "username already taken")
	case goerrors.Is(err, errors.ErrInvalidPassword):
		writeError(w, http.StatusBadRequest, "invalid registration data")
	default:
		h.log.Error("Registration failed", "err", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
	}
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	token, err := h.service.Login(req.Username, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, tokenResponse{Token: token.String()})
	case goerrors.Is(err, errors.ErrBadCredentials):
		writeError(w, http.StatusUnauthorized, "bad credentials")
	default:
		h.log.Error("Login failed", "err", err)
		writeError(w, http.StatusInternalServerError, "login failed")
	}
}
