package handlers

import (
	"errors"
	"net/http"

	"dance-ops/internal/config"
	"dance-ops/internal/middleware"
	"dance-ops/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	cfg   *config.Config
	store Store
	log   *zap.Logger
}

func NewAuthHandler(cfg *config.Config, store Store, log *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, store: store, log: log}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, models.ErrNotFound) {
		jsonError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.log.Info("failed login", zap.String("email", req.Email))
		jsonError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	http.SetCookie(w, middleware.CreateSessionCookie(user.ID.String(), user.Email, user.Role, h.cfg.SessionSecret, !h.cfg.IsDevelopment()))
	jsonResponse(w, http.StatusOK, userJSON(user))
}

// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, middleware.ClearSessionCookie(!h.cfg.IsDevelopment()))
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/me - returns current user info
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(middleware.GetUserID(r))
	if err != nil {
		jsonError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if errors.Is(err, models.ErrNotFound) {
		// Account removed after the cookie was issued.
		jsonError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	resp := userJSON(user)
	resp["is_admin"] = IsAdmin(r)
	resp["is_moderator"] = IsModerator(r)
	jsonResponse(w, http.StatusOK, resp)
}

func userJSON(u *models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":    u.ID,
		"email": u.Email,
		"role":  u.Role,
	}
}
