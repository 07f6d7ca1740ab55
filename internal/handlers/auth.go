package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Darkthan/AffichApp/internal/auth"
	"github.com/Darkthan/AffichApp/internal/models"
	"github.com/Darkthan/AffichApp/internal/services"
	pkghttp "github.com/Darkthan/AffichApp/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, clientIP string) (*services.LoginResponse, error)
	ChangePassword(ctx context.Context, userID int, password string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	users    *services.UserService
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, users *services.UserService, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		users:    users,
		ipConfig: ipConfig,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents the admin-only user creation body
type RegisterRequest struct {
	Name     string      `json:"name" validate:"required"`
	Email    string      `json:"email" validate:"required,email"`
	Role     models.Role `json:"role" validate:"required"`
	Password string      `json:"password" validate:"required"`
}

// ChangePasswordRequest represents the self password change body
type ChangePasswordRequest struct {
	Password string  `json:"password"`
	Confirm  *string `json:"confirm"`
}

// BannedResponse is the 403 payload returned while a client IP is banned.
type BannedResponse struct {
	Error       string `json:"error"`
	Message     string `json:"message"`
	BannedUntil int64  `json:"bannedUntil"`
	ClientIP    string `json:"clientIp"`
}

// Login handles POST /api/auth/login.
//
// A request missing either field is rejected before the ban ledger is
// touched: malformed input is not a credential failure and must not count
// as an attempt.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "email and password required")
		return
	}
	if req.Email == "" || req.Password == "" {
		pkghttp.WriteBadRequest(w, "email and password required")
		return
	}

	clientIP := pkghttp.ResolveClientIP(r, h.ipConfig)

	resp, err := h.service.Login(r.Context(), req.Email, req.Password, clientIP)
	if err != nil {
		var banErr *models.BanError
		switch {
		case errors.As(err, &banErr):
			writeBanned(w, banErr)
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Invalid credentials")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// writeBanned shapes the 403: a freshly-triggered ban quotes the configured
// duration, an existing ban quotes the remaining minutes (ceiling).
func writeBanned(w http.ResponseWriter, banErr *models.BanError) {
	var message string
	if banErr.JustBanned {
		message = fmt.Sprintf("Too many failed login attempts. You are banned for %d minutes.", banErr.DurationMinutes)
	} else {
		message = fmt.Sprintf("Too many failed login attempts. Try again in %d minutes.", banErr.RemainingMinutes(time.Now()))
	}

	pkghttp.WriteJSON(w, http.StatusForbidden, BannedResponse{
		Error:       "ip_banned",
		Message:     message,
		BannedUntil: banErr.BannedUntil.UnixMilli(),
		ClientIP:    banErr.IP,
	})
}

// Register handles POST /api/auth/register (admin creates users).
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	if !req.Role.Valid() {
		pkghttp.WriteBadRequest(w, "Invalid role")
		return
	}

	user, err := h.users.Create(r.Context(), req.Name, req.Email, req.Role, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Email already exists")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid user data")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, user)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{"user": user})
}

// ChangePassword handles PATCH /api/auth/me/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	password := strings.TrimSpace(req.Password)
	if len(password) < 4 {
		pkghttp.WriteBadRequest(w, "Password too short")
		return
	}
	if req.Confirm != nil && *req.Confirm != req.Password {
		pkghttp.WriteBadRequest(w, "Passwords do not match")
		return
	}

	if err := h.service.ChangePassword(r.Context(), user.ID, req.Password); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Password too short")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
