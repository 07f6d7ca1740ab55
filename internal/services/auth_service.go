package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Darkthan/AffichApp/internal/auth"
	"github.com/Darkthan/AffichApp/internal/models"
	pkgauth "github.com/Darkthan/AffichApp/pkg/auth"
	pkglogger "github.com/Darkthan/AffichApp/pkg/logger"
)

// UserRepository defines the user lookup interface the auth flow consumes.
// The credential store itself is an external collaborator; only lookup and
// the password-change write are needed here.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	Update(ctx context.Context, id int, fn func(user *models.User)) (*models.User, error)
}

// AuthService composes IP-keyed ban checks, credential verification, and
// token issuance into the login protocol.
type AuthService struct {
	users       UserRepository
	fail2ban    *Fail2BanService
	tm          *auth.TokenManager
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserRepository, fail2ban *Fail2BanService, tm *auth.TokenManager, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		users:       users,
		fail2ban:    fail2ban,
		tm:          tm,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// LoginResponse is the success payload of a login.
type LoginResponse struct {
	Token    string               `json:"token"`
	User     *models.UserResponse `json:"user"`
	ClientIP string               `json:"clientIp"`
}

// Login runs the login protocol for one attempt from clientIP.
//
// The ban check runs before any credential work: a banned IP never reaches
// the user store. Unknown email and wrong password are indistinguishable to
// the caller (both ErrUnauthorized) and both count against the IP's ledger
// entry. A successful login resets the entry and mints a session token.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (*LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if bannedUntil, banned := s.fail2ban.IsBanned(clientIP); banned {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_rejected",
			IPAddress:     clientIP,
			FailureReason: "ip_banned",
			Success:       false,
		})
		return nil, &models.BanError{IP: clientIP, BannedUntil: bannedUntil}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Log without exposing whether the email existed
			s.logger.Info("login failed: invalid credentials", slog.String("ip", clientIP))
			return nil, s.recordFailure(clientIP, "invalid_credentials")
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Info("login failed: invalid credentials", slog.String("ip", clientIP))
		return nil, s.recordFailure(clientIP, "invalid_credentials")
	}

	s.fail2ban.ResetAttempts(clientIP)

	token, err := s.tm.Generate(user.ID, user.Role)
	if err != nil {
		s.logger.Error("failed to sign session token", slog.Int("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.Int("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: clientIP,
		Success:   true,
	})

	return &LoginResponse{
		Token:    token,
		User:     user.ToResponse(),
		ClientIP: clientIP,
	}, nil
}

// recordFailure counts the failed attempt against the IP. The response must
// not reveal whether the email existed, so both failure paths funnel here.
// If this very attempt crossed the threshold, the caller gets the fresh-ban
// error carrying the configured duration instead of a computed remainder.
func (s *AuthService) recordFailure(clientIP, reason string) error {
	justBanned, bannedUntil := s.fail2ban.RecordFailedAttempt(clientIP)

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		IPAddress:     clientIP,
		FailureReason: reason,
		Success:       false,
	})

	if justBanned {
		return &models.BanError{
			IP:              clientIP,
			BannedUntil:     bannedUntil,
			JustBanned:      true,
			DurationMinutes: s.fail2ban.ReadConfig().BanDuration,
		}
	}
	return models.ErrUnauthorized
}

// ChangePassword replaces the user's own password hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID int, password string) error {
	if err := pkgauth.ValidatePassword(password); err != nil {
		return models.ErrBadRequest
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if _, err := s.users.Update(ctx, userID, func(user *models.User) {
		user.PasswordHash = hash
	}); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to update password", slog.Int("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("password_changed", userID, "")
	return nil
}
