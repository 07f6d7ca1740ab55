package handlers_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Darkthan/AffichApp/internal/auth"
	"github.com/Darkthan/AffichApp/internal/handlers"
	"github.com/Darkthan/AffichApp/internal/models"
	"github.com/Darkthan/AffichApp/internal/repositories"
	"github.com/Darkthan/AffichApp/internal/services"
	pkgauth "github.com/Darkthan/AffichApp/pkg/auth"
	pkglogger "github.com/Darkthan/AffichApp/pkg/logger"
	"github.com/stretchr/testify/require"
)

// testEnv wires the full handler stack against real repositories in a
// per-test data directory.
type testEnv struct {
	authHandler     *handlers.AuthHandler
	fail2banHandler *handlers.Fail2BanHandler
	userHandler     *handlers.UserHandler
	fail2ban        *services.Fail2BanService
	users           *repositories.UserRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	auditLogger := pkglogger.NewAuditLogger(logger)
	dataDir := t.TempDir()

	userRepo := repositories.NewUserRepository(dataDir, logger)
	fail2banRepo := repositories.NewFail2BanRepository(dataDir, logger)

	fail2banSvc := services.NewFail2BanService(fail2banRepo, logger, auditLogger)
	userSvc := services.NewUserService(userRepo, logger)
	tm := auth.NewTokenManager("handler-test-secret", time.Hour)
	authSvc := services.NewAuthService(userRepo, fail2banSvc, tm, logger, auditLogger)

	return &testEnv{
		authHandler:     handlers.NewAuthHandler(authSvc, userSvc, nil),
		fail2banHandler: handlers.NewFail2BanHandler(fail2banSvc),
		userHandler:     handlers.NewUserHandler(userSvc),
		fail2ban:        fail2banSvc,
		users:           userRepo,
	}
}

func (e *testEnv) seedUser(t *testing.T, email, password string, role models.Role) *models.User {
	t.Helper()
	hash, err := pkgauth.HashPassword(password)
	require.NoError(t, err)
	user, err := e.users.Create(context.Background(), &models.User{
		Name:         "Test User",
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	})
	require.NoError(t, err)
	return user
}
