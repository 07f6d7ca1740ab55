package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/Darkthan/AffichApp/internal/auth"
	"github.com/Darkthan/AffichApp/internal/models"
	"github.com/Darkthan/AffichApp/internal/repositories"
	"github.com/Darkthan/AffichApp/internal/services"
	pkgauth "github.com/Darkthan/AffichApp/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) (*services.AuthService, *services.Fail2BanService, *repositories.UserRepository) {
	t.Helper()
	dataDir := t.TempDir()
	userRepo := repositories.NewUserRepository(dataDir, testLogger())
	fail2banRepo := repositories.NewFail2BanRepository(dataDir, testLogger())
	fail2ban := services.NewFail2BanService(fail2banRepo, testLogger(), testAuditLogger())
	tm := auth.NewTokenManager("test-secret-for-unit-tests", time.Hour)
	svc := services.NewAuthService(userRepo, fail2ban, tm, testLogger(), testAuditLogger())
	return svc, fail2ban, userRepo
}

func seedUser(t *testing.T, repo *repositories.UserRepository, email, password string, role models.Role) *models.User {
	t.Helper()
	hash, err := pkgauth.HashPassword(password)
	require.NoError(t, err)
	user, err := repo.Create(context.Background(), &models.User{
		Name:         "Test User",
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	})
	require.NoError(t, err)
	return user
}

func TestLogin_Success(t *testing.T) {
	svc, _, userRepo := newAuthService(t)
	seedUser(t, userRepo, "alice@example.com", "goodpass", models.RoleRequester)

	resp, err := svc.Login(context.Background(), "alice@example.com", "goodpass", "203.0.113.42")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.Equal(t, models.RoleRequester, resp.User.Role)
	assert.Equal(t, "203.0.113.42", resp.ClientIP)
}

func TestLogin_EmailCaseInsensitive(t *testing.T) {
	svc, _, userRepo := newAuthService(t)
	seedUser(t, userRepo, "alice@example.com", "goodpass", models.RoleRequester)

	_, err := svc.Login(context.Background(), "  ALICE@Example.COM ", "goodpass", "203.0.113.42")
	assert.NoError(t, err)
}

func TestLogin_UnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	svc, fail2ban, userRepo := newAuthService(t)
	seedUser(t, userRepo, "alice@example.com", "goodpass", models.RoleRequester)

	_, errUnknown := svc.Login(context.Background(), "nobody@example.com", "whatever", "203.0.113.42")
	_, errWrong := svc.Login(context.Background(), "alice@example.com", "badpass", "203.0.113.42")

	assert.ErrorIs(t, errUnknown, models.ErrUnauthorized)
	assert.ErrorIs(t, errWrong, models.ErrUnauthorized)

	// Both variants count toward the same IP's ledger entry
	stats := fail2ban.GetStats()
	assert.Equal(t, 1, stats.TotalRecords)
	assert.Equal(t, 1, stats.ActiveAttemptsCount)
}

func TestLogin_FifthFailureTriggersBan(t *testing.T) {
	svc, _, userRepo := newAuthService(t)
	seedUser(t, userRepo, "alice@example.com", "goodpass", models.RoleRequester)
	ip := "203.0.113.42"

	for i := 0; i < 4; i++ {
		_, err := svc.Login(context.Background(), "alice@example.com", "badpass", ip)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	}

	_, err := svc.Login(context.Background(), "alice@example.com", "badpass", ip)
	var banErr *models.BanError
	require.ErrorAs(t, err, &banErr)
	assert.True(t, banErr.JustBanned)
	assert.Equal(t, 15, banErr.DurationMinutes)
	assert.True(t, banErr.BannedUntil.After(time.Now()))
}

func TestLogin_BannedIPNeverReachesCredentials(t *testing.T) {
	svc, _, userRepo := newAuthService(t)
	seedUser(t, userRepo, "alice@example.com", "goodpass", models.RoleRequester)
	ip := "203.0.113.42"

	for i := 0; i < 5; i++ {
		svc.Login(context.Background(), "alice@example.com", "badpass", ip)
	}

	// Even correct credentials are rejected while the ban is served
	_, err := svc.Login(context.Background(), "alice@example.com", "goodpass", ip)
	var banErr *models.BanError
	require.ErrorAs(t, err, &banErr)
	assert.False(t, banErr.JustBanned)
	assert.LessOrEqual(t, banErr.RemainingMinutes(time.Now()), int64(15))
	assert.Greater(t, banErr.RemainingMinutes(time.Now()), int64(0))
}

func TestLogin_DifferentIPUnaffectedByBan(t *testing.T) {
	svc, _, userRepo := newAuthService(t)
	seedUser(t, userRepo, "alice@example.com", "goodpass", models.RoleRequester)

	for i := 0; i < 5; i++ {
		svc.Login(context.Background(), "alice@example.com", "badpass", "203.0.113.42")
	}

	_, err := svc.Login(context.Background(), "alice@example.com", "goodpass", "198.51.100.7")
	assert.NoError(t, err)
}

func TestLogin_SuccessResetsCounter(t *testing.T) {
	svc, fail2ban, userRepo := newAuthService(t)
	seedUser(t, userRepo, "alice@example.com", "goodpass", models.RoleRequester)
	ip := "203.0.113.42"

	for i := 0; i < 3; i++ {
		svc.Login(context.Background(), "alice@example.com", "badpass", ip)
	}

	_, err := svc.Login(context.Background(), "alice@example.com", "goodpass", ip)
	require.NoError(t, err)
	assert.Equal(t, 0, fail2ban.GetStats().TotalRecords)

	// The next failure counts as the first, not the fourth
	svc.Login(context.Background(), "alice@example.com", "badpass", ip)
	_, banned := fail2ban.IsBanned(ip)
	assert.False(t, banned)
	assert.Equal(t, 1, fail2ban.GetStats().ActiveAttemptsCount)
}

func TestLogin_NeverReturnsPasswordHash(t *testing.T) {
	svc, _, userRepo := newAuthService(t)
	seedUser(t, userRepo, "alice@example.com", "goodpass", models.RoleAdmin)

	resp, err := svc.Login(context.Background(), "alice@example.com", "goodpass", "203.0.113.42")
	require.NoError(t, err)

	// The response carries the safe projection only
	assert.Equal(t, &models.UserResponse{
		ID:    resp.User.ID,
		Email: "alice@example.com",
		Name:  "Test User",
		Role:  models.RoleAdmin,
	}, resp.User)
}

func TestChangePassword(t *testing.T) {
	svc, _, userRepo := newAuthService(t)
	user := seedUser(t, userRepo, "alice@example.com", "oldpass", models.RoleRequester)

	require.NoError(t, svc.ChangePassword(context.Background(), user.ID, "newpass"))

	_, err := svc.Login(context.Background(), "alice@example.com", "oldpass", "203.0.113.42")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = svc.Login(context.Background(), "alice@example.com", "newpass", "198.51.100.1")
	assert.NoError(t, err)
}

func TestChangePassword_TooShort(t *testing.T) {
	svc, _, userRepo := newAuthService(t)
	user := seedUser(t, userRepo, "alice@example.com", "oldpass", models.RoleRequester)

	err := svc.ChangePassword(context.Background(), user.ID, "abc")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestChangePassword_UnknownUser(t *testing.T) {
	svc, _, _ := newAuthService(t)

	err := svc.ChangePassword(context.Background(), 999, "newpass")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
