package integration

import (
	"context"
	"testing"

	"github.com/Darkthan/AffichApp/internal/models"
	pkgauth "github.com/Darkthan/AffichApp/pkg/auth"
	"github.com/stretchr/testify/require"
)

// Test fixture credentials
const (
	AdminEmail    = "admin@example.com"
	AdminPassword = "admin123"
	UserEmail     = "requester@example.com"
	UserPassword  = "user-password"
)

// SeedTestUsers creates the standard admin and requester accounts.
func SeedTestUsers(t *testing.T, ts *TestServer) {
	t.Helper()
	createUser(t, ts, "Admin", AdminEmail, AdminPassword, models.RoleAdmin)
	createUser(t, ts, "Requester", UserEmail, UserPassword, models.RoleRequester)
}

func createUser(t *testing.T, ts *TestServer, name, email, password string, role models.Role) *models.User {
	t.Helper()
	hash, err := pkgauth.HashPassword(password)
	require.NoError(t, err)

	user, err := ts.Users.Create(context.Background(), &models.User{
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	})
	require.NoError(t, err)
	return user
}
