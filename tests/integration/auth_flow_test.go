package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/Darkthan/AffichApp/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginFlow(t *testing.T) {
	ts := NewTestServer(t.TempDir())
	defer ts.Close()
	SeedTestUsers(t, ts)

	resp, err := ts.Login(UserEmail, UserPassword, "198.51.100.7")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp struct {
		Token    string `json:"token"`
		User     *models.UserResponse
		ClientIP string `json:"clientIp"`
	}
	require.NoError(t, ParseJSONResponse(resp, &loginResp))
	require.NotEmpty(t, loginResp.Token)
	assert.Equal(t, UserEmail, loginResp.User.Email)
	assert.Equal(t, models.RoleRequester, loginResp.User.Role)
	assert.Equal(t, "198.51.100.7", loginResp.ClientIP)

	// The token opens the authenticated surface
	resp, err = ts.RequestWithAuth(http.MethodGet, "/api/auth/me", loginResp.Token, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var meResp struct {
		User *models.UserResponse `json:"user"`
	}
	require.NoError(t, ParseJSONResponse(resp, &meResp))
	assert.Equal(t, UserEmail, meResp.User.Email)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := NewTestServer(t.TempDir())
	defer ts.Close()
	SeedTestUsers(t, ts)

	resp, err := ts.Login(UserEmail, "wrong-password", "198.51.100.7")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBanFlow(t *testing.T) {
	ts := NewTestServer(t.TempDir())
	defer ts.Close()
	SeedTestUsers(t, ts)

	attacker := "203.0.113.9"
	for i := 0; i < 4; i++ {
		resp, err := ts.Login(UserEmail, "wrong", attacker)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "attempt %d", i+1)
	}

	// The fifth failure crosses the threshold
	resp, err := ts.Login(UserEmail, "wrong", attacker)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	var banned struct {
		Error       string `json:"error"`
		Message     string `json:"message"`
		BannedUntil int64  `json:"bannedUntil"`
		ClientIP    string `json:"clientIp"`
	}
	require.NoError(t, ParseJSONResponse(resp, &banned))
	assert.Equal(t, "ip_banned", banned.Error)
	assert.Equal(t, attacker, banned.ClientIP)
	assert.Greater(t, banned.BannedUntil, time.Now().UnixMilli())

	// Correct credentials do not lift the ban
	resp, err = ts.Login(UserEmail, UserPassword, attacker)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Another address logs in fine
	token, err := ts.LoginToken(UserEmail, UserPassword, "198.51.100.7")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestAdminUnbansViaAPI(t *testing.T) {
	ts := NewTestServer(t.TempDir())
	defer ts.Close()
	SeedTestUsers(t, ts)

	attacker := "203.0.113.9"
	for i := 0; i < 5; i++ {
		resp, err := ts.Login(UserEmail, "wrong", attacker)
		require.NoError(t, err)
		resp.Body.Close()
	}

	adminToken, err := ts.LoginToken(AdminEmail, AdminPassword, "198.51.100.1")
	require.NoError(t, err)
	require.NotEmpty(t, adminToken)

	// The ban shows up on the admin surface
	resp, err := ts.RequestWithAuth(http.MethodGet, "/api/fail2ban/banned", adminToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var bannedList []models.BannedIP
	require.NoError(t, ParseJSONResponse(resp, &bannedList))
	require.Len(t, bannedList, 1)
	assert.Equal(t, attacker, bannedList[0].IP)

	// Unban and log in again from the previously banned address
	resp, err = ts.RequestWithAuth(http.MethodDelete, fmt.Sprintf("/api/fail2ban/banned/%s", attacker), adminToken, nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	token, err := ts.LoginToken(UserEmail, UserPassword, attacker)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestFail2BanAdminSurfaceRequiresAdminRole(t *testing.T) {
	ts := NewTestServer(t.TempDir())
	defer ts.Close()
	SeedTestUsers(t, ts)

	userToken, err := ts.LoginToken(UserEmail, UserPassword, "198.51.100.7")
	require.NoError(t, err)
	require.NotEmpty(t, userToken)

	paths := []string{
		"/api/fail2ban/config",
		"/api/fail2ban/banned",
		"/api/fail2ban/stats",
		"/api/users",
	}
	for _, path := range paths {
		resp, err := ts.RequestWithAuth(http.MethodGet, path, userToken, nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, "path %s", path)
	}

	// And without a token at all the answer is 401
	resp, err := ts.Request(http.MethodGet, "/api/fail2ban/config", nil, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConfigChangeAppliesImmediately(t *testing.T) {
	ts := NewTestServer(t.TempDir())
	defer ts.Close()
	SeedTestUsers(t, ts)

	adminToken, err := ts.LoginToken(AdminEmail, AdminPassword, "198.51.100.1")
	require.NoError(t, err)
	require.NotEmpty(t, adminToken)

	resp, err := ts.RequestWithAuth(http.MethodPatch, "/api/fail2ban/config", adminToken, map[string]int{
		"maxAttempts": 2,
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	attacker := "203.0.113.50"
	resp, err = ts.Login(UserEmail, "wrong", attacker)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = ts.Login(UserEmail, "wrong", attacker)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestPasswordChangeFlow(t *testing.T) {
	ts := NewTestServer(t.TempDir())
	defer ts.Close()
	SeedTestUsers(t, ts)

	token, err := ts.LoginToken(UserEmail, UserPassword, "198.51.100.7")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	resp, err := ts.RequestWithAuth(http.MethodPatch, "/api/auth/me/password", token, map[string]string{
		"password": "new-password",
		"confirm":  "new-password",
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Old password no longer works, the new one does
	resp, err = ts.Login(UserEmail, UserPassword, "198.51.100.7")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	newToken, err := ts.LoginToken(UserEmail, "new-password", "198.51.100.7")
	require.NoError(t, err)
	assert.NotEmpty(t, newToken)
}
