package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Darkthan/AffichApp/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfig_Defaults(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.fail2banHandler.GetConfig(rec, httptest.NewRequest(http.MethodGet, "/api/fail2ban/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var config models.Fail2BanConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &config))
	assert.Equal(t, models.DefaultFail2BanConfig(), config)
}

func TestUpdateConfig_MergesPartialBody(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"maxAttempts":3}`)
	env.fail2banHandler.UpdateConfig(rec, httptest.NewRequest(http.MethodPatch, "/api/fail2ban/config", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message string                `json:"message"`
		Config  models.Fail2BanConfig `json:"config"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Configuration updated", resp.Message)
	assert.Equal(t, 3, resp.Config.MaxAttempts)
	assert.True(t, resp.Config.Enabled)
	assert.Equal(t, 15, resp.Config.BanDuration)
}

func TestUpdateConfig_IgnoresNonPositiveNumbers(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"enabled":false,"maxAttempts":0,"banDuration":-5}`)
	env.fail2banHandler.UpdateConfig(rec, httptest.NewRequest(http.MethodPatch, "/api/fail2ban/config", body))
	require.Equal(t, http.StatusOK, rec.Code)

	config := env.fail2ban.ReadConfig()
	assert.False(t, config.Enabled)
	assert.Equal(t, 5, config.MaxAttempts)
	assert.Equal(t, 15, config.BanDuration)
}

func TestGetBanned_ListsActiveBans(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 5; i++ {
		env.fail2ban.RecordFailedAttempt("203.0.113.9")
	}

	rec := httptest.NewRecorder()
	env.fail2banHandler.GetBanned(rec, httptest.NewRequest(http.MethodGet, "/api/fail2ban/banned", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var banned []models.BannedIP
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &banned))
	require.Len(t, banned, 1)
	assert.Equal(t, "203.0.113.9", banned[0].IP)
	assert.Equal(t, 5, banned[0].Attempts)
	assert.Greater(t, banned[0].BannedUntil, int64(0))
}

func unbanRequest(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodDelete, "/api/fail2ban/banned/"+ip, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("ip", ip)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestUnban(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 5; i++ {
		env.fail2ban.RecordFailedAttempt("203.0.113.9")
	}

	rec := httptest.NewRecorder()
	env.fail2banHandler.Unban(rec, unbanRequest("203.0.113.9"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "IP 203.0.113.9 unbanned")
	assert.Empty(t, env.fail2ban.GetBannedIPs())

	// A second delete finds nothing
	rec = httptest.NewRecorder()
	env.fail2banHandler.Unban(rec, unbanRequest("203.0.113.9"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "IP not found in banned list")
}

func TestGetStats(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 5; i++ {
		env.fail2ban.RecordFailedAttempt("203.0.113.9")
	}
	env.fail2ban.RecordFailedAttempt("198.51.100.7")

	rec := httptest.NewRecorder()
	env.fail2banHandler.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/fail2ban/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.Fail2BanStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.True(t, stats.Enabled)
	assert.Equal(t, 1, stats.BannedIPsCount)
	assert.Equal(t, 1, stats.ActiveAttemptsCount)
	assert.Equal(t, 2, stats.TotalRecords)
}
