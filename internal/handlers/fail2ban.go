package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Darkthan/AffichApp/internal/services"
	pkghttp "github.com/Darkthan/AffichApp/pkg/http"
	"github.com/go-chi/chi/v5"
)

// Fail2BanHandler exposes the admin surface of the ban policy engine.
type Fail2BanHandler struct {
	service *services.Fail2BanService
}

// NewFail2BanHandler creates a new Fail2BanHandler
func NewFail2BanHandler(service *services.Fail2BanService) *Fail2BanHandler {
	return &Fail2BanHandler{service: service}
}

// ConfigUpdateRequest carries the optional fields of a config PATCH.
// Absent fields keep their current values; non-positive numbers are
// ignored the same way.
type ConfigUpdateRequest struct {
	Enabled     *bool `json:"enabled"`
	MaxAttempts *int  `json:"maxAttempts"`
	BanDuration *int  `json:"banDuration"`
}

// GetConfig handles GET /api/fail2ban/config.
func (h *Fail2BanHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, h.service.ReadConfig())
}

// UpdateConfig handles PATCH /api/fail2ban/config.
func (h *Fail2BanHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req ConfigUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	config := h.service.ReadConfig()
	if req.Enabled != nil {
		config.Enabled = *req.Enabled
	}
	if req.MaxAttempts != nil && *req.MaxAttempts > 0 {
		config.MaxAttempts = *req.MaxAttempts
	}
	if req.BanDuration != nil && *req.BanDuration > 0 {
		config.BanDuration = *req.BanDuration
	}

	if err := h.service.WriteConfig(config); err != nil {
		pkghttp.WriteInternalError(w, "Failed to write configuration")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Configuration updated",
		"config":  config,
	})
}

// GetBanned handles GET /api/fail2ban/banned.
func (h *Fail2BanHandler) GetBanned(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, h.service.GetBannedIPs())
}

// Unban handles DELETE /api/fail2ban/banned/{ip}.
func (h *Fail2BanHandler) Unban(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	if !h.service.UnbanIP(ip) {
		pkghttp.WriteNotFound(w, "IP not found in banned list")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("IP %s unbanned", ip),
	})
}

// GetStats handles GET /api/fail2ban/stats.
func (h *Fail2BanHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, h.service.GetStats())
}
