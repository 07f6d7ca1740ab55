package models

import "time"

// Fail2BanConfig is the persisted, admin-editable ban policy. It is re-read
// on every evaluation so admin edits take effect without a restart.
type Fail2BanConfig struct {
	Enabled     bool `json:"enabled"`
	MaxAttempts int  `json:"maxAttempts"`
	BanDuration int  `json:"banDuration"` // minutes
}

// DefaultFail2BanConfig returns the policy used when no config document
// exists or the stored one cannot be read.
func DefaultFail2BanConfig() Fail2BanConfig {
	return Fail2BanConfig{
		Enabled:     true,
		MaxAttempts: 5,
		BanDuration: 15,
	}
}

// BanRecord tracks consecutive failed login attempts for one normalized IP.
// Timestamps are milliseconds since epoch, matching the on-disk document.
// BannedUntil is zero until Count reaches the configured threshold.
type BanRecord struct {
	Count        int   `json:"count"`
	FirstAttempt int64 `json:"firstAttempt"`
	BannedUntil  int64 `json:"bannedUntil,omitempty"`
}

// Banned reports whether the record carries an unexpired ban.
func (r BanRecord) Banned(now time.Time) bool {
	return r.BannedUntil > 0 && r.BannedUntil > now.UnixMilli()
}

// Stale reports whether a never-banned record has aged out of the
// one-hour attempt window and should be garbage collected.
func (r BanRecord) Stale(now time.Time) bool {
	return r.BannedUntil == 0 && now.UnixMilli()-r.FirstAttempt >= time.Hour.Milliseconds()
}

// BannedIP is the admin-facing projection of an active ban.
type BannedIP struct {
	IP           string `json:"ip"`
	BannedUntil  int64  `json:"bannedUntil"`
	Attempts     int    `json:"attempts"`
	FirstAttempt int64  `json:"firstAttempt"`
}

// Fail2BanStats summarizes the ledger for the admin dashboard.
type Fail2BanStats struct {
	Enabled             bool `json:"enabled"`
	MaxAttempts         int  `json:"maxAttempts"`
	BanDuration         int  `json:"banDuration"`
	BannedIPsCount      int  `json:"bannedIpsCount"`
	ActiveAttemptsCount int  `json:"activeAttemptsCount"`
	TotalRecords        int  `json:"totalRecords"`
}
