package services

import (
	"log/slog"
	"sort"
	"time"

	"github.com/Darkthan/AffichApp/internal/models"
	pkglogger "github.com/Darkthan/AffichApp/pkg/logger"
)

// Fail2BanStore defines the persistence interface for the ban ledger and
// its policy document.
type Fail2BanStore interface {
	ReadConfig() models.Fail2BanConfig
	WriteConfig(config models.Fail2BanConfig) error
	Update(fn func(attempts map[string]models.BanRecord) bool) error
	Snapshot() map[string]models.BanRecord
}

// Fail2BanService is the policy engine deciding when an IP transitions to
// banned and when it is released. The config is re-read on every evaluation
// so admin edits apply without a restart; expiry is lazy, there is no
// background sweep.
type Fail2BanService struct {
	store       Fail2BanStore
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewFail2BanService creates a new Fail2BanService
func NewFail2BanService(store Fail2BanStore, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *Fail2BanService {
	return &Fail2BanService{
		store:       store,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// IsBanned reports whether the IP is currently banned and, if so, until
// when. A ban whose expiry has passed is purged on this read (lazy expiry).
// Always reports not-banned while enforcement is disabled.
func (s *Fail2BanService) IsBanned(ip string) (time.Time, bool) {
	config := s.store.ReadConfig()
	if !config.Enabled {
		return time.Time{}, false
	}

	var bannedUntil time.Time
	banned := false

	_ = s.store.Update(func(attempts map[string]models.BanRecord) bool {
		record, exists := attempts[ip]
		if !exists || record.BannedUntil == 0 {
			return false
		}

		now := time.Now()
		if record.Banned(now) {
			bannedUntil = time.UnixMilli(record.BannedUntil)
			banned = true
			return false
		}

		// Ban expired, purge the record
		delete(attempts, ip)
		return true
	})

	return bannedUntil, banned
}

// RecordFailedAttempt counts a failed login against the IP. The attempt
// that reaches the configured threshold triggers the ban and is reported
// as justBanned so the caller can shape the response around the fresh ban.
// No-op while enforcement is disabled.
func (s *Fail2BanService) RecordFailedAttempt(ip string) (justBanned bool, bannedUntil time.Time) {
	config := s.store.ReadConfig()
	if !config.Enabled {
		return false, time.Time{}
	}

	_ = s.store.Update(func(attempts map[string]models.BanRecord) bool {
		now := time.Now()
		pruneExpired(attempts, now)

		record, exists := attempts[ip]
		if !exists {
			record = models.BanRecord{Count: 1, FirstAttempt: now.UnixMilli()}
		} else {
			record.Count++
		}

		// The triggering attempt counts toward the threshold
		if record.Count >= config.MaxAttempts {
			until := now.Add(time.Duration(config.BanDuration) * time.Minute)
			record.BannedUntil = until.UnixMilli()
			justBanned = true
			bannedUntil = until
		}

		attempts[ip] = record

		if justBanned {
			s.logger.Warn("ip banned",
				slog.String("ip", ip),
				slog.Int("attempts", record.Count),
				slog.Time("banned_until", bannedUntil))
			s.auditLogger.LogBanEvent("ip_banned", ip, record.Count, bannedUntil)
		}
		return true
	})

	return justBanned, bannedUntil
}

// ResetAttempts forgets the IP entirely, called after a successful login.
// No-op if the IP has no record.
func (s *Fail2BanService) ResetAttempts(ip string) {
	_ = s.store.Update(func(attempts map[string]models.BanRecord) bool {
		if _, exists := attempts[ip]; !exists {
			return false
		}
		delete(attempts, ip)
		return true
	})
}

// UnbanIP is the administrative override: it deletes the record regardless
// of ban state and reports whether one existed.
func (s *Fail2BanService) UnbanIP(ip string) bool {
	existed := false
	_ = s.store.Update(func(attempts map[string]models.BanRecord) bool {
		if _, exists := attempts[ip]; !exists {
			return false
		}
		delete(attempts, ip)
		existed = true
		return true
	})

	if existed {
		s.logger.Info("ip unbanned manually", slog.String("ip", ip))
		s.auditLogger.LogBanEvent("ip_unbanned", ip, 0, time.Time{})
	}
	return existed
}

// GetBannedIPs returns all currently-banned records, empty while
// enforcement is disabled.
func (s *Fail2BanService) GetBannedIPs() []models.BannedIP {
	config := s.store.ReadConfig()
	banned := make([]models.BannedIP, 0)
	if !config.Enabled {
		return banned
	}

	now := time.Now()
	for ip, record := range s.store.Snapshot() {
		if record.Banned(now) {
			banned = append(banned, models.BannedIP{
				IP:           ip,
				BannedUntil:  record.BannedUntil,
				Attempts:     record.Count,
				FirstAttempt: record.FirstAttempt,
			})
		}
	}

	sort.Slice(banned, func(i, j int) bool { return banned[i].IP < banned[j].IP })
	return banned
}

// GetStats summarizes the ledger: bans still being served, attempt records
// below the threshold, and the total record count.
func (s *Fail2BanService) GetStats() models.Fail2BanStats {
	config := s.store.ReadConfig()
	attempts := s.store.Snapshot()

	now := time.Now()
	stats := models.Fail2BanStats{
		Enabled:      config.Enabled,
		MaxAttempts:  config.MaxAttempts,
		BanDuration:  config.BanDuration,
		TotalRecords: len(attempts),
	}
	for _, record := range attempts {
		if record.Banned(now) {
			stats.BannedIPsCount++
		} else if record.BannedUntil == 0 {
			stats.ActiveAttemptsCount++
		}
	}
	return stats
}

// ReadConfig returns the current policy.
func (s *Fail2BanService) ReadConfig() models.Fail2BanConfig {
	return s.store.ReadConfig()
}

// WriteConfig replaces the policy document.
func (s *Fail2BanService) WriteConfig(config models.Fail2BanConfig) error {
	return s.store.WriteConfig(config)
}

// pruneExpired garbage-collects the whole ledger: expired bans go, and
// never-banned records older than the one-hour attempt window go. The
// window is fixed, independent of the configured ban duration.
func pruneExpired(attempts map[string]models.BanRecord, now time.Time) {
	for ip, record := range attempts {
		if record.BannedUntil != 0 && !record.Banned(now) {
			delete(attempts, ip)
		} else if record.Stale(now) {
			delete(attempts, ip)
		}
	}
}
