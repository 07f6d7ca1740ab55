package repositories

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/Darkthan/AffichApp/internal/models"
	"github.com/Darkthan/AffichApp/internal/storage"
)

const (
	configFileName   = "fail2ban-config.json"
	attemptsFileName = "fail2ban-attempts.json"
)

// Fail2BanRepository persists the ban policy and the per-IP attempt ledger
// as two flat JSON documents. Every mutation is a full read-modify-write of
// the relevant document; the mutex serializes those cycles so concurrent
// failed attempts for the same IP cannot lose updates.
type Fail2BanRepository struct {
	mu           sync.Mutex
	configPath   string
	attemptsPath string
	logger       *slog.Logger
}

// NewFail2BanRepository creates a repository rooted at dataDir.
func NewFail2BanRepository(dataDir string, logger *slog.Logger) *Fail2BanRepository {
	return &Fail2BanRepository{
		configPath:   filepath.Join(dataDir, configFileName),
		attemptsPath: filepath.Join(dataDir, attemptsFileName),
		logger:       logger,
	}
}

// ReadConfig loads the persisted policy. An absent, corrupt, or unreadable
// document degrades to the defaults; storage trouble is logged, never
// surfaced to the caller.
func (r *Fail2BanRepository) ReadConfig() models.Fail2BanConfig {
	config := models.DefaultFail2BanConfig()
	if _, err := storage.ReadDocument(r.configPath, &config); err != nil {
		r.logger.Warn("fail2ban config unreadable, using defaults", slog.Any("error", err))
		return models.DefaultFail2BanConfig()
	}
	return config
}

// WriteConfig replaces the persisted policy.
func (r *Fail2BanRepository) WriteConfig(config models.Fail2BanConfig) error {
	return storage.WriteDocument(r.configPath, config)
}

// Update runs fn over the current attempts map under the repository lock
// and persists the result. fn receives the freshly-read map and returns
// whether it mutated it; unchanged maps are not rewritten.
func (r *Fail2BanRepository) Update(fn func(attempts map[string]models.BanRecord) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	attempts := r.readAttempts()
	if !fn(attempts) {
		return nil
	}
	if err := storage.WriteDocument(r.attemptsPath, attempts); err != nil {
		r.logger.Error("failed to persist ban ledger", slog.Any("error", err))
		return err
	}
	return nil
}

// Snapshot returns a copy of the current attempts map for read-only use.
func (r *Fail2BanRepository) Snapshot() map[string]models.BanRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readAttempts()
}

// readAttempts loads the ledger document, degrading to an empty map on any
// storage failure. Callers must hold r.mu.
func (r *Fail2BanRepository) readAttempts() map[string]models.BanRecord {
	attempts := make(map[string]models.BanRecord)
	if _, err := storage.ReadDocument(r.attemptsPath, &attempts); err != nil {
		r.logger.Warn("ban ledger unreadable, treating as empty", slog.Any("error", err))
		return make(map[string]models.BanRecord)
	}
	return attempts
}
