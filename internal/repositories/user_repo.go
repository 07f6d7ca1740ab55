package repositories

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Darkthan/AffichApp/internal/models"
	"github.com/Darkthan/AffichApp/internal/storage"
)

const usersFileName = "users.json"

// UserRepository persists users as a single flat JSON array, fully read and
// fully rewritten per mutation. The mutex serializes read-modify-write
// cycles on the document.
type UserRepository struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewUserRepository creates a repository rooted at dataDir.
func NewUserRepository(dataDir string, logger *slog.Logger) *UserRepository {
	return &UserRepository{
		path:   filepath.Join(dataDir, usersFileName),
		logger: logger,
	}
}

// List returns all users.
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readAll(), nil
}

// GetByEmail looks up a user by email, case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email = strings.ToLower(email)
	for _, user := range r.readAll() {
		if strings.ToLower(user.Email) == email {
			return user, nil
		}
	}
	return nil, models.ErrNotFound
}

// GetByID looks up a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.readAll() {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, models.ErrNotFound
}

// Create appends a new user, assigning the next id (max existing id + 1).
// Returns ErrConflict if the email is already taken.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.readAll()
	nextID := 1
	for _, existing := range users {
		if strings.EqualFold(existing.Email, user.Email) {
			return nil, models.ErrConflict
		}
		if existing.ID >= nextID {
			nextID = existing.ID + 1
		}
	}

	now := time.Now()
	user.ID = nextID
	user.CreatedAt = now
	user.UpdatedAt = now

	users = append(users, user)
	if err := r.writeAll(users); err != nil {
		return nil, err
	}
	return user, nil
}

// Update applies fn to the user with the given id and persists the result.
func (r *UserRepository) Update(ctx context.Context, id int, fn func(user *models.User)) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.readAll()
	for _, user := range users {
		if user.ID == id {
			fn(user)
			user.UpdatedAt = time.Now()
			if err := r.writeAll(users); err != nil {
				return nil, err
			}
			return user, nil
		}
	}
	return nil, models.ErrNotFound
}

// Delete removes the user with the given id.
func (r *UserRepository) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.readAll()
	for i, user := range users {
		if user.ID == id {
			users = append(users[:i], users[i+1:]...)
			return r.writeAll(users)
		}
	}
	return models.ErrNotFound
}

// readAll loads the users document, degrading to an empty list on any
// storage failure. Callers must hold r.mu.
func (r *UserRepository) readAll() []*models.User {
	users := make([]*models.User, 0)
	if _, err := storage.ReadDocument(r.path, &users); err != nil {
		r.logger.Warn("users store unreadable, treating as empty", slog.Any("error", err))
		return make([]*models.User, 0)
	}
	return users
}

func (r *UserRepository) writeAll(users []*models.User) error {
	if err := storage.WriteDocument(r.path, users); err != nil {
		r.logger.Error("failed to persist users", slog.Any("error", err))
		return err
	}
	return nil
}
