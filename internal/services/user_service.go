package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Darkthan/AffichApp/internal/models"
	pkgauth "github.com/Darkthan/AffichApp/pkg/auth"
)

// UserStore is the full persistence interface for user management.
type UserStore interface {
	UserRepository
	List(ctx context.Context) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id int) error
}

// UserService handles user management business logic (admin surface).
type UserService struct {
	repo   UserStore
	logger *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(repo UserStore, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// List returns safe projections of all users.
func (s *UserService) List(ctx context.Context) ([]*models.UserResponse, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, models.ErrInternalServer
	}
	out := make([]*models.UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, user.ToResponse())
	}
	return out, nil
}

// Get returns the safe projection of one user.
func (s *UserService) Get(ctx context.Context, id int) (*models.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// Create adds a user with the given role and a bcrypt-hashed password.
func (s *UserService) Create(ctx context.Context, name, email string, role models.Role, password string) (*models.UserResponse, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" || email == "" {
		return nil, models.ErrBadRequest
	}
	if !role.Valid() {
		return nil, models.ErrBadRequest
	}
	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, models.ErrBadRequest
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.repo.Create(ctx, &models.User{
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user created", slog.Int("user_id", user.ID), slog.String("role", string(user.Role)))
	return user.ToResponse(), nil
}

// UserUpdate carries the optional fields of a user PATCH.
type UserUpdate struct {
	Name     *string
	Email    *string
	Role     *models.Role
	Password *string
}

// Update applies the provided fields to the user. An email change is
// rejected with ErrConflict if another user already holds the address.
func (s *UserService) Update(ctx context.Context, id int, changes UserUpdate) (*models.UserResponse, error) {
	if changes.Role != nil && !changes.Role.Valid() {
		return nil, models.ErrBadRequest
	}

	if changes.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*changes.Email))
		if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing.ID != id {
			return nil, models.ErrConflict
		}
		changes.Email = &email
	}

	var hash string
	if changes.Password != nil && *changes.Password != "" {
		if err := pkgauth.ValidatePassword(*changes.Password); err != nil {
			return nil, models.ErrBadRequest
		}
		var err error
		if hash, err = pkgauth.HashPassword(*changes.Password); err != nil {
			s.logger.Error("failed to hash password", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	user, err := s.repo.Update(ctx, id, func(user *models.User) {
		if changes.Name != nil {
			user.Name = *changes.Name
		}
		if changes.Email != nil {
			user.Email = *changes.Email
		}
		if changes.Role != nil {
			user.Role = *changes.Role
		}
		if hash != "" {
			user.PasswordHash = hash
		}
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update user", slog.Int("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return user.ToResponse(), nil
}

// Delete removes a user.
func (s *UserService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete user", slog.Int("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// SeedAdminIfEmpty creates the bootstrap admin account when the store has
// no users at all.
func (s *UserService) SeedAdminIfEmpty(ctx context.Context, email, password string) error {
	users, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return err
	}

	admin, err := s.repo.Create(ctx, &models.User{
		Name:         "Admin",
		Email:        strings.ToLower(email),
		Role:         models.RoleAdmin,
		PasswordHash: hash,
	})
	if err != nil {
		return err
	}

	s.logger.Info("admin user seeded", slog.Int("user_id", admin.ID), slog.String("email", admin.Email))
	return nil
}
