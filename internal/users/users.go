package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pet_adoption/internal/models"
	"pet_adoption/internal/storage"
)

var (
	ErrUserNotFound = errors.New("User not found")
	ErrRoleNotFound = errors.New("Role not found")
)

type Service struct {
	log     *slog.Logger
	storage Storage
}

type Storage interface {
	Users(ctx context.Context) ([]models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
	Roles(ctx context.Context) ([]models.Role, error)
	AddUserRole(ctx context.Context, userID int64, roleName string) error
}

func New(log *slog.Logger, storage Storage) *Service {
	return &Service{
		log:     log,
		storage: storage,
	}
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	const op = "users.List"

	list, err := s.storage.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

func (s *Service) Get(ctx context.Context, id int64) (models.User, error) {
	const op = "users.Get"

	u, err := s.storage.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (s *Service) Roles(ctx context.Context) ([]models.Role, error) {
	const op = "users.Roles"

	roles, err := s.storage.Roles(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return roles, nil
}

// AddRole attaches an existing role to a user. Adding a role twice is a no-op.
func (s *Service) AddRole(ctx context.Context, userID int64, roleName string) error {
	const op = "users.AddRole"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("uid", userID),
		slog.String("role", roleName),
	)

	if err := s.storage.AddUserRole(ctx, userID, roleName); err != nil {
		switch {
		case errors.Is(err, storage.ErrUserNotFound):
			return ErrUserNotFound
		case errors.Is(err, storage.ErrRoleNotFound):
			return ErrRoleNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("role added")

	return nil
}
