// Package intake manages animals proposed for intake by shelters.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pet_adoption/internal/lib/logger/sl"
	"pet_adoption/internal/models"
	"pet_adoption/internal/storage"
)

var ErrRequestNotFound = errors.New("Request not found")

type Service struct {
	log     *slog.Logger
	storage RequestStorage
}

type RequestStorage interface {
	SaveRequest(ctx context.Context, req models.IntakeRequest) (int64, error)
	Request(ctx context.Context, id int64) (models.IntakeRequest, error)
	Requests(ctx context.Context) ([]models.IntakeRequest, error)
	UpdateRequest(ctx context.Context, req models.IntakeRequest) error
	DeleteRequest(ctx context.Context, id int64) error
}

func New(log *slog.Logger, storage RequestStorage) *Service {
	return &Service{
		log:     log,
		storage: storage,
	}
}

func (s *Service) List(ctx context.Context) ([]models.IntakeRequest, error) {
	const op = "intake.List"

	list, err := s.storage.Requests(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

func (s *Service) Get(ctx context.Context, id int64) (models.IntakeRequest, error) {
	const op = "intake.Get"

	req, err := s.storage.Request(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrRequestNotFound) {
			return models.IntakeRequest{}, ErrRequestNotFound
		}

		return models.IntakeRequest{}, fmt.Errorf("%s: %w", op, err)
	}

	return req, nil
}

func (s *Service) Create(ctx context.Context, req models.IntakeRequest) (models.IntakeRequest, error) {
	const op = "intake.Create"

	log := s.log.With(slog.String("op", op))

	id, err := s.storage.SaveRequest(ctx, req)
	if err != nil {
		log.Error("failed to save request", sl.Err(err))
		return models.IntakeRequest{}, fmt.Errorf("%s: %w", op, err)
	}
	req.ID = id

	log.Info("intake request created", slog.Int64("id", id))

	return req, nil
}

func (s *Service) Update(ctx context.Context, id int64, req models.IntakeRequest) (models.IntakeRequest, error) {
	const op = "intake.Update"

	req.ID = id

	if err := s.storage.UpdateRequest(ctx, req); err != nil {
		if errors.Is(err, storage.ErrRequestNotFound) {
			return models.IntakeRequest{}, ErrRequestNotFound
		}

		return models.IntakeRequest{}, fmt.Errorf("%s: %w", op, err)
	}

	return req, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	const op = "intake.Delete"

	if err := s.storage.DeleteRequest(ctx, id); err != nil {
		if errors.Is(err, storage.ErrRequestNotFound) {
			return ErrRequestNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("intake request deleted", slog.String("op", op), slog.Int64("id", id))

	return nil
}
