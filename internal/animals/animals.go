package animals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pet_adoption/internal/lib/logger/sl"
	"pet_adoption/internal/models"
	"pet_adoption/internal/storage"
)

var (
	ErrAnimalNotFound = errors.New("Animal not found")
	ErrUserNotFound   = errors.New("User not found")
)

// AcceptedMessage is returned to the client once an adoption is accepted.
const AcceptedMessage = "Adoption accepted, animal deleted, and email sent."

type Service struct {
	log      *slog.Logger
	storage  AnimalStorage
	users    UserProvider
	notifier Notifier
}

type AnimalStorage interface {
	SaveAnimal(ctx context.Context, a models.Animal) (int64, error)
	Animal(ctx context.Context, id int64) (models.Animal, error)
	Animals(ctx context.Context) ([]models.Animal, error)
	UpdateAnimal(ctx context.Context, a models.Animal) error
	SetAdoptionState(ctx context.Context, id int64, state models.AdoptionState, ownerID *int64) error
	DeleteAnimal(ctx context.Context, id int64) error
}

type UserProvider interface {
	UserByUsername(ctx context.Context, username string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
}

type Notifier interface {
	SendAdoptionAccepted(ctx context.Context, to, animalName string)
}

func New(log *slog.Logger, storage AnimalStorage, users UserProvider, notifier Notifier) *Service {
	return &Service{
		log:      log,
		storage:  storage,
		users:    users,
		notifier: notifier,
	}
}

func (s *Service) List(ctx context.Context) ([]models.Animal, error) {
	const op = "animals.List"

	list, err := s.storage.Animals(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

func (s *Service) Get(ctx context.Context, id int64) (models.Animal, error) {
	const op = "animals.Get"

	a, err := s.storage.Animal(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrAnimalNotFound) {
			return models.Animal{}, ErrAnimalNotFound
		}

		return models.Animal{}, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

// Create stores a new animal that is open for adoption.
func (s *Service) Create(ctx context.Context, a models.Animal) (models.Animal, error) {
	const op = "animals.Create"

	log := s.log.With(slog.String("op", op))

	a.AdoptionState = models.AdoptionNone
	a.OwnerID = nil

	id, err := s.storage.SaveAnimal(ctx, a)
	if err != nil {
		log.Error("failed to save animal", sl.Err(err))
		return models.Animal{}, fmt.Errorf("%s: %w", op, err)
	}
	a.ID = id

	log.Info("animal created", slog.Int64("id", id))

	return a, nil
}

// Update replaces the descriptive fields. The adoption state is left alone.
func (s *Service) Update(ctx context.Context, id int64, a models.Animal) (models.Animal, error) {
	const op = "animals.Update"

	a.ID = id

	if err := s.storage.UpdateAnimal(ctx, a); err != nil {
		if errors.Is(err, storage.ErrAnimalNotFound) {
			return models.Animal{}, ErrAnimalNotFound
		}

		return models.Animal{}, fmt.Errorf("%s: %w", op, err)
	}

	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	const op = "animals.Delete"

	if err := s.storage.DeleteAnimal(ctx, id); err != nil {
		if errors.Is(err, storage.ErrAnimalNotFound) {
			return ErrAnimalNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("animal deleted", slog.String("op", op), slog.Int64("id", id))

	return nil
}

// * RequestAdoption marks the animal as requested by the named user.
func (s *Service) RequestAdoption(ctx context.Context, id int64, username string) (models.Animal, error) {
	const op = "animals.RequestAdoption"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("id", id),
		slog.String("username", username),
	)

	user, err := s.users.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.Animal{}, ErrUserNotFound
		}

		return models.Animal{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.setState(ctx, id, models.AdoptionPending, &user.ID); err != nil {
		return models.Animal{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("adoption requested")

	return s.Get(ctx, id)
}

// * DenyAdoption closes the open request and clears the owner.
func (s *Service) DenyAdoption(ctx context.Context, id int64) (models.Animal, error) {
	const op = "animals.DenyAdoption"

	if err := s.setState(ctx, id, models.AdoptionDenied, nil); err != nil {
		return models.Animal{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("adoption denied", slog.String("op", op), slog.Int64("id", id))

	return s.Get(ctx, id)
}

// * AcceptAdoption mails the requesting user, if any, and removes the animal.
// The removal happens regardless of the mail outcome.
func (s *Service) AcceptAdoption(ctx context.Context, id int64) error {
	const op = "animals.AcceptAdoption"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("id", id),
	)

	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if a.OwnerID != nil {
		owner, err := s.users.UserByID(ctx, *a.OwnerID)
		switch {
		case err == nil:
			s.notifier.SendAdoptionAccepted(ctx, owner.Email, a.Name)
		case errors.Is(err, storage.ErrUserNotFound):
			log.Warn("owner not found, skipping email", slog.Int64("owner_id", *a.OwnerID))
		default:
			log.Error("failed to load owner", sl.Err(err))
		}
	}

	if err := s.Delete(ctx, id); err != nil {
		return err
	}

	log.Info("adoption accepted")

	return nil
}

func (s *Service) setState(ctx context.Context, id int64, state models.AdoptionState, ownerID *int64) error {
	if err := s.storage.SetAdoptionState(ctx, id, state, ownerID); err != nil {
		if errors.Is(err, storage.ErrAnimalNotFound) {
			return ErrAnimalNotFound
		}

		return err
	}

	return nil
}
