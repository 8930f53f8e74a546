// Package seed inserts the demo roles, users, animals and intake requests.
// Every row is looked up by its natural key first, so Run is idempotent.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pet_adoption/internal/models"
	"pet_adoption/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

type Storage interface {
	SaveRole(ctx context.Context, name string) (models.Role, error)

	UserByUsername(ctx context.Context, username string) (models.User, error)
	SaveUser(ctx context.Context, u models.User) (int64, error)

	AnimalByName(ctx context.Context, name string) (models.Animal, error)
	SaveAnimal(ctx context.Context, a models.Animal) (int64, error)

	RequestByName(ctx context.Context, name string) (models.IntakeRequest, error)
	SaveRequest(ctx context.Context, req models.IntakeRequest) (int64, error)
}

var roles = []string{
	models.RoleAdmin,
	models.RoleUser,
	models.RoleDoctor,
	models.RoleShelter,
}

// Demo accounts log in with their username as password.
var demoUsers = []struct {
	username string
	role     string
}{
	{"admin", models.RoleAdmin},
	{"user", models.RoleUser},
	{"doctor", models.RoleDoctor},
	{"shelter", models.RoleShelter},
}

var demoAnimals = []models.Animal{
	{Name: "Pepper", Age: 2, Gender: models.GenderFemale, Type: "Cat"},
	{Name: "Nova", Age: 1, Gender: models.GenderMale, Type: "Dog"},
}

var demoRequests = []models.IntakeRequest{
	{Name: "Alex", Age: 8, Gender: models.GenderMale, Type: "Dog"},
	{Name: "Coco", Age: 8, Gender: models.GenderMale, Type: "Parrot"},
}

// Run seeds the store and reports how many rows it created.
func Run(ctx context.Context, log *slog.Logger, st Storage) (int, error) {
	const op = "seed.Run"

	log = log.With(slog.String("op", op))

	created := 0

	for _, req := range demoRequests {
		_, err := st.RequestByName(ctx, req.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrRequestNotFound) {
			return created, fmt.Errorf("%s: %w", op, err)
		}

		if _, err := st.SaveRequest(ctx, req); err != nil {
			return created, fmt.Errorf("%s: save request %q: %w", op, req.Name, err)
		}
		created++
	}

	for _, a := range demoAnimals {
		_, err := st.AnimalByName(ctx, a.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrAnimalNotFound) {
			return created, fmt.Errorf("%s: %w", op, err)
		}

		a.AdoptionState = models.AdoptionNone
		if _, err := st.SaveAnimal(ctx, a); err != nil {
			return created, fmt.Errorf("%s: save animal %q: %w", op, a.Name, err)
		}
		created++
	}

	// SaveRole is an upsert.
	for _, name := range roles {
		if _, err := st.SaveRole(ctx, name); err != nil {
			return created, fmt.Errorf("%s: save role %q: %w", op, name, err)
		}
	}

	for _, du := range demoUsers {
		_, err := st.UserByUsername(ctx, du.username)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrUserNotFound) {
			return created, fmt.Errorf("%s: %w", op, err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(du.username), bcrypt.DefaultCost)
		if err != nil {
			return created, fmt.Errorf("%s: %w", op, err)
		}

		_, err = st.SaveUser(ctx, models.User{
			Username:      du.username,
			Email:         du.username + "@hua.gr",
			PassHash:      hash,
			Roles:         []string{du.role},
			EmailVerified: true,
		})
		if err != nil {
			return created, fmt.Errorf("%s: save user %q: %w", op, du.username, err)
		}
		created++
	}

	log.Info("seed finished", slog.Int("created", created))

	return created, nil
}
