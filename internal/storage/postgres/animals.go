package postgres

import (
	"context"
	"errors"
	"fmt"

	"pet_adoption/internal/models"
	"pet_adoption/internal/storage"

	"github.com/jackc/pgx/v5"
)

const selectAnimal = `SELECT id, age, gender, type, name, adoption_state, owner_id FROM animals`

func scanAnimal(row scanner) (models.Animal, error) {
	var a models.Animal

	err := row.Scan(&a.ID, &a.Age, &a.Gender, &a.Type, &a.Name, &a.AdoptionState, &a.OwnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Animal{}, storage.ErrAnimalNotFound
		}

		return models.Animal{}, err
	}

	return a, nil
}

func (r *PostgresRepo) SaveAnimal(ctx context.Context, a models.Animal) (int64, error) {
	const op = "storage.postgres.SaveAnimal"

	state := a.AdoptionState
	if state == "" {
		state = models.AdoptionNone
	}

	var id int64

	err := r.pool.QueryRow(ctx, `
		INSERT INTO animals (age, gender, type, name, adoption_state, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`, a.Age, a.Gender, a.Type, a.Name, state, a.OwnerID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) Animal(ctx context.Context, id int64) (models.Animal, error) {
	return scanAnimal(r.pool.QueryRow(ctx, selectAnimal+` WHERE id = $1`, id))
}

func (r *PostgresRepo) AnimalByName(ctx context.Context, name string) (models.Animal, error) {
	return scanAnimal(r.pool.QueryRow(ctx, selectAnimal+` WHERE name = $1 ORDER BY id LIMIT 1`, name))
}

func (r *PostgresRepo) Animals(ctx context.Context) ([]models.Animal, error) {
	return r.queryAnimals(ctx, selectAnimal+` ORDER BY id`)
}

func (r *PostgresRepo) AnimalsByState(ctx context.Context, state models.AdoptionState) ([]models.Animal, error) {
	return r.queryAnimals(ctx, selectAnimal+` WHERE adoption_state = $1 ORDER BY id`, state)
}

func (r *PostgresRepo) queryAnimals(ctx context.Context, query string, args ...any) ([]models.Animal, error) {
	const op = "storage.postgres.queryAnimals"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	animals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Animal, error) {
		return scanAnimal(row)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return animals, nil
}

// UpdateAnimal rewrites the descriptive fields. Adoption state is changed
// only through SetAdoptionState.
func (r *PostgresRepo) UpdateAnimal(ctx context.Context, a models.Animal) error {
	const op = "storage.postgres.UpdateAnimal"

	tag, err := r.pool.Exec(ctx, `
		UPDATE animals SET age = $1, gender = $2, type = $3, name = $4
		WHERE id = $5
	`, a.Age, a.Gender, a.Type, a.Name, a.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrAnimalNotFound
	}

	return nil
}

func (r *PostgresRepo) SetAdoptionState(ctx context.Context, id int64, state models.AdoptionState, ownerID *int64) error {
	const op = "storage.postgres.SetAdoptionState"

	tag, err := r.pool.Exec(ctx, `
		UPDATE animals SET adoption_state = $1, owner_id = $2
		WHERE id = $3
	`, state, ownerID, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrAnimalNotFound
	}

	return nil
}

func (r *PostgresRepo) DeleteAnimal(ctx context.Context, id int64) error {
	const op = "storage.postgres.DeleteAnimal"

	tag, err := r.pool.Exec(ctx, `DELETE FROM animals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrAnimalNotFound
	}

	return nil
}
