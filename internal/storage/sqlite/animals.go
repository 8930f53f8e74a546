package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pet_adoption/internal/models"
	"pet_adoption/internal/storage"
)

const selectAnimal = `SELECT id, age, gender, type, name, adoption_state, owner_id FROM animals`

func (r *SQLiteRepo) SaveAnimal(ctx context.Context, a models.Animal) (int64, error) {
	const op = "storage.sqlite.SaveAnimal"

	state := a.AdoptionState
	if state == "" {
		state = models.AdoptionNone
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO animals (age, gender, type, name, adoption_state, owner_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.Age, string(a.Gender), a.Type, a.Name, string(state), a.OwnerID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) animalWhere(ctx context.Context, where string, arg any) (models.Animal, error) {
	var a models.Animal

	err := r.db.GetContext(ctx, &a, selectAnimal+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Animal{}, storage.ErrAnimalNotFound
	}

	return a, err
}

func (r *SQLiteRepo) Animal(ctx context.Context, id int64) (models.Animal, error) {
	return r.animalWhere(ctx, ` WHERE id = ?`, id)
}

func (r *SQLiteRepo) AnimalByName(ctx context.Context, name string) (models.Animal, error) {
	return r.animalWhere(ctx, ` WHERE name = ? ORDER BY id LIMIT 1`, name)
}

func (r *SQLiteRepo) Animals(ctx context.Context) ([]models.Animal, error) {
	const op = "storage.sqlite.Animals"

	animals := make([]models.Animal, 0)
	if err := r.db.SelectContext(ctx, &animals, selectAnimal+` ORDER BY id`); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return animals, nil
}

func (r *SQLiteRepo) AnimalsByState(ctx context.Context, state models.AdoptionState) ([]models.Animal, error) {
	const op = "storage.sqlite.AnimalsByState"

	animals := make([]models.Animal, 0)
	if err := r.db.SelectContext(ctx, &animals, selectAnimal+` WHERE adoption_state = ? ORDER BY id`, string(state)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return animals, nil
}

func (r *SQLiteRepo) UpdateAnimal(ctx context.Context, a models.Animal) error {
	const op = "storage.sqlite.UpdateAnimal"

	res, err := r.db.ExecContext(ctx, `
		UPDATE animals SET age = ?, gender = ?, type = ?, name = ?
		WHERE id = ?
	`, a.Age, string(a.Gender), a.Type, a.Name, a.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrAnimalNotFound
	}

	return nil
}

func (r *SQLiteRepo) SetAdoptionState(ctx context.Context, id int64, state models.AdoptionState, ownerID *int64) error {
	const op = "storage.sqlite.SetAdoptionState"

	res, err := r.db.ExecContext(ctx, `
		UPDATE animals SET adoption_state = ?, owner_id = ?
		WHERE id = ?
	`, string(state), ownerID, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrAnimalNotFound
	}

	return nil
}

func (r *SQLiteRepo) DeleteAnimal(ctx context.Context, id int64) error {
	const op = "storage.sqlite.DeleteAnimal"

	res, err := r.db.ExecContext(ctx, `DELETE FROM animals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrAnimalNotFound
	}

	return nil
}
