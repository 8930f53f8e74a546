package postgres

import (
	"context"
	"errors"
	"fmt"

	"pet_adoption/internal/models"
	"pet_adoption/internal/storage"

	"github.com/jackc/pgx/v5"
)

const selectRequest = `SELECT id, age, gender, type, name FROM intake_requests`

func scanRequest(row scanner) (models.IntakeRequest, error) {
	var req models.IntakeRequest

	err := row.Scan(&req.ID, &req.Age, &req.Gender, &req.Type, &req.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.IntakeRequest{}, storage.ErrRequestNotFound
		}

		return models.IntakeRequest{}, err
	}

	return req, nil
}

func (r *PostgresRepo) SaveRequest(ctx context.Context, req models.IntakeRequest) (int64, error) {
	const op = "storage.postgres.SaveRequest"

	var id int64

	err := r.pool.QueryRow(ctx, `
		INSERT INTO intake_requests (age, gender, type, name)
		VALUES ($1, $2, $3, $4)
		RETURNING id;
	`, req.Age, req.Gender, req.Type, req.Name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) Request(ctx context.Context, id int64) (models.IntakeRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx, selectRequest+` WHERE id = $1`, id))
}

func (r *PostgresRepo) RequestByName(ctx context.Context, name string) (models.IntakeRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx, selectRequest+` WHERE name = $1 ORDER BY id LIMIT 1`, name))
}

func (r *PostgresRepo) Requests(ctx context.Context) ([]models.IntakeRequest, error) {
	const op = "storage.postgres.Requests"

	rows, err := r.pool.Query(ctx, selectRequest+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reqs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.IntakeRequest, error) {
		return scanRequest(row)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return reqs, nil
}

func (r *PostgresRepo) UpdateRequest(ctx context.Context, req models.IntakeRequest) error {
	const op = "storage.postgres.UpdateRequest"

	tag, err := r.pool.Exec(ctx, `
		UPDATE intake_requests SET age = $1, gender = $2, type = $3, name = $4
		WHERE id = $5
	`, req.Age, req.Gender, req.Type, req.Name, req.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrRequestNotFound
	}

	return nil
}

func (r *PostgresRepo) DeleteRequest(ctx context.Context, id int64) error {
	const op = "storage.postgres.DeleteRequest"

	tag, err := r.pool.Exec(ctx, `DELETE FROM intake_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrRequestNotFound
	}

	return nil
}
