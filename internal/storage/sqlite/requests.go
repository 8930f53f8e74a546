package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pet_adoption/internal/models"
	"pet_adoption/internal/storage"
)

const selectRequest = `SELECT id, age, gender, type, name FROM intake_requests`

func (r *SQLiteRepo) SaveRequest(ctx context.Context, req models.IntakeRequest) (int64, error) {
	const op = "storage.sqlite.SaveRequest"

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO intake_requests (age, gender, type, name)
		VALUES (?, ?, ?, ?)
	`, req.Age, string(req.Gender), req.Type, req.Name)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) requestWhere(ctx context.Context, where string, arg any) (models.IntakeRequest, error) {
	var req models.IntakeRequest

	err := r.db.GetContext(ctx, &req, selectRequest+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.IntakeRequest{}, storage.ErrRequestNotFound
	}

	return req, err
}

func (r *SQLiteRepo) Request(ctx context.Context, id int64) (models.IntakeRequest, error) {
	return r.requestWhere(ctx, ` WHERE id = ?`, id)
}

func (r *SQLiteRepo) RequestByName(ctx context.Context, name string) (models.IntakeRequest, error) {
	return r.requestWhere(ctx, ` WHERE name = ? ORDER BY id LIMIT 1`, name)
}

func (r *SQLiteRepo) Requests(ctx context.Context) ([]models.IntakeRequest, error) {
	const op = "storage.sqlite.Requests"

	reqs := make([]models.IntakeRequest, 0)
	if err := r.db.SelectContext(ctx, &reqs, selectRequest+` ORDER BY id`); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return reqs, nil
}

func (r *SQLiteRepo) UpdateRequest(ctx context.Context, req models.IntakeRequest) error {
	const op = "storage.sqlite.UpdateRequest"

	res, err := r.db.ExecContext(ctx, `
		UPDATE intake_requests SET age = ?, gender = ?, type = ?, name = ?
		WHERE id = ?
	`, req.Age, string(req.Gender), req.Type, req.Name, req.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrRequestNotFound
	}

	return nil
}

func (r *SQLiteRepo) DeleteRequest(ctx context.Context, id int64) error {
	const op = "storage.sqlite.DeleteRequest"

	res, err := r.db.ExecContext(ctx, `DELETE FROM intake_requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrRequestNotFound
	}

	return nil
}
