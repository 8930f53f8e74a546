package postgres

import (
	"context"
	"errors"
	"fmt"

	"pet_adoption/internal/models"
	"pet_adoption/internal/storage"

	"github.com/jackc/pgx/v5"
)

// SaveRole inserts the role or returns the existing one with the same name.
func (r *PostgresRepo) SaveRole(ctx context.Context, name string) (models.Role, error) {
	const op = "storage.postgres.SaveRole"

	var role models.Role

	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name;
	`, name).Scan(&role.ID, &role.Name)
	if err != nil {
		return models.Role{}, fmt.Errorf("%s: %w", op, err)
	}

	return role, nil
}

func (r *PostgresRepo) RoleByName(ctx context.Context, name string) (models.Role, error) {
	var role models.Role

	err := r.pool.QueryRow(ctx, `SELECT id, name FROM roles WHERE name = $1`, name).Scan(&role.ID, &role.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Role{}, storage.ErrRoleNotFound
	}

	return role, err
}

func (r *PostgresRepo) Roles(ctx context.Context) ([]models.Role, error) {
	const op = "storage.postgres.Roles"

	rows, err := r.pool.Query(ctx, `SELECT id, name FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	roles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Role, error) {
		var role models.Role
		err := row.Scan(&role.ID, &role.Name)
		return role, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return roles, nil
}
