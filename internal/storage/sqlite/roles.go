package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pet_adoption/internal/models"
	"pet_adoption/internal/storage"
)

func (r *SQLiteRepo) SaveRole(ctx context.Context, name string) (models.Role, error) {
	const op = "storage.sqlite.SaveRole"

	if _, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO roles (name) VALUES (?)`, name); err != nil {
		return models.Role{}, fmt.Errorf("%s: %w", op, err)
	}

	return r.RoleByName(ctx, name)
}

func (r *SQLiteRepo) RoleByName(ctx context.Context, name string) (models.Role, error) {
	var role models.Role

	err := r.db.GetContext(ctx, &role, `SELECT id, name FROM roles WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Role{}, storage.ErrRoleNotFound
	}

	return role, err
}

func (r *SQLiteRepo) Roles(ctx context.Context) ([]models.Role, error) {
	const op = "storage.sqlite.Roles"

	roles := make([]models.Role, 0)
	if err := r.db.SelectContext(ctx, &roles, `SELECT id, name FROM roles ORDER BY id`); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return roles, nil
}
