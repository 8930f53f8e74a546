package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pet_adoption/internal/models"
	"pet_adoption/internal/storage"

	"github.com/jackc/pgx/v5"
)

const selectUser = `
	SELECT u.id, u.username, u.email, u.password_hash, u.email_verified,
	       u.verification_token, u.verification_token_expiry, u.last_login,
	       COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}')
	FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id
	LEFT JOIN roles r ON r.id = ur.role_id
`

func scanUser(row scanner) (models.User, error) {
	var u models.User

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PassHash,
		&u.EmailVerified,
		&u.VerificationToken,
		&u.VerificationTokenExpiry,
		&u.LastLogin,
		&u.Roles,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}

	return u, nil
}

// SaveUser inserts the user and links its roles in one transaction.
func (r *PostgresRepo) SaveUser(ctx context.Context, u models.User) (int64, error) {
	const op = "storage.postgres.SaveUser"

	var id int64

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (username, email, password_hash, email_verified,
			                   verification_token, verification_token_expiry)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id;
		`,
			u.Username,
			u.Email,
			string(u.PassHash),
			u.EmailVerified,
			u.VerificationToken,
			u.VerificationTokenExpiry,
		).Scan(&id)
		if err != nil {
			return err
		}

		for _, role := range u.Roles {
			tag, err := tx.Exec(ctx, `
				INSERT INTO user_roles (user_id, role_id)
				SELECT $1, id FROM roles WHERE name = $2
				ON CONFLICT DO NOTHING;
			`, id, role)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%q: %w", role, storage.ErrRoleNotFound)
			}
		}

		return nil
	})
	if err != nil {
		if pgErr, ok := isUniqueViolation(err); ok {
			switch pgErr.ConstraintName {
			case "users_username_key":
				return 0, storage.ErrUsernameExists
			case "users_email_key":
				return 0, storage.ErrEmailExists
			}
		}

		return 0, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) UserByUsername(ctx context.Context, username string) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE u.username = $1 GROUP BY u.id`, username))
}

func (r *PostgresRepo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE u.email = $1 GROUP BY u.id`, email))
}

func (r *PostgresRepo) UserByID(ctx context.Context, id int64) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE u.id = $1 GROUP BY u.id`, id))
}

func (r *PostgresRepo) UserByVerificationToken(ctx context.Context, token string) (models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE u.verification_token = $1 GROUP BY u.id`, token))
	if errors.Is(err, storage.ErrUserNotFound) {
		return models.User{}, storage.ErrTokenNotFound
	}

	return u, err
}

func (r *PostgresRepo) Users(ctx context.Context) ([]models.User, error) {
	return r.queryUsers(ctx, selectUser+` GROUP BY u.id ORDER BY u.id`)
}

// UsersByRole returns users holding the named role.
func (r *PostgresRepo) UsersByRole(ctx context.Context, role string) ([]models.User, error) {
	return r.queryUsers(ctx, selectUser+`
		WHERE u.id IN (
			SELECT ur2.user_id FROM user_roles ur2
			JOIN roles r2 ON r2.id = ur2.role_id
			WHERE r2.name = $1
		)
		GROUP BY u.id ORDER BY u.id`, role)
}

func (r *PostgresRepo) queryUsers(ctx context.Context, query string, args ...any) ([]models.User, error) {
	const op = "storage.postgres.queryUsers"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

// ConsumeVerificationToken marks the user verified and clears the token. It
// only succeeds while the stored token still matches, so a token verifies once.
func (r *PostgresRepo) ConsumeVerificationToken(ctx context.Context, userID int64, token string) error {
	const op = "storage.postgres.ConsumeVerificationToken"

	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email_verified = TRUE, verification_token = NULL, verification_token_expiry = NULL
		WHERE id = $1 AND verification_token = $2
	`, userID, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrTokenNotFound
	}

	return nil
}

// SetVerificationToken replaces the pending token and its expiry.
func (r *PostgresRepo) SetVerificationToken(ctx context.Context, userID int64, token string, expiry time.Time) error {
	const op = "storage.postgres.SetVerificationToken"

	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET verification_token = $1, verification_token_expiry = $2
		WHERE id = $3
	`, token, expiry, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepo) SetLastLogin(ctx context.Context, userID int64, at time.Time) error {
	const op = "storage.postgres.SetLastLogin"

	tag, err := r.pool.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// AddUserRole links an existing role to an existing user. Adding a role the
// user already holds is a no-op.
func (r *PostgresRepo) AddUserRole(ctx context.Context, userID int64, roleName string) error {
	const op = "storage.postgres.AddUserRole"

	if _, err := r.UserByID(ctx, userID); err != nil {
		return err
	}

	role, err := r.RoleByName(ctx, roleName)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, role.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
