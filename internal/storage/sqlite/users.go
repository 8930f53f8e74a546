package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pet_adoption/internal/models"
	"pet_adoption/internal/storage"

	"github.com/jmoiron/sqlx"
)

const selectUser = `
	SELECT id, username, email, password_hash, email_verified,
	       verification_token, verification_token_expiry, last_login
	FROM users
`

type userRole struct {
	UserID int64  `db:"user_id"`
	Name   string `db:"name"`
}

func (r *SQLiteRepo) SaveUser(ctx context.Context, u models.User) (int64, error) {
	const op = "storage.sqlite.SaveUser"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, email_verified,
		                   verification_token, verification_token_expiry)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		u.Username,
		u.Email,
		string(u.PassHash),
		u.EmailVerified,
		u.VerificationToken,
		utc(u.VerificationTokenExpiry),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, "users.username"):
			return 0, storage.ErrUsernameExists
		case isUniqueViolation(err, "users.email"):
			return 0, storage.ErrEmailExists
		}

		return 0, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	for _, role := range u.Roles {
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO user_roles (user_id, role_id)
			SELECT ?, id FROM roles WHERE name = ?
		`, id, role)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}

		if n, _ := res.RowsAffected(); n == 0 {
			return 0, fmt.Errorf("%s: %q: %w", op, role, storage.ErrRoleNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *SQLiteRepo) userWhere(ctx context.Context, where string, arg any) (models.User, error) {
	var u models.User

	err := r.db.GetContext(ctx, &u, selectUser+where, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}

	roles, err := r.rolesOf(ctx, []int64{u.ID})
	if err != nil {
		return models.User{}, err
	}
	u.Roles = roles[u.ID]
	if u.Roles == nil {
		u.Roles = []string{}
	}

	return u, nil
}

func (r *SQLiteRepo) rolesOf(ctx context.Context, userIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`
		SELECT ur.user_id, r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id IN (?)
		ORDER BY r.name
	`, userIDs)
	if err != nil {
		return nil, err
	}

	var rows []userRole
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], row.Name)
	}

	return out, nil
}

func (r *SQLiteRepo) UserByUsername(ctx context.Context, username string) (models.User, error) {
	return r.userWhere(ctx, `WHERE username = ?`, username)
}

func (r *SQLiteRepo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return r.userWhere(ctx, `WHERE email = ?`, email)
}

func (r *SQLiteRepo) UserByID(ctx context.Context, id int64) (models.User, error) {
	return r.userWhere(ctx, `WHERE id = ?`, id)
}

func (r *SQLiteRepo) UserByVerificationToken(ctx context.Context, token string) (models.User, error) {
	u, err := r.userWhere(ctx, `WHERE verification_token = ?`, token)
	if errors.Is(err, storage.ErrUserNotFound) {
		return models.User{}, storage.ErrTokenNotFound
	}

	return u, err
}

func (r *SQLiteRepo) Users(ctx context.Context) ([]models.User, error) {
	return r.queryUsers(ctx, selectUser+` ORDER BY id`)
}

func (r *SQLiteRepo) UsersByRole(ctx context.Context, role string) ([]models.User, error) {
	return r.queryUsers(ctx, selectUser+`
		WHERE id IN (
			SELECT ur.user_id FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id
			WHERE r.name = ?
		)
		ORDER BY id`, role)
}

func (r *SQLiteRepo) queryUsers(ctx context.Context, query string, args ...any) ([]models.User, error) {
	const op = "storage.sqlite.queryUsers"

	users := make([]models.User, 0)
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	roles, err := r.rolesOf(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range users {
		users[i].Roles = roles[users[i].ID]
		if users[i].Roles == nil {
			users[i].Roles = []string{}
		}
	}

	return users, nil
}

func (r *SQLiteRepo) ConsumeVerificationToken(ctx context.Context, userID int64, token string) error {
	const op = "storage.sqlite.ConsumeVerificationToken"

	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email_verified = 1, verification_token = NULL, verification_token_expiry = NULL
		WHERE id = ? AND verification_token = ?
	`, userID, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrTokenNotFound
	}

	return nil
}

func (r *SQLiteRepo) SetVerificationToken(ctx context.Context, userID int64, token string, expiry time.Time) error {
	const op = "storage.sqlite.SetVerificationToken"

	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET verification_token = ?, verification_token_expiry = ?
		WHERE id = ?
	`, token, expiry.UTC(), userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *SQLiteRepo) SetLastLogin(ctx context.Context, userID int64, at time.Time) error {
	const op = "storage.sqlite.SetLastLogin"

	res, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at.UTC(), userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *SQLiteRepo) AddUserRole(ctx context.Context, userID int64, roleName string) error {
	const op = "storage.sqlite.AddUserRole"

	if _, err := r.UserByID(ctx, userID); err != nil {
		return err
	}

	role, err := r.RoleByName(ctx, roleName)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)`, userID, role.ID,
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	u := t.UTC()
	return &u
}
