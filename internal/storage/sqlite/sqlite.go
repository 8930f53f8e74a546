package sqlite

import (
	"context"
	"fmt"
	"strings"

	"pet_adoption/db"
	"pet_adoption/internal/storage"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteRepo is the single-file storage used for local development and tests.
type SQLiteRepo struct {
	db *sqlx.DB
}

// New opens the database at path. Foreign keys are enforced and the pool is
// limited to one connection, which serialises writers.
func New(ctx context.Context, path string) (*SQLiteRepo, error) {
	const op = "storage.sqlite.New"

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)

	conn, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn.SetMaxOpenConns(1)

	return &SQLiteRepo{db: conn}, nil
}

// Migrate applies embedded migrations that are not yet recorded in schema_migrations.
func (r *SQLiteRepo) Migrate(ctx context.Context) error {
	const op = "storage.sqlite.Migrate"

	if _, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied INTEGER NOT NULL
		)`); err != nil {
		return fmt.Errorf("%s: ensure schema_migrations: %w", op, err)
	}

	migrations, err := storage.LoadMigrations(db.SQLiteMigrations, db.SQLiteMigrationsDir)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, m := range migrations {
		var count int
		if err := r.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, m.Version); err != nil {
			return fmt.Errorf("%s: check migration %s: %w", op, m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s: exec migration %s: %w", op, m.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, applied) VALUES (?, strftime('%s','now'))`, m.Version,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s: record migration %s: %w", op, m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

func (r *SQLiteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepo) Close() {
	_ = r.db.Close()
}

func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}
