package db

import "embed"

//go:embed migrations/postgres/*.sql
var PostgresMigrations embed.FS

//go:embed migrations/sqlite/*.sql
var SQLiteMigrations embed.FS

const (
	PostgresMigrationsDir = "migrations/postgres"
	SQLiteMigrationsDir   = "migrations/sqlite"
)
