// Command seed applies migrations and inserts the sample roles, users,
// animals and intake requests. Running it twice creates nothing new.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pet_adoption/internal/config"
	"pet_adoption/internal/lib/logger"
	"pet_adoption/internal/lib/logger/sl"
	"pet_adoption/internal/seed"
	"pet_adoption/internal/storage/postgres"
	"pet_adoption/internal/storage/sqlite"
)

type repository interface {
	seed.Storage

	Migrate(ctx context.Context) error
	Close()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	var (
		repo repository
		err  error
	)

	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		repo, err = postgres.New(ctx, cfg)
	case config.StorageDriverSQLite:
		repo, err = sqlite.New(ctx, cfg.SQLite.Path)
	default:
		log.Error("unknown storage driver", slog.String("driver", cfg.Storage.Driver))
		os.Exit(1)
	}
	if err != nil {
		log.Error("failed to open storage", sl.Err(err))
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.Migrate(ctx); err != nil {
		log.Error("failed to apply migrations", sl.Err(err))
		os.Exit(1)
	}

	if _, err := seed.Run(ctx, log, repo); err != nil {
		log.Error("seed failed", sl.Err(err))
		os.Exit(1)
	}
}
