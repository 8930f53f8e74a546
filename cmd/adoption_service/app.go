package main

import (
	"context"
	"fmt"
	"log/slog"

	"pet_adoption/internal/animals"
	"pet_adoption/internal/auth"
	"pet_adoption/internal/config"
	"pet_adoption/internal/http_server/handlers/health"
	"pet_adoption/internal/intake"
	"pet_adoption/internal/mailer"
	"pet_adoption/internal/notification"
	"pet_adoption/internal/rabbitmq"
	"pet_adoption/internal/scheduler"
	"pet_adoption/internal/seed"
	"pet_adoption/internal/storage/postgres"
	"pet_adoption/internal/storage/sqlite"
	"pet_adoption/internal/users"
)

// repository is what the service needs from either storage driver.
type repository interface {
	auth.UserSaver
	auth.UserProvider
	animals.AnimalStorage
	animals.UserProvider
	intake.RequestStorage
	users.Storage
	seed.Storage
	scheduler.AnimalProvider
	scheduler.UserProvider
	health.Checker

	Migrate(ctx context.Context) error
	Close()
}

func openStorage(ctx context.Context, cfg *config.Config) (repository, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		return postgres.New(ctx, cfg)
	case config.StorageDriverSQLite:
		return sqlite.New(ctx, cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// publisher is where notifications go: the broker queue read by mail_sender,
// or an in-process SMTP worker pool.
type publisher interface {
	notification.Publisher
	Close()
}

type dispatcherPublisher struct {
	*mailer.Dispatcher
}

func (p dispatcherPublisher) Close() {
	p.Stop()
}

func openPublisher(log *slog.Logger, cfg *config.Config) (publisher, error) {
	switch cfg.Notifications.Transport {
	case config.TransportRabbitMQ:
		return rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	case config.TransportSMTP:
		d := mailer.NewDispatcher(
			log,
			&mailer.Mailer{
				Host:     cfg.SMTP.Host,
				Port:     cfg.SMTP.Port,
				Username: cfg.SMTP.Username,
				Password: cfg.SMTP.Password,
				From:     cfg.SMTP.From,
			},
			cfg.Notifications.Workers,
			cfg.Notifications.Buffer,
		)
		d.Start()

		return dispatcherPublisher{d}, nil
	default:
		return nil, fmt.Errorf("unknown notifications transport %q", cfg.Notifications.Transport)
	}
}
