package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pet_adoption/internal/animals"
	"pet_adoption/internal/auth"
	"pet_adoption/internal/config"
	"pet_adoption/internal/http_server/router"
	"pet_adoption/internal/intake"
	"pet_adoption/internal/lib/logger"
	"pet_adoption/internal/lib/logger/sl"
	"pet_adoption/internal/notification"
	"pet_adoption/internal/scheduler"
	"pet_adoption/internal/seed"
	"pet_adoption/internal/storage/redis"
	"pet_adoption/internal/users"
)

// @title                       Pet Adoption API
// @version                     1.0
// @description                 Animals, adoption requests, intake requests and accounts.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the access token.
func main() {
	cfg := config.MustLoad()

	log := logger.New(cfg.Env)

	log.Info("starting adoption service",
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("transport", cfg.Notifications.Transport),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := openStorage(ctx, cfg)
	if err != nil {
		log.Error("failed to open storage", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close()

	if err := storage.Migrate(ctx); err != nil {
		log.Error("failed to apply migrations", sl.Err(err))
		os.Exit(1)
	}

	if cfg.Seed.OnStartup {
		if _, err := seed.Run(ctx, log, storage); err != nil {
			log.Error("failed to seed storage", sl.Err(err))
			os.Exit(1)
		}
	}

	msgBroker, err := openPublisher(log, cfg)
	if err != nil {
		log.Error("failed to set up notifications", sl.Err(err))
		os.Exit(1)
	}
	defer msgBroker.Close()

	var revoker auth.TokenRevoker
	if cfg.Redis.Address != "" {
		rdb, err := redis.New(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Error("failed to connect redis", sl.Err(err))
			os.Exit(1)
		}
		defer rdb.Close()

		revoker = rdb
	} else {
		log.Warn("redis is not configured, logout will not revoke tokens")
	}

	notifier := notification.New(log, msgBroker, cfg.Frontend.URL, cfg.Notifications.PublishTimeout)

	authService := auth.New(
		log,
		storage,
		storage,
		notifier,
		revoker,
		cfg.Tokens.JWTSecret,
		cfg.Tokens.AccessTokenTTL,
		cfg.Tokens.VerificationTokenTTL,
	)

	if cfg.Scheduler.DigestSpec != "" {
		sched := scheduler.New(log, storage, storage, notifier)
		if err := sched.Start(ctx, cfg.Scheduler.DigestSpec); err != nil {
			log.Error("failed to start scheduler", sl.Err(err))
			os.Exit(1)
		}
		defer sched.Stop()
	}

	handler := router.New(log, router.Deps{
		Auth:           authService,
		Animals:        animals.New(log, storage, storage, notifier),
		Intake:         intake.New(log, storage),
		Users:          users.New(log, storage),
		Health:         storage,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Adoption service stopped")
}
