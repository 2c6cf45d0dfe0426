package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/app"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/config"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/database"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/pkg/logger"
)

func main() {
	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)
	migrateDirection := migrateCmd.String("direction", "up", "direction of migration (up/down)")

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			_ = migrateCmd.Parse(os.Args[2:])
			runMigrations(*migrateDirection)
			return
		case "worker":
			runWorker()
			return
		case "serve":
		default:
			log := logger.New()
			log.Fatal().Str("command", os.Args[1]).Msg("Unknown command. Use 'serve', 'migrate' or 'worker'")
		}
	}

	serve()
}

func loadConfig() (*config.Config, zerolog.Logger) {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	return cfg, logger.NewWithConfig(cfg.Logging.Level, cfg.Logging.Pretty, cfg.Logging.NoColor)
}

func serve() {
	cfg, log := loadConfig()

	application, err := app.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	go func() {
		if err := application.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to run application")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down Service Tracker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown gracefully")
	}

	log.Info().Msg("Service Tracker stopped")
}

func runWorker() {
	cfg, log := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	log.Info().
		Str("queue", cfg.RabbitMQ.QueueName).
		Int("workers", cfg.Worker.Count).
		Msg("Archive worker starting")

	if err := app.RunWorker(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Archive worker failed")
	}

	log.Info().Msg("Archive worker stopped")
}

func runMigrations(direction string) {
	cfg, log := loadConfig()

	if cfg.Database.Driver == config.DriverMemory {
		log.Info().Msg("In-memory driver selected; no migrations to run")
		return
	}

	migrator, err := database.NewMigrator(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrator")
	}
	defer migrator.Close()

	switch direction {
	case "up":
		if err := migrator.Up(); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Msg("Migrations applied successfully")
	case "down":
		if err := migrator.Down(); err != nil {
			log.Fatal().Err(err).Msg("Failed to rollback migrations")
		}
		log.Info().Msg("Migrations rolled back successfully")
	default:
		log.Fatal().Msg("Invalid migration direction. Use 'up' or 'down'")
	}

	if version, dirty, err := migrator.Version(); err == nil {
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Schema version")
	}
}
