package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/config"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/database"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/delivery/httpd"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/ledger"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/repository"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/repository/memory"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/service/integration"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/storage"
)

// backend is the store selected by database.driver.
type backend struct {
	store       ledger.Store
	students    repository.StudentRepository
	requests    repository.RequestRepository
	assignments repository.AssignmentRepository
	pinger      httpd.Pinger
	db          *sql.DB
}

func newBackend(cfg config.DatabaseConfig, log zerolog.Logger) (*backend, error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory store; data is lost on restart")
		db := memory.Open()
		return &backend{
			store:       db,
			students:    memory.NewStudentRepository(db),
			requests:    memory.NewRequestRepository(db),
			assignments: memory.NewAssignmentRepository(db),
			pinger:      db,
		}, nil
	}

	db, err := database.NewPostgres(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Str("host", cfg.Host).Str("database", cfg.Name).Msg("Database connection established")

	store := repository.NewLedgerStore(db, log, cfg.TxMaxRetries)
	return &backend{
		store:       store,
		students:    repository.NewStudentRepository(db, log),
		requests:    repository.NewRequestRepository(db, log),
		assignments: repository.NewAssignmentRepository(db, log),
		pinger:      store,
		db:          db,
	}, nil
}

func (b *backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// newObjectStorage returns MinIO when enabled. Without it snapshots live in
// process memory only.
func newObjectStorage(cfg config.StorageConfig, log zerolog.Logger) (storage.ObjectStorage, error) {
	if !cfg.Enabled {
		log.Warn().Msg("Object storage disabled; using in-memory storage")
		return storage.NewMemoryStorage(), nil
	}

	objects, err := storage.NewMinIOStorage(cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("Connected to object storage")
	return objects, nil
}

// newPublisher falls back to the no-op publisher when RabbitMQ is disabled
// or unreachable; ledger operations never depend on the broker.
func newPublisher(cfg config.RabbitMQConfig, log zerolog.Logger) integration.EventPublisher {
	if !cfg.Enabled {
		return integration.NewNopPublisher(log)
	}

	publisher, err := integration.NewRabbitMQPublisher(cfg.URL, cfg.Exchange, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create RabbitMQ publisher; events will be dropped")
		return integration.NewNopPublisher(log)
	}
	return publisher
}
