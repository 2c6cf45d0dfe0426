package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/config"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/storage"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/worker"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/worker/queue"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/pkg/rabbitmq"
)

// RunWorker archives ledger events from RabbitMQ to object storage until ctx
// is cancelled.
func RunWorker(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if !cfg.RabbitMQ.Enabled {
		return errors.New("archive worker requires rabbitmq.enabled")
	}
	if !cfg.Storage.Enabled {
		return errors.New("archive worker requires storage.enabled")
	}

	objects, err := storage.NewMinIOStorage(cfg.Storage)
	if err != nil {
		return err
	}

	conn, err := rabbitmq.NewConnection(cfg.RabbitMQ.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	channel, err := rabbitmq.NewChannel(conn)
	if err != nil {
		return err
	}
	defer channel.Close()

	if err := rabbitmq.SetupQueue(channel, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.QueueName, cfg.RabbitMQ.BindingKey); err != nil {
		return err
	}

	consumer := queue.NewRabbitMQConsumer(channel, queue.ConsumerConfig{
		Queue:         cfg.RabbitMQ.QueueName,
		ConsumerTag:   cfg.RabbitMQ.ConsumerTag,
		PrefetchCount: cfg.RabbitMQ.PrefetchCount,
	}, log)
	pool := worker.NewWorkerPool(cfg.Worker.Count, log)
	archiver := worker.NewArchiveWorker(pool, consumer, objects, log)

	if err := archiver.Start(ctx); err != nil {
		return fmt.Errorf("failed to start archive worker: %w", err)
	}

	<-ctx.Done()

	stopped := make(chan error, 1)
	go func() { stopped <- archiver.Stop() }()

	shutdown, cancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer cancel()

	select {
	case err := <-stopped:
		return err
	case <-shutdown.Done():
		return errors.New("archive worker did not stop within worker.shutdown_timeout")
	}
}
