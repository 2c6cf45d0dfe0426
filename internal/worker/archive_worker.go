package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/storage"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/worker/queue"
)

const eventPrefix = "events/"

// ArchiveWorker copies every ledger event from the queue into object
// storage, one JSON object per event.
type ArchiveWorker interface {
	Start(ctx context.Context) error
	Stop() error
	GetStats() WorkerStats
}

type WorkerStats struct {
	Archived    int `json:"archived"`
	Dropped     int `json:"dropped"`
	Requeued    int `json:"requeued"`
	QueueLength int `json:"queue_length"`
}

type archiveWorker struct {
	workerPool *WorkerPool
	consumer   queue.Consumer
	storage    storage.ObjectStorage
	logger     zerolog.Logger
	stats      WorkerStats
	statsMutex sync.RWMutex
	done       chan struct{}
	startTime  time.Time
}

func NewArchiveWorker(
	workerPool *WorkerPool,
	consumer queue.Consumer,
	objectStorage storage.ObjectStorage,
	logger zerolog.Logger,
) ArchiveWorker {
	return &archiveWorker{
		workerPool: workerPool,
		consumer:   consumer,
		storage:    objectStorage,
		logger:     logger,
		done:       make(chan struct{}),
		startTime:  time.Now(),
	}
}

func (w *archiveWorker) Start(ctx context.Context) error {
	w.logger.Info().Msg("Starting archive worker...")

	if err := w.workerPool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	msgs, err := w.consumer.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to start consuming messages: %w", err)
	}

	go w.processMessages(ctx, msgs)

	w.logger.Info().Msg("Archive worker started successfully")
	return nil
}

// Stop waits for the dispatch loop to end, then drains the pool.
func (w *archiveWorker) Stop() error {
	w.logger.Info().Msg("Stopping archive worker...")

	if err := w.consumer.Close(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to close queue consumer")
	}
	<-w.done
	if err := w.workerPool.Stop(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to stop worker pool")
	}

	stats := w.GetStats()
	w.logger.Info().
		Int("archived", stats.Archived).
		Int("dropped", stats.Dropped).
		Int("requeued", stats.Requeued).
		Dur("uptime", time.Since(w.startTime)).
		Msg("Archive worker stopped")

	return nil
}

func (w *archiveWorker) GetStats() WorkerStats {
	w.statsMutex.RLock()
	defer w.statsMutex.RUnlock()

	stats := w.stats
	stats.QueueLength = w.workerPool.GetQueueLength()
	return stats
}

func (w *archiveWorker) processMessages(ctx context.Context, msgs <-chan queue.Message) {
	defer close(w.done)

	for msg := range msgs {
		msg := msg
		if !w.workerPool.Submit(func() { w.handle(ctx, msg) }) {
			w.requeue(msg)
		}
	}
	w.logger.Info().Msg("Message channel closed")
}

func (w *archiveWorker) handle(ctx context.Context, msg queue.Message) {
	err := w.archive(ctx, msg)
	if err == nil {
		if ackErr := msg.Ack(); ackErr != nil {
			w.logger.Error().Err(ackErr).Msg("Failed to ack message")
		}
		w.count(func(s *WorkerStats) { s.Archived++ })
		return
	}

	if isPermanentError(err) {
		w.logger.Warn().Err(err).Str("message_id", msg.MessageID).Msg("Dropping malformed event")
		if ackErr := msg.Ack(); ackErr != nil {
			w.logger.Error().Err(ackErr).Msg("Failed to ack message")
		}
		w.count(func(s *WorkerStats) { s.Dropped++ })
		return
	}

	w.logger.Error().Err(err).Str("message_id", msg.MessageID).Msg("Failed to archive event")
	w.requeue(msg)
}

func (w *archiveWorker) requeue(msg queue.Message) {
	if err := msg.Requeue(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to requeue message")
	}
	w.count(func(s *WorkerStats) { s.Requeued++ })
}

func (w *archiveWorker) archive(ctx context.Context, msg queue.Message) error {
	var event models.LedgerEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return permanent(fmt.Errorf("failed to unmarshal event: %w", err))
	}
	if strings.TrimSpace(event.ID) == "" {
		return permanent(errors.New("empty event id"))
	}
	if strings.ContainsAny(event.ID, "/\\") {
		return permanent(fmt.Errorf("invalid event id %q", event.ID))
	}
	if event.Type == "" {
		return permanent(errors.New("empty event type"))
	}

	key := EventKey(&event)
	if err := w.storage.Put(ctx, key, msg.Body, "application/json"); err != nil {
		return fmt.Errorf("failed to store event %s: %w", event.ID, err)
	}

	w.logger.Debug().
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Str("key", key).
		Msg("Event archived")
	return nil
}

func (w *archiveWorker) count(update func(*WorkerStats)) {
	w.statsMutex.Lock()
	update(&w.stats)
	w.statsMutex.Unlock()
}

// EventKey is the object key of an archived event: events/YYYY/MM/DD/<id>.json
// dated by the event timestamp in UTC.
func EventKey(event *models.LedgerEvent) string {
	ts := time.Unix(event.Timestamp, 0).UTC()
	return fmt.Sprintf("%s%s/%s.json", eventPrefix, ts.Format("2006/01/02"), event.ID)
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return permanentError{err: err}
}

func isPermanentError(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
