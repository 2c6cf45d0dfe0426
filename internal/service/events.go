package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/ledger"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/service/integration"
)

// eventSink publishes events after a ledger unit committed. Failures are
// logged; the committed state stands.
type eventSink struct {
	publisher integration.EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

func newEventSink(publisher integration.EventPublisher, logger zerolog.Logger) *eventSink {
	return &eventSink{publisher: publisher, logger: logger, now: time.Now}
}

func (s *eventSink) newEvent(t models.EventType) *models.LedgerEvent {
	return &models.LedgerEvent{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: s.now().Unix(),
	}
}

func (s *eventSink) publish(ctx context.Context, events ...*models.LedgerEvent) {
	for _, e := range events {
		if err := s.publisher.Publish(ctx, e); err != nil {
			s.logger.Error().
				Err(err).
				Str("event_id", e.ID).
				Str("type", string(e.Type)).
				Msg("Failed to publish ledger event")
		}
	}
}

// outcomeEvents describes a single-assignment ledger outcome.
func (s *eventSink) outcomeEvents(t models.EventType, out *ledger.Outcome) []*models.LedgerEvent {
	e := s.newEvent(t)
	if a := out.Assignment; a != nil {
		e.AssignmentID = a.ID
		e.StudentID = a.StudentID
		e.ServiceRequestID = a.RequestID()
		e.Hours = a.Hours
	}
	if out.Student != nil {
		remaining := out.Student.RemainingHours
		e.StudentRemainingHours = &remaining
	}
	if out.Request != nil {
		remaining := out.Request.RemainingHours
		e.RequestRemainingHours = &remaining
	}

	events := []*models.LedgerEvent{e}
	if out.StudentCompleted && out.Student != nil {
		events = append(events, s.studentCompleted(out.Student.ID))
	}
	return events
}

func (s *eventSink) studentCompleted(studentID string) *models.LedgerEvent {
	e := s.newEvent(models.EventStudentCompleted)
	e.StudentID = studentID
	return e
}
