package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/apperrors"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/ledger"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/repository"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/service/integration"
)

type AssignmentService interface {
	CommitAssignment(ctx context.Context, req *models.CommitAssignmentRequest) (*models.ServiceAssignment, error)
	GetAssignmentByID(ctx context.Context, id string) (*models.ServiceAssignment, error)
	GetAllAssignments(ctx context.Context, statuses []string, page, limit int) (*models.AssignmentsResponse, error)
	StartAssignment(ctx context.Context, id string) (*models.ServiceAssignment, error)
	CompleteAssignment(ctx context.Context, id string) (*models.ServiceAssignment, error)
	CancelAssignment(ctx context.Context, id string) (*models.ServiceAssignment, error)
	UpdateAssignmentStatus(ctx context.Context, id string, req *models.UpdateAssignmentStatusRequest) (*models.ServiceAssignment, error)
}

type assignmentService struct {
	ledger         *ledger.Ledger
	assignmentRepo repository.AssignmentRepository
	events         *eventSink
	pager          Pager
	logger         zerolog.Logger
}

func NewAssignmentService(
	l *ledger.Ledger,
	assignmentRepo repository.AssignmentRepository,
	publisher integration.EventPublisher,
	pager Pager,
	logger zerolog.Logger,
) AssignmentService {
	return &assignmentService{
		ledger:         l,
		assignmentRepo: assignmentRepo,
		events:         newEventSink(publisher, logger),
		pager:          pager,
		logger:         logger,
	}
}

func (s *assignmentService) CommitAssignment(ctx context.Context, req *models.CommitAssignmentRequest) (*models.ServiceAssignment, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}

	out, err := s.ledger.Commit(ctx, ledger.CommitInput{
		StudentID:   req.StudentID,
		RequestID:   req.ServiceRequestID,
		Hours:       req.Hours,
		StartDate:   start,
		ServiceType: strings.TrimSpace(req.ServiceType),
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		Supervisor:  strings.TrimSpace(req.Supervisor),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("assignment_id", out.Assignment.ID).
		Str("student_id", out.Assignment.StudentID).
		Str("service_request_id", out.Assignment.RequestID()).
		Float64("hours", out.Assignment.Hours).
		Float64("student_remaining_hours", out.Student.RemainingHours).
		Msg("Hours committed")

	s.events.publish(ctx, s.events.outcomeEvents(models.EventAssignmentCommitted, out)...)
	return out.Assignment, nil
}

func (s *assignmentService) GetAssignmentByID(ctx context.Context, id string) (*models.ServiceAssignment, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Store("get assignment", err)
	}
	if assignment == nil {
		return nil, apperrors.NotFound("assignment", id)
	}
	return assignment, nil
}

func (s *assignmentService) GetAllAssignments(ctx context.Context, statuses []string, page, limit int) (*models.AssignmentsResponse, error) {
	for _, status := range statuses {
		if !models.IsValidAssignmentStatus(status) {
			return nil, apperrors.Validation("status", "unknown assignment status %q", status)
		}
	}

	page, limit, offset := s.pager.normalize(page, limit)
	assignments, total, err := s.assignmentRepo.GetAll(ctx, models.AssignmentFilter{
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, apperrors.Store("list assignments", err)
	}

	return assignmentsResponse(assignments, total, page, limit), nil
}

func (s *assignmentService) StartAssignment(ctx context.Context, id string) (*models.ServiceAssignment, error) {
	return s.transition(ctx, id, models.AssignmentStatusInProgress)
}

func (s *assignmentService) CompleteAssignment(ctx context.Context, id string) (*models.ServiceAssignment, error) {
	return s.transition(ctx, id, models.AssignmentStatusCompleted)
}

func (s *assignmentService) CancelAssignment(ctx context.Context, id string) (*models.ServiceAssignment, error) {
	return s.transition(ctx, id, models.AssignmentStatusCancelled)
}

func (s *assignmentService) UpdateAssignmentStatus(ctx context.Context, id string, req *models.UpdateAssignmentStatusRequest) (*models.ServiceAssignment, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, models.AssignmentStatus(req.Status))
}

var transitionEvents = map[models.AssignmentStatus]models.EventType{
	models.AssignmentStatusInProgress: models.EventAssignmentStarted,
	models.AssignmentStatusCompleted:  models.EventAssignmentCompleted,
	models.AssignmentStatusCancelled:  models.EventAssignmentCancelled,
}

func (s *assignmentService) transition(ctx context.Context, id string, to models.AssignmentStatus) (*models.ServiceAssignment, error) {
	out, err := s.ledger.Transition(ctx, id, to)
	if err != nil {
		return nil, err
	}

	log := s.logger.Info().
		Str("assignment_id", id).
		Str("status", to.String()).
		Float64("hours", out.Assignment.Hours)
	if out.Student != nil {
		log = log.Float64("student_remaining_hours", out.Student.RemainingHours)
	}
	log.Bool("student_completed", out.StudentCompleted).Msg("Assignment status changed")

	s.events.publish(ctx, s.events.outcomeEvents(transitionEvents[to], out)...)
	return out.Assignment, nil
}
