package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/apperrors"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/ledger"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/repository"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/service/integration"
)

// defaultRequestWindow is how long a request runs when the supervisor gives
// no end date.
const defaultRequestWindow = 30 * 24 * time.Hour

type RequestService interface {
	SubmitRequest(ctx context.Context, req *models.CreateServiceRequestRequest) (*models.ServiceRequest, error)
	GetRequestByID(ctx context.Context, id string) (*models.ServiceRequest, error)
	GetAllRequests(ctx context.Context, status string, page, limit int) (*models.RequestsResponse, error)
	UpdateRequestStatus(ctx context.Context, id string, req *models.UpdateRequestStatusRequest) (*models.ServiceRequest, error)
	DeleteRequest(ctx context.Context, id string) (*ledger.RequestRemoval, error)
	GetRequestAssignments(ctx context.Context, id string, page, limit int) (*models.AssignmentsResponse, error)
	CheckRequestLedger(ctx context.Context, id string) (*models.LedgerCheck, error)
}

type requestService struct {
	ledger         *ledger.Ledger
	requestRepo    repository.RequestRepository
	assignmentRepo repository.AssignmentRepository
	events         *eventSink
	pager          Pager
	logger         zerolog.Logger
	now            func() time.Time
}

func NewRequestService(
	l *ledger.Ledger,
	requestRepo repository.RequestRepository,
	assignmentRepo repository.AssignmentRepository,
	publisher integration.EventPublisher,
	pager Pager,
	logger zerolog.Logger,
) RequestService {
	return &requestService{
		ledger:         l,
		requestRepo:    requestRepo,
		assignmentRepo: assignmentRepo,
		events:         newEventSink(publisher, logger),
		pager:          pager,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *requestService) SubmitRequest(ctx context.Context, req *models.CreateServiceRequestRequest) (*models.ServiceRequest, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	now := s.now()
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}
	if start.IsZero() {
		start = today(now)
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return nil, err
	}
	if end.IsZero() {
		end = today(now).Add(defaultRequestWindow)
	}
	if end.Before(start) {
		return nil, apperrors.Validation("end_date", "end_date must not be before start_date")
	}

	request := &models.ServiceRequest{
		ID:              uuid.New().String(),
		ServiceType:     strings.TrimSpace(req.ServiceType),
		Description:     strings.TrimSpace(req.Description),
		Location:        strings.TrimSpace(req.Location),
		SupervisorName:  strings.TrimSpace(req.SupervisorName),
		SupervisorEmail: strings.ToLower(strings.TrimSpace(req.SupervisorEmail)),
		TotalHours:      req.TotalHours,
		RemainingHours:  req.TotalHours,
		Status:          models.RequestStatusPending,
		StartDate:       start,
		EndDate:         end,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, apperrors.Store("create service request", err)
	}

	s.logger.Info().
		Str("service_request_id", request.ID).
		Str("service_type", request.ServiceType).
		Str("supervisor_email", request.SupervisorEmail).
		Float64("total_hours", request.TotalHours).
		Msg("Service request submitted")

	return request, nil
}

func (s *requestService) GetRequestByID(ctx context.Context, id string) (*models.ServiceRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Store("get service request", err)
	}
	if request == nil {
		return nil, apperrors.NotFound("service request", id)
	}
	return request, nil
}

func (s *requestService) GetAllRequests(ctx context.Context, status string, page, limit int) (*models.RequestsResponse, error) {
	if status != "" && !models.IsValidRequestStatus(status) {
		return nil, apperrors.Validation("status", "unknown service request status %q", status)
	}

	page, limit, offset := s.pager.normalize(page, limit)
	requests, total, err := s.requestRepo.GetAll(ctx, models.RequestFilter{
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, apperrors.Store("list service requests", err)
	}
	if requests == nil {
		requests = []models.ServiceRequest{}
	}

	return &models.RequestsResponse{
		Requests: requests,
		Total:    total,
		Page:     page,
		Limit:    limit,
	}, nil
}

// UpdateRequestStatus approves or rejects a pending request.
func (s *requestService) UpdateRequestStatus(ctx context.Context, id string, req *models.UpdateRequestStatusRequest) (*models.ServiceRequest, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	to := models.RequestStatus(req.Status)

	request, err := s.GetRequestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RequestStatusPending {
		return nil, apperrors.InvalidTransition("service request "+id, request.Status.String(), to.String())
	}

	now := s.now()
	updated, err := s.requestRepo.UpdateStatus(ctx, id, models.RequestStatusPending, to, now)
	if err != nil {
		return nil, apperrors.Store("update service request status", err)
	}
	if !updated {
		// decided concurrently
		current, err := s.GetRequestByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.InvalidTransition("service request "+id, current.Status.String(), to.String())
	}

	s.logger.Info().
		Str("service_request_id", id).
		Str("status", to.String()).
		Msg("Service request reviewed")

	request.Status = to
	request.UpdatedAt = now
	return request, nil
}

func (s *requestService) DeleteRequest(ctx context.Context, id string) (*ledger.RequestRemoval, error) {
	removal, err := s.ledger.DeleteRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	var released float64
	for _, a := range removal.Released {
		released += a.Hours
	}

	s.logger.Info().
		Str("service_request_id", id).
		Int("released", len(removal.Released)).
		Int("detached", len(removal.Detached)).
		Int("deleted", removal.Deleted).
		Float64("hours_released", released).
		Msg("Service request deleted")

	events := make([]*models.LedgerEvent, 0, len(removal.Released)+len(removal.CompletedStudents)+1)
	remaining := make(map[string]float64, len(removal.Students))
	for _, st := range removal.Students {
		remaining[st.ID] = st.RemainingHours
	}
	for _, a := range removal.Released {
		e := s.events.newEvent(models.EventAssignmentCancelled)
		e.AssignmentID = a.ID
		e.StudentID = a.StudentID
		e.ServiceRequestID = id
		e.Hours = a.Hours
		if r, ok := remaining[a.StudentID]; ok {
			e.StudentRemainingHours = &r
		}
		events = append(events, e)
	}
	for _, studentID := range removal.CompletedStudents {
		events = append(events, s.events.studentCompleted(studentID))
	}
	deleted := s.events.newEvent(models.EventRequestDeleted)
	deleted.ServiceRequestID = id
	deleted.Hours = released
	events = append(events, deleted)
	s.events.publish(ctx, events...)

	return removal, nil
}

func (s *requestService) GetRequestAssignments(ctx context.Context, id string, page, limit int) (*models.AssignmentsResponse, error) {
	if _, err := s.GetRequestByID(ctx, id); err != nil {
		return nil, err
	}

	page, limit, offset := s.pager.normalize(page, limit)
	assignments, total, err := s.assignmentRepo.GetAll(ctx, models.AssignmentFilter{
		RequestID: id,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, apperrors.Store("list request assignments", err)
	}

	return assignmentsResponse(assignments, total, page, limit), nil
}

func (s *requestService) CheckRequestLedger(ctx context.Context, id string) (*models.LedgerCheck, error) {
	check, err := s.ledger.AuditRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to audit service request %s: %w", id, err)
	}
	return check, nil
}

func today(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
