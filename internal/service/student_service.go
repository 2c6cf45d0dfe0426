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

type StudentService interface {
	CreateStudent(ctx context.Context, req *models.CreateStudentRequest) (*models.Student, error)
	GetStudentByID(ctx context.Context, id string) (*models.Student, error)
	GetAllStudents(ctx context.Context, status, search string, page, limit int) (*models.StudentsResponse, error)
	UpdateStudent(ctx context.Context, id string, req *models.UpdateStudentRequest) (*models.Student, error)
	DeleteStudent(ctx context.Context, id string) (*ledger.StudentRemoval, error)
	GetStudentAssignments(ctx context.Context, id string, page, limit int) (*models.AssignmentsResponse, error)
	CheckStudentLedger(ctx context.Context, id string) (*models.LedgerCheck, error)
}

type studentService struct {
	ledger         *ledger.Ledger
	studentRepo    repository.StudentRepository
	assignmentRepo repository.AssignmentRepository
	events         *eventSink
	pager          Pager
	logger         zerolog.Logger
}

func NewStudentService(
	l *ledger.Ledger,
	studentRepo repository.StudentRepository,
	assignmentRepo repository.AssignmentRepository,
	publisher integration.EventPublisher,
	pager Pager,
	logger zerolog.Logger,
) StudentService {
	return &studentService{
		ledger:         l,
		studentRepo:    studentRepo,
		assignmentRepo: assignmentRepo,
		events:         newEventSink(publisher, logger),
		pager:          pager,
		logger:         logger,
	}
}

func (s *studentService) CreateStudent(ctx context.Context, req *models.CreateStudentRequest) (*models.Student, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	status := models.StudentStatusActive
	if req.Status != "" {
		status = models.StudentStatus(req.Status)
	}

	now := time.Now()
	student := &models.Student{
		ID:             uuid.New().String(),
		StudentID:      strings.TrimSpace(req.StudentID),
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Program:        strings.TrimSpace(req.Program),
		Year:           req.Year,
		TotalHours:     req.TotalHours,
		RemainingHours: req.TotalHours,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	// a new student has no assignments
	student.Status = ledger.DeriveStatus(status, student.RemainingHours, 0)

	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, apperrors.Store("create student", err)
	}

	s.logger.Info().
		Str("student_id", student.ID).
		Str("code", student.StudentID).
		Float64("total_hours", student.TotalHours).
		Msg("Student created")

	return student, nil
}

func (s *studentService) GetStudentByID(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Store("get student", err)
	}
	if student == nil {
		return nil, apperrors.NotFound("student", id)
	}
	return student, nil
}

func (s *studentService) GetAllStudents(ctx context.Context, status, search string, page, limit int) (*models.StudentsResponse, error) {
	if status != "" && !models.IsValidStudentStatus(status) {
		return nil, apperrors.Validation("status", "unknown student status %q", status)
	}

	page, limit, offset := s.pager.normalize(page, limit)
	students, total, err := s.studentRepo.GetAll(ctx, models.StudentFilter{
		Status: status,
		Search: strings.TrimSpace(search),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, apperrors.Store("list students", err)
	}
	if students == nil {
		students = []models.Student{}
	}

	return &models.StudentsResponse{
		Students: students,
		Total:    total,
		Page:     page,
		Limit:    limit,
	}, nil
}

func (s *studentService) UpdateStudent(ctx context.Context, id string, req *models.UpdateStudentRequest) (*models.Student, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	out, err := s.ledger.EditStudent(ctx, id, ledger.StudentEdit{
		StudentID:  strings.TrimSpace(req.StudentID),
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Program:    strings.TrimSpace(req.Program),
		Year:       req.Year,
		TotalHours: *req.TotalHours,
		Status:     models.StudentStatus(req.Status),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("student_id", id).
		Float64("total_hours", out.Student.TotalHours).
		Float64("remaining_hours", out.Student.RemainingHours).
		Str("status", out.Student.Status.String()).
		Msg("Student updated")

	if out.StudentCompleted {
		s.events.publish(ctx, s.events.studentCompleted(id))
	}
	return out.Student, nil
}

func (s *studentService) DeleteStudent(ctx context.Context, id string) (*ledger.StudentRemoval, error) {
	removal, err := s.ledger.RemoveStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	var released float64
	for _, a := range removal.Released {
		released += a.Hours
	}

	s.logger.Info().
		Str("student_id", id).
		Int("assignments_deleted", removal.Deleted).
		Float64("hours_released", released).
		Msg("Student removed")

	e := s.events.newEvent(models.EventStudentRemoved)
	e.StudentID = id
	e.Hours = released
	s.events.publish(ctx, e)

	return removal, nil
}

func (s *studentService) GetStudentAssignments(ctx context.Context, id string, page, limit int) (*models.AssignmentsResponse, error) {
	if _, err := s.GetStudentByID(ctx, id); err != nil {
		return nil, err
	}

	page, limit, offset := s.pager.normalize(page, limit)
	assignments, total, err := s.assignmentRepo.GetAll(ctx, models.AssignmentFilter{
		StudentID: id,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, apperrors.Store("list student assignments", err)
	}

	return assignmentsResponse(assignments, total, page, limit), nil
}

func (s *studentService) CheckStudentLedger(ctx context.Context, id string) (*models.LedgerCheck, error) {
	check, err := s.ledger.AuditStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to audit student %s: %w", id, err)
	}
	return check, nil
}

func assignmentsResponse(assignments []models.ServiceAssignment, total, page, limit int) *models.AssignmentsResponse {
	if assignments == nil {
		assignments = []models.ServiceAssignment{}
	}
	return &models.AssignmentsResponse{
		Assignments: assignments,
		Total:       total,
		Page:        page,
		Limit:       limit,
	}
}
