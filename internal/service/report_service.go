package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/apperrors"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/repository"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/storage"
)

const snapshotPrefix = "reports/snapshots/"

var (
	activeStatuses    = []string{models.AssignmentStatusPending.String(), models.AssignmentStatusInProgress.String()}
	committedStatuses = []string{
		models.AssignmentStatusPending.String(),
		models.AssignmentStatusInProgress.String(),
		models.AssignmentStatusCompleted.String(),
	}
	completedStatuses = []string{models.AssignmentStatusCompleted.String()}
)

type ReportService interface {
	GetOverview(ctx context.Context) (*models.Overview, error)
	GetProgress(ctx context.Context, page, limit int) ([]models.StudentProgress, error)
	CreateSnapshot(ctx context.Context) (*models.ReportSnapshot, error)
	ListSnapshots(ctx context.Context) ([]string, error)
	GetSnapshot(ctx context.Context, name string) (*models.ReportSnapshot, error)
}

type reportService struct {
	studentRepo    repository.StudentRepository
	requestRepo    repository.RequestRepository
	assignmentRepo repository.AssignmentRepository
	storage        storage.ObjectStorage
	pager          Pager
	logger         zerolog.Logger
	now            func() time.Time
}

func NewReportService(
	studentRepo repository.StudentRepository,
	requestRepo repository.RequestRepository,
	assignmentRepo repository.AssignmentRepository,
	objectStorage storage.ObjectStorage,
	pager Pager,
	logger zerolog.Logger,
) ReportService {
	return &reportService{
		studentRepo:    studentRepo,
		requestRepo:    requestRepo,
		assignmentRepo: assignmentRepo,
		storage:        objectStorage,
		pager:          pager,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *reportService) GetOverview(ctx context.Context) (*models.Overview, error) {
	overview := &models.Overview{GeneratedAt: s.now().UTC()}

	studentCounts := []struct {
		status string
		dst    *int
	}{
		{"", &overview.TotalStudents},
		{models.StudentStatusActive.String(), &overview.ActiveStudents},
		{models.StudentStatusCompleted.String(), &overview.CompletedStudents},
	}
	for _, c := range studentCounts {
		n, err := s.studentRepo.CountByStatus(ctx, c.status)
		if err != nil {
			return nil, apperrors.Store("count students", err)
		}
		*c.dst = n
	}

	requestCounts := []struct {
		status models.RequestStatus
		dst    *int
	}{
		{models.RequestStatusPending, &overview.PendingRequests},
		{models.RequestStatusApproved, &overview.ApprovedRequests},
		{models.RequestStatusRejected, &overview.RejectedRequests},
	}
	for _, c := range requestCounts {
		n, err := s.requestRepo.CountByStatus(ctx, c.status.String())
		if err != nil {
			return nil, apperrors.Store("count service requests", err)
		}
		*c.dst = n
	}

	var err error
	if overview.ActiveAssignments, err = s.assignmentRepo.CountByStatus(ctx, activeStatuses); err != nil {
		return nil, apperrors.Store("count assignments", err)
	}
	if overview.HoursCommitted, err = s.assignmentRepo.SumHoursByStatus(ctx, committedStatuses); err != nil {
		return nil, apperrors.Store("sum committed hours", err)
	}
	if overview.HoursCompleted, err = s.assignmentRepo.SumHoursByStatus(ctx, completedStatuses); err != nil {
		return nil, apperrors.Store("sum completed hours", err)
	}

	return overview, nil
}

func (s *reportService) GetProgress(ctx context.Context, page, limit int) ([]models.StudentProgress, error) {
	_, limit, offset := s.pager.normalize(page, limit)
	progress, err := s.assignmentRepo.GetProgress(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.Store("get progress", err)
	}
	if progress == nil {
		progress = []models.StudentProgress{}
	}
	return progress, nil
}

// CreateSnapshot archives the overview and the progress of every student
// as one JSON object.
func (s *reportService) CreateSnapshot(ctx context.Context) (*models.ReportSnapshot, error) {
	overview, err := s.GetOverview(ctx)
	if err != nil {
		return nil, err
	}
	progress, err := s.assignmentRepo.GetProgress(ctx, 0, 0)
	if err != nil {
		return nil, apperrors.Store("get progress", err)
	}
	if progress == nil {
		progress = []models.StudentProgress{}
	}

	name := fmt.Sprintf("%s-%s.json", overview.GeneratedAt.Format("20060102T150405Z"), uuid.New().String()[:8])
	snapshot := &models.ReportSnapshot{
		Key:      snapshotPrefix + name,
		Overview: *overview,
		Progress: progress,
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.storage.Put(ctx, snapshot.Key, body, "application/json"); err != nil {
		return nil, apperrors.Store("store report snapshot", err)
	}

	s.logger.Info().
		Str("key", snapshot.Key).
		Int("students", len(progress)).
		Msg("Report snapshot archived")

	return snapshot, nil
}

func (s *reportService) ListSnapshots(ctx context.Context) ([]string, error) {
	keys, err := s.storage.List(ctx, snapshotPrefix)
	if err != nil {
		return nil, apperrors.Store("list report snapshots", err)
	}

	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, path.Base(k))
	}
	return names, nil
}

func (s *reportService) GetSnapshot(ctx context.Context, name string) (*models.ReportSnapshot, error) {
	if name == "" || strings.ContainsAny(name, "/\\") || !strings.HasSuffix(name, ".json") {
		return nil, apperrors.Validation("name", "invalid snapshot name %q", name)
	}

	body, err := s.storage.Get(ctx, snapshotPrefix+name)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, apperrors.NotFound("report snapshot", name)
	}
	if err != nil {
		return nil, apperrors.Store("get report snapshot", err)
	}

	var snapshot models.ReportSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, apperrors.Inconsistent("report snapshot %s is not valid JSON: %v", name, err)
	}
	return &snapshot, nil
}
