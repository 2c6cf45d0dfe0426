package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/apperrors"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/ledger"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

func seed(t *testing.T, db *DB) (*models.Student, *models.ServiceRequest) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	student := &models.Student{
		ID: "s1", StudentID: "STU-1", Name: "Ada", Email: "ada@school.test",
		TotalHours: 10, RemainingHours: 10, Status: models.StudentStatusActive,
		CreatedAt: now, UpdatedAt: now,
	}
	request := &models.ServiceRequest{
		ID: "r1", ServiceType: "Library", TotalHours: 8, RemainingHours: 8,
		Status: models.RequestStatusApproved, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, NewStudentRepository(db).Create(ctx, student))
	require.NoError(t, NewRequestRepository(db).Create(ctx, request))
	return student, request
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	db := Open()
	student, _ := seed(t, db)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		s, err := tx.LockStudent(ctx, student.ID)
		require.NoError(t, err)
		s.RemainingHours = 1
		require.NoError(t, tx.UpdateStudent(ctx, s))
		require.NoError(t, tx.InsertAssignment(ctx, &models.ServiceAssignment{
			ID: "a1", StudentID: s.ID, Hours: 9, Status: models.AssignmentStatusPending,
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := NewStudentRepository(db).GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.RemainingHours)

	a, err := NewAssignmentRepository(db).GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestWithinTx_Commits(t *testing.T) {
	db := Open()
	student, request := seed(t, db)
	ctx := context.Background()
	requestID := request.ID

	err := db.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if err := tx.InsertAssignment(ctx, &models.ServiceAssignment{
			ID: "a1", StudentID: student.ID, ServiceRequestID: &requestID, Hours: 3,
			Status: models.AssignmentStatusPending,
		}); err != nil {
			return err
		}
		count, err := tx.CountActiveAssignments(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		return nil
	})
	require.NoError(t, err)

	// mutating the caller's copy must not leak into the store
	requestID = "changed"
	a, err := NewAssignmentRepository(db).GetByID(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "r1", a.RequestID())
}

func TestWithinTx_CancelledContext(t *testing.T) {
	db := Open()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := db.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error { return nil })
	assert.ErrorIs(t, err, apperrors.ErrStore)
}

func TestTx_ReferentialChecks(t *testing.T) {
	db := Open()
	student, request := seed(t, db)
	ctx := context.Background()
	requestID := request.ID

	err := db.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertAssignment(ctx, &models.ServiceAssignment{ID: "a1", StudentID: "ghost"})
	})
	assert.ErrorIs(t, err, apperrors.ErrInconsistent)

	require.NoError(t, db.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertAssignment(ctx, &models.ServiceAssignment{
			ID: "a1", StudentID: student.ID, ServiceRequestID: &requestID, Status: models.AssignmentStatusCompleted,
		})
	}))

	err = db.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.DeleteRequest(ctx, request.ID)
	})
	assert.ErrorIs(t, err, apperrors.ErrInconsistent)

	err = db.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.DeleteStudent(ctx, student.ID)
	})
	assert.ErrorIs(t, err, apperrors.ErrInconsistent)

	err = db.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.UpdateRequest(ctx, &models.ServiceRequest{ID: "missing"})
	})
	assert.ErrorIs(t, err, apperrors.ErrInconsistent)
}

func TestStudentRepository_Unique(t *testing.T) {
	db := Open()
	seed(t, db)
	repo := NewStudentRepository(db)
	ctx := context.Background()

	tests := []struct {
		name    string
		student models.Student
		field   string
	}{
		{"same student id", models.Student{ID: "s2", StudentID: "STU-1", Email: "other@school.test"}, "student_id"},
		{"same email, other case", models.Student{ID: "s2", StudentID: "STU-2", Email: "ADA@school.test"}, "email"},
		{"same primary key", models.Student{ID: "s1", StudentID: "STU-3", Email: "x@school.test"}, "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, &tt.student)
			assert.ErrorIs(t, err, apperrors.ErrConflict)
			assert.Equal(t, tt.field, apperrors.FieldOf(err))
		})
	}
}

func TestStudentRepository_GetAll(t *testing.T) {
	db := Open()
	repo := NewStudentRepository(db)
	ctx := context.Background()

	for _, s := range []models.Student{
		{ID: "1", StudentID: "A-1", Name: "Carla", Email: "carla@school.test", Status: models.StudentStatusActive},
		{ID: "2", StudentID: "A-2", Name: "Ben", Email: "ben@school.test", Status: models.StudentStatusCompleted},
		{ID: "3", StudentID: "B-1", Name: "Ann", Email: "ann@school.test", Status: models.StudentStatusActive},
	} {
		s := s
		require.NoError(t, repo.Create(ctx, &s))
	}

	all, total, err := repo.GetAll(ctx, models.StudentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"Ann", "Ben", "Carla"}, []string{all[0].Name, all[1].Name, all[2].Name})

	active, total, err := repo.GetAll(ctx, models.StudentFilter{Status: "active", Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, active, 1)
	assert.Equal(t, "Carla", active[0].Name)

	found, total, err := repo.GetAll(ctx, models.StudentFilter{Search: "a-"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, found, 2)

	count, err := repo.CountByStatus(ctx, "completed")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRequestRepository_UpdateStatus(t *testing.T) {
	db := Open()
	repo := NewRequestRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.ServiceRequest{ID: "r1", Status: models.RequestStatusPending}))

	ok, err := repo.UpdateStatus(ctx, "r1", models.RequestStatusPending, models.RequestStatusApproved, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(ctx, "r1", models.RequestStatusPending, models.RequestStatusRejected, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	r, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, r.Status)
}

func TestAssignmentRepository_Aggregates(t *testing.T) {
	db := Open()
	student, _ := seed(t, db)
	ctx := context.Background()

	require.NoError(t, db.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		for _, a := range []models.ServiceAssignment{
			{ID: "a1", StudentID: student.ID, Hours: 2, Status: models.AssignmentStatusPending},
			{ID: "a2", StudentID: student.ID, Hours: 3, Status: models.AssignmentStatusCompleted},
			{ID: "a3", StudentID: student.ID, Hours: 4, Status: models.AssignmentStatusCancelled},
		} {
			a := a
			if err := tx.InsertAssignment(ctx, &a); err != nil {
				return err
			}
		}
		return nil
	}))

	repo := NewAssignmentRepository(db)

	count, err := repo.CountByStatus(ctx, []string{"pending", "in_progress"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	sum, err := repo.SumHoursByStatus(ctx, []string{"pending", "completed"})
	require.NoError(t, err)
	assert.Equal(t, 5.0, sum)

	progress, err := repo.GetProgress(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.Equal(t, 5.0, progress[0].AssignedHours)
	assert.Equal(t, 3.0, progress[0].CompletedHours)
	assert.Equal(t, 2, progress[0].Assignments)
	assert.Equal(t, 30.0, progress[0].ProgressPercentage)

	page, total, err := repo.GetAll(ctx, models.AssignmentFilter{StudentID: student.ID, Statuses: []string{"cancelled"}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "a3", page[0].ID)
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		name          string
		limit, offset int
		want          []int
	}{
		{name: "all rows", limit: 0, offset: 0, want: items},
		{name: "window", limit: 2, offset: 1, want: []int{2, 3}},
		{name: "tail shorter than limit", limit: 10, offset: 3, want: []int{4, 5}},
		{name: "past the end", limit: 2, offset: 5, want: nil},
		{name: "negative offset", limit: 100, offset: -180, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, page(items, tt.limit, tt.offset))
		})
	}
}
