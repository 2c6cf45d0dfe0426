package ledger_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/apperrors"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/ledger"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/repository"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/repository/memory"
)

type fixture struct {
	db          *memory.DB
	ledger      *ledger.Ledger
	students    repository.StudentRepository
	requests    repository.RequestRepository
	assignments repository.AssignmentRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.Open()
	return &fixture{
		db:          db,
		ledger:      ledger.New(db, zerolog.Nop()),
		students:    memory.NewStudentRepository(db),
		requests:    memory.NewRequestRepository(db),
		assignments: memory.NewAssignmentRepository(db),
	}
}

func (f *fixture) addStudent(t *testing.T, total float64) *models.Student {
	t.Helper()
	now := time.Now()
	id := uuid.New().String()
	s := &models.Student{
		ID:             id,
		StudentID:      "STU-" + id[:8],
		Name:           "Student " + id[:8],
		Email:          id[:8] + "@school.test",
		TotalHours:     total,
		RemainingHours: total,
		Status:         models.StudentStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, f.students.Create(context.Background(), s))
	return s
}

func (f *fixture) addRequest(t *testing.T, total float64, status models.RequestStatus) *models.ServiceRequest {
	t.Helper()
	now := time.Now()
	r := &models.ServiceRequest{
		ID:              uuid.New().String(),
		ServiceType:     "Food bank",
		Description:     "Sorting donations",
		Location:        "Community hall",
		SupervisorName:  "Jordan Lee",
		SupervisorEmail: "jordan@foodbank.test",
		TotalHours:      total,
		RemainingHours:  total,
		Status:          status,
		StartDate:       now,
		EndDate:         now.AddDate(0, 0, 30),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, f.requests.Create(context.Background(), r))
	return r
}

func (f *fixture) student(t *testing.T, id string) *models.Student {
	t.Helper()
	s, err := f.students.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func (f *fixture) request(t *testing.T, id string) *models.ServiceRequest {
	t.Helper()
	r, err := f.requests.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, r)
	return r
}

func (f *fixture) commit(t *testing.T, studentID, requestID string, hours float64) *models.ServiceAssignment {
	t.Helper()
	out, err := f.ledger.Commit(context.Background(), ledger.CommitInput{
		StudentID: studentID,
		RequestID: requestID,
		Hours:     hours,
	})
	require.NoError(t, err)
	return out.Assignment
}

// assertConsistent checks every balance in the store against its assignments.
func (f *fixture) assertConsistent(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	all, err := f.assignments.ListAll(ctx, models.AssignmentFilter{})
	require.NoError(t, err)

	students, _, err := f.students.GetAll(ctx, models.StudentFilter{})
	require.NoError(t, err)
	for i := range students {
		assert.Nil(t, ledger.CheckStudent(&students[i], all), "student %s", students[i].ID)
		assert.GreaterOrEqual(t, students[i].RemainingHours, 0.0)
	}

	requests, _, err := f.requests.GetAll(ctx, models.RequestFilter{})
	require.NoError(t, err)
	for i := range requests {
		assert.Nil(t, ledger.CheckRequest(&requests[i], all), "request %s", requests[i].ID)
		assert.GreaterOrEqual(t, requests[i].RemainingHours, 0.0)
	}
}

func TestCommit_DebitsBothBalances(t *testing.T) {
	f := newFixture(t)
	student := f.addStudent(t, 40)
	request := f.addRequest(t, 20, models.RequestStatusApproved)

	out, err := f.ledger.Commit(context.Background(), ledger.CommitInput{
		StudentID: student.ID,
		RequestID: request.ID,
		Hours:     6,
	})
	require.NoError(t, err)

	a := out.Assignment
	assert.Equal(t, models.AssignmentStatusPending, a.Status)
	assert.Equal(t, models.VerificationPending, a.VerificationStatus)
	assert.Equal(t, request.ID, a.RequestID())
	assert.Equal(t, request.ServiceType, a.ServiceType)
	assert.Equal(t, request.SupervisorName, a.Supervisor)
	assert.Equal(t, request.SupervisorEmail, a.SupervisorEmail)
	require.NotNil(t, a.EndDate)
	assert.False(t, out.StudentCompleted)

	assert.Equal(t, 34.0, f.student(t, student.ID).RemainingHours)
	assert.Equal(t, 14.0, f.request(t, request.ID).RemainingHours)
	f.assertConsistent(t)
}

func TestCommit_Unlinked(t *testing.T) {
	f := newFixture(t)
	student := f.addStudent(t, 10)
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	out, err := f.ledger.Commit(context.Background(), ledger.CommitInput{
		StudentID:   student.ID,
		Hours:       2.5,
		StartDate:   start,
		ServiceType: "Tutoring",
		Location:    "Library",
	})
	require.NoError(t, err)

	assert.Nil(t, out.Assignment.ServiceRequestID)
	assert.Nil(t, out.Request)
	assert.Equal(t, "Tutoring", out.Assignment.ServiceType)
	assert.Equal(t, start, out.Assignment.StartDate)
	assert.Equal(t, 7.5, f.student(t, student.ID).RemainingHours)
	f.assertConsistent(t)
}

func TestCommit_Rejections(t *testing.T) {
	f := newFixture(t)
	student := f.addStudent(t, 10)
	approved := f.addRequest(t, 5, models.RequestStatusApproved)
	pending := f.addRequest(t, 50, models.RequestStatusPending)
	rejected := f.addRequest(t, 50, models.RequestStatusRejected)

	tests := []struct {
		name      string
		studentID string
		requestID string
		hours     float64
		want      error
	}{
		{"zero hours", student.ID, "", 0, apperrors.ErrValidation},
		{"negative hours", student.ID, "", -2, apperrors.ErrValidation},
		{"NaN hours", student.ID, "", math.NaN(), apperrors.ErrValidation},
		{"infinite hours", student.ID, "", math.Inf(1), apperrors.ErrValidation},
		{"missing student id", "", "", 1, apperrors.ErrValidation},
		{"unknown student", uuid.New().String(), "", 1, apperrors.ErrNotFound},
		{"unknown request", student.ID, uuid.New().String(), 1, apperrors.ErrNotFound},
		{"pending request", student.ID, pending.ID, 1, apperrors.ErrRequestNotApproved},
		{"rejected request", student.ID, rejected.ID, 1, apperrors.ErrRequestNotApproved},
		{"more than the student has", student.ID, "", 11, apperrors.ErrInsufficientStudentHours},
		{"more than the request has", student.ID, approved.ID, 6, apperrors.ErrInsufficientRequestHours},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := f.ledger.Commit(context.Background(), ledger.CommitInput{
				StudentID: tt.studentID,
				RequestID: tt.requestID,
				Hours:     tt.hours,
			})
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, 10.0, f.student(t, student.ID).RemainingHours)
	assert.Equal(t, 5.0, f.request(t, approved.ID).RemainingHours)

	all, err := f.assignments.ListAll(context.Background(), models.AssignmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	f.assertConsistent(t)
}

func TestCommit_Boundary(t *testing.T) {
	f := newFixture(t)

	exact := f.addStudent(t, 10)
	f.commit(t, exact.ID, "", 10)
	s := f.student(t, exact.ID)
	assert.Equal(t, 0.0, s.RemainingHours)
	assert.Equal(t, models.StudentStatusActive, s.Status, "an open assignment keeps the student active")

	within := f.addStudent(t, 10)
	f.commit(t, within.ID, "", 10.0005)
	assert.Equal(t, 0.0, f.student(t, within.ID).RemainingHours)

	over := f.addStudent(t, 10)
	_, err := f.ledger.Commit(context.Background(), ledger.CommitInput{StudentID: over.ID, Hours: 11})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStudentHours)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, 10.0, f.student(t, over.ID).RemainingHours)
}

func TestRelease_RestoresBalances(t *testing.T) {
	f := newFixture(t)
	student := f.addStudent(t, 40)
	request := f.addRequest(t, 20, models.RequestStatusApproved)

	a := f.commit(t, student.ID, request.ID, 7.5)
	f.assertConsistent(t)

	out, err := f.ledger.Release(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusCancelled, out.Assignment.Status)

	assert.Equal(t, 40.0, f.student(t, student.ID).RemainingHours)
	assert.Equal(t, 20.0, f.request(t, request.ID).RemainingHours)
	f.assertConsistent(t)

	_, err = f.ledger.Release(context.Background(), a.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Equal(t, 40.0, f.student(t, student.ID).RemainingHours)
}

func TestRelease_FromInProgress(t *testing.T) {
	f := newFixture(t)
	student := f.addStudent(t, 10)
	a := f.commit(t, student.ID, "", 4)

	_, err := f.ledger.Start(context.Background(), a.ID)
	require.NoError(t, err)

	_, err = f.ledger.Release(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, f.student(t, student.ID).RemainingHours)
	f.assertConsistent(t)
}

func TestFinalize_KeepsHoursCommitted(t *testing.T) {
	f := newFixture(t)
	student := f.addStudent(t, 40)
	request := f.addRequest(t, 20, models.RequestStatusApproved)
	a := f.commit(t, student.ID, request.ID, 5)

	out, err := f.ledger.Finalize(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusCompleted, out.Assignment.Status)
	assert.Equal(t, models.VerificationVerified, out.Assignment.VerificationStatus)
	require.NotNil(t, out.Assignment.EndDate)

	assert.Equal(t, 35.0, f.student(t, student.ID).RemainingHours)
	assert.Equal(t, 15.0, f.request(t, request.ID).RemainingHours)
	f.assertConsistent(t)

	_, err = f.ledger.Finalize(context.Background(), a.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	_, err = f.ledger.Release(context.Background(), a.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	assert.Equal(t, 35.0, f.student(t, student.ID).RemainingHours)
	assert.Equal(t, 15.0, f.request(t, request.ID).RemainingHours)
	f.assertConsistent(t)
}

func TestStatusDerivation(t *testing.T) {
	f := newFixture(t)
	student := f.addStudent(t, 10)

	first := f.commit(t, student.ID, "", 6)
	second := f.commit(t, student.ID, "", 4)
	assert.Equal(t, 0.0, f.student(t, student.ID).RemainingHours)
	assert.Equal(t, models.StudentStatusActive, f.student(t, student.ID).Status)

	out, err := f.ledger.Finalize(context.Background(), first.ID)
	require.NoError(t, err)
	assert.False(t, out.StudentCompleted)
	assert.Equal(t, models.StudentStatusActive, f.student(t, student.ID).Status)

	out, err = f.ledger.Finalize(context.Background(), second.ID)
	require.NoError(t, err)
	assert.True(t, out.StudentCompleted)
	assert.Equal(t, models.StudentStatusCompleted, f.student(t, student.ID).Status)
	f.assertConsistent(t)
}

func TestStatusDerivation_ReleaseLeavesStudentActive(t *testing.T) {
	f := newFixture(t)
	student := f.addStudent(t, 10)
	a := f.commit(t, student.ID, "", 10)

	out, err := f.ledger.Release(context.Background(), a.ID)
	require.NoError(t, err)
	assert.False(t, out.StudentCompleted)
	assert.Equal(t, models.StudentStatusActive, f.student(t, student.ID).Status)
}

func TestTransition(t *testing.T) {
	f := newFixture(t)
	student := f.addStudent(t, 100)

	tests := []struct {
		name  string
		steps []models.AssignmentStatus
		want  error
	}{
		{"start then complete", []models.AssignmentStatus{models.AssignmentStatusInProgress, models.AssignmentStatusCompleted}, nil},
		{"start then cancel", []models.AssignmentStatus{models.AssignmentStatusInProgress, models.AssignmentStatusCancelled}, nil},
		{"start twice", []models.AssignmentStatus{models.AssignmentStatusInProgress, models.AssignmentStatusInProgress}, apperrors.ErrInvalidTransition},
		{"back to pending", []models.AssignmentStatus{models.AssignmentStatusPending}, apperrors.ErrValidation},
		{"start after cancel", []models.AssignmentStatus{models.AssignmentStatusCancelled, models.AssignmentStatusInProgress}, apperrors.ErrInvalidTransition},
		{"unknown target", []models.AssignmentStatus{"archived"}, apperrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := f.commit(t, student.ID, "", 1)
			var err error
			for _, step := range tt.steps {
				if _, err = f.ledger.Transition(context.Background(), a.ID, step); err != nil {
					break
				}
			}
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}

	_, err := f.ledger.Transition(context.Background(), uuid.New().String(), models.AssignmentStatusCompleted)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	f.assertConsistent(t)
}

func TestCommit_ConcurrentOverdraw(t *testing.T) {
	f := newFixture(t)
	student := f.addStudent(t, 10)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ledger.Commit(context.Background(), ledger.CommitInput{StudentID: student.ID, Hours: 6})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrInsufficientStudentHours)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 4.0, f.student(t, student.ID).RemainingHours)
	f.assertConsistent(t)
}

func TestCommit_ConcurrentFractional(t *testing.T) {
	f := newFixture(t)
	student := f.addStudent(t, 10)
	request := f.addRequest(t, 3, models.RequestStatusApproved)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Commit(context.Background(), ledger.CommitInput{
				StudentID: student.ID,
				RequestID: request.ID,
				Hours:     0.3,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 0.0, f.request(t, request.ID).RemainingHours)
	assert.InDelta(t, 7.0, f.student(t, student.ID).RemainingHours, ledger.HoursEpsilon)
	f.assertConsistent(t)
}

func TestDeleteRequest_Cascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addStudent(t, 20)
	bob := f.addStudent(t, 20)
	request := f.addRequest(t, 30, models.RequestStatusApproved)
	other := f.addRequest(t, 30, models.RequestStatusApproved)

	open := f.commit(t, alice.ID, request.ID, 5)
	done := f.commit(t, bob.ID, request.ID, 3)
	_, err := f.ledger.Finalize(ctx, done.ID)
	require.NoError(t, err)
	dropped := f.commit(t, alice.ID, request.ID, 2)
	_, err = f.ledger.Release(ctx, dropped.ID)
	require.NoError(t, err)
	untouched := f.commit(t, alice.ID, other.ID, 4)
	f.assertConsistent(t)

	removal, err := f.ledger.DeleteRequest(ctx, request.ID)
	require.NoError(t, err)

	require.Len(t, removal.Released, 1)
	assert.Equal(t, open.ID, removal.Released[0].ID)
	require.Len(t, removal.Detached, 1)
	assert.Equal(t, done.ID, removal.Detached[0].ID)
	assert.Equal(t, 2, removal.Deleted)

	gone, err := f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	assert.Equal(t, 16.0, f.student(t, alice.ID).RemainingHours)
	assert.Equal(t, 17.0, f.student(t, bob.ID).RemainingHours)

	kept, err := f.assignments.GetByID(ctx, done.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Nil(t, kept.ServiceRequestID)
	assert.Equal(t, models.AssignmentStatusCompleted, kept.Status)

	for _, id := range []string{open.ID, dropped.ID} {
		a, err := f.assignments.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, a)
	}

	still, err := f.assignments.GetByID(ctx, untouched.ID)
	require.NoError(t, err)
	require.NotNil(t, still)
	f.assertConsistent(t)

	_, err = f.ledger.DeleteRequest(ctx, request.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteRequest_WithoutAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.addStudent(t, 10)
	request := f.addRequest(t, 10, models.RequestStatusApproved)

	done := f.commit(t, student.ID, "", 10)
	_, err := f.ledger.Finalize(ctx, done.ID)
	require.NoError(t, err)
	require.Equal(t, models.StudentStatusCompleted, f.student(t, student.ID).Status)

	removal, err := f.ledger.DeleteRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.Empty(t, removal.Released)
	assert.Zero(t, removal.Deleted)
	f.assertConsistent(t)
}

func TestRemoveStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.addStudent(t, 20)
	request := f.addRequest(t, 30, models.RequestStatusApproved)

	f.commit(t, student.ID, request.ID, 5)
	cancelled := f.commit(t, student.ID, request.ID, 2)
	_, err := f.ledger.Release(ctx, cancelled.ID)
	require.NoError(t, err)
	f.commit(t, student.ID, "", 1)

	removal, err := f.ledger.RemoveStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Len(t, removal.Released, 2)
	assert.Equal(t, 3, removal.Deleted)
	require.Len(t, removal.Requests, 1)
	assert.Equal(t, 30.0, removal.Requests[0].RemainingHours)

	gone, err := f.students.GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.Equal(t, 30.0, f.request(t, request.ID).RemainingHours)

	left, err := f.assignments.ListAll(ctx, models.AssignmentFilter{StudentID: student.ID})
	require.NoError(t, err)
	assert.Empty(t, left)
	f.assertConsistent(t)
}

func TestRemoveStudent_WithCompletedService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.addStudent(t, 20)
	request := f.addRequest(t, 30, models.RequestStatusApproved)

	a := f.commit(t, student.ID, request.ID, 5)
	_, err := f.ledger.Finalize(ctx, a.ID)
	require.NoError(t, err)
	open := f.commit(t, student.ID, request.ID, 2)

	_, err = f.ledger.RemoveStudent(ctx, student.ID)
	assert.ErrorIs(t, err, apperrors.ErrCompletedServiceOnRecord)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	f.student(t, student.ID)
	still, err := f.assignments.GetByID(ctx, open.ID)
	require.NoError(t, err)
	require.NotNil(t, still)
	assert.Equal(t, 23.0, f.request(t, request.ID).RemainingHours)
	f.assertConsistent(t)
}

func TestEditStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.addStudent(t, 20)
	f.commit(t, student.ID, "", 8)

	edit := func(total float64, status models.StudentStatus) ledger.StudentEdit {
		return ledger.StudentEdit{
			StudentID:  student.StudentID,
			Name:       "Renamed Student",
			Email:      student.Email,
			Program:    "Biology",
			Year:       2,
			TotalHours: total,
			Status:     status,
		}
	}

	out, err := f.ledger.EditStudent(ctx, student.ID, edit(30, ""))
	require.NoError(t, err)
	assert.Equal(t, 22.0, out.Student.RemainingHours)
	assert.Equal(t, "Renamed Student", out.Student.Name)
	assert.Equal(t, models.StudentStatusActive, out.Student.Status)
	f.assertConsistent(t)

	_, err = f.ledger.EditStudent(ctx, student.ID, edit(7, ""))
	assert.ErrorIs(t, err, apperrors.ErrAllotmentBelowCommitted)
	assert.Equal(t, 30.0, f.student(t, student.ID).TotalHours)

	out, err = f.ledger.EditStudent(ctx, student.ID, edit(8, models.StudentStatusInactive))
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Student.RemainingHours)
	assert.Equal(t, models.StudentStatusInactive, out.Student.Status)
	f.assertConsistent(t)

	_, err = f.ledger.EditStudent(ctx, student.ID, edit(-1, ""))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.ledger.EditStudent(ctx, uuid.New().String(), edit(10, ""))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEditStudent_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.addStudent(t, 10)
	second := f.addStudent(t, 10)

	_, err := f.ledger.EditStudent(ctx, second.ID, ledger.StudentEdit{
		StudentID:  second.StudentID,
		Name:       second.Name,
		Email:      first.Email,
		TotalHours: second.TotalHours,
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, "email", apperrors.FieldOf(err))
	assert.Equal(t, second.Email, f.student(t, second.ID).Email)
}

func TestEditStudent_ZeroAllotmentCompletes(t *testing.T) {
	f := newFixture(t)
	student := f.addStudent(t, 5)

	out, err := f.ledger.EditStudent(context.Background(), student.ID, ledger.StudentEdit{
		StudentID: student.StudentID,
		Name:      student.Name,
		Email:     student.Email,
	})
	require.NoError(t, err)
	assert.True(t, out.StudentCompleted)
	assert.Equal(t, models.StudentStatusCompleted, out.Student.Status)
}

func TestAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.addStudent(t, 12)
	request := f.addRequest(t, 10, models.RequestStatusApproved)
	a := f.commit(t, student.ID, request.ID, 4)
	_, err := f.ledger.Finalize(ctx, a.ID)
	require.NoError(t, err)

	check, err := f.ledger.AuditStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)
	assert.Nil(t, check.Discrepancy)

	check, err = f.ledger.AuditRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)

	_, err = f.ledger.AuditStudent(ctx, uuid.New().String())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.ledger.AuditRequest(ctx, uuid.New().String())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAudit_ReportsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.addStudent(t, 12)
	f.commit(t, student.ID, "", 4)

	require.NoError(t, f.db.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		s, err := tx.LockStudent(ctx, student.ID)
		if err != nil {
			return err
		}
		s.RemainingHours = 9
		return tx.UpdateStudent(ctx, s)
	}))

	check, err := f.ledger.AuditStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.False(t, check.Consistent)
	require.NotNil(t, check.Discrepancy)
	assert.Equal(t, 8.0, check.Discrepancy.ExpectedBalance)
	assert.Equal(t, "remaining hours do not match committed assignments", check.Discrepancy.Reason)
}
