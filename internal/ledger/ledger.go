package ledger

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/apperrors"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

// Ledger keeps student and service request balances consistent with the
// assignments that draw on them. Every exported operation is one Store unit.
type Ledger struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

func New(store Store, logger zerolog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CommitInput describes hours to allocate to a student, optionally drawn
// from a service request. Descriptive fields are ignored when a request is
// linked; they are mirrored from the request instead.
type CommitInput struct {
	StudentID   string
	RequestID   string
	Hours       float64
	StartDate   time.Time
	ServiceType string
	Description string
	Location    string
	Supervisor  string
}

// Outcome is the state left behind by a single-assignment operation.
type Outcome struct {
	Assignment *models.ServiceAssignment
	Student    *models.Student
	Request    *models.ServiceRequest
	// StudentCompleted is set when this operation moved the student to
	// completed.
	StudentCompleted bool
}

// Commit allocates hours to a new pending assignment, debiting the student
// and, when linked, the request.
func (l *Ledger) Commit(ctx context.Context, in CommitInput) (*Outcome, error) {
	if math.IsNaN(in.Hours) || math.IsInf(in.Hours, 0) || in.Hours <= 0 {
		return nil, apperrors.Validation("hours", "hours must be greater than 0")
	}
	if in.StudentID == "" {
		return nil, apperrors.Validation("student_id", "student_id is required")
	}

	var out *Outcome
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		out = nil

		var request *models.ServiceRequest
		if in.RequestID != "" {
			r, err := tx.LockRequest(ctx, in.RequestID)
			if err != nil {
				return apperrors.Store("lock service request", err)
			}
			if r == nil {
				return apperrors.NotFound("service request", in.RequestID)
			}
			if r.Status != models.RequestStatusApproved {
				return apperrors.ErrRequestNotApproved.With(
					"service request %s is %s; only approved requests accept assignments", r.ID, r.Status)
			}
			request = r
		}

		student, err := tx.LockStudent(ctx, in.StudentID)
		if err != nil {
			return apperrors.Store("lock student", err)
		}
		if student == nil {
			return apperrors.NotFound("student", in.StudentID)
		}

		if exceeds(in.Hours, student.RemainingHours) {
			return apperrors.ErrInsufficientStudentHours.With(
				"cannot assign %g hours: student only has %g remaining hours available", in.Hours, student.RemainingHours)
		}
		if request != nil && exceeds(in.Hours, request.RemainingHours) {
			return apperrors.ErrInsufficientRequestHours.With(
				"cannot assign %g hours: service request only has %g remaining hours available", in.Hours, request.RemainingHours)
		}

		now := l.now()
		startDate := in.StartDate
		if startDate.IsZero() {
			startDate = day(now)
		}

		assignment := &models.ServiceAssignment{
			ID:                 l.newID(),
			StudentID:          student.ID,
			Hours:              in.Hours,
			Status:             models.AssignmentStatusPending,
			VerificationStatus: models.VerificationPending,
			ServiceType:        in.ServiceType,
			Description:        in.Description,
			Location:           in.Location,
			Supervisor:         in.Supervisor,
			StartDate:          startDate,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if request != nil {
			requestID := request.ID
			endDate := request.EndDate
			assignment.ServiceRequestID = &requestID
			assignment.ServiceType = request.ServiceType
			assignment.Description = request.Description
			assignment.Location = request.Location
			assignment.Supervisor = request.SupervisorName
			assignment.SupervisorEmail = request.SupervisorEmail
			if !endDate.IsZero() {
				assignment.EndDate = &endDate
			}
		}

		if err := tx.InsertAssignment(ctx, assignment); err != nil {
			return apperrors.Store("insert assignment", err)
		}

		student.RemainingHours = clampLow(student.RemainingHours - in.Hours)
		completed, err := l.rederive(ctx, tx, student)
		if err != nil {
			return err
		}
		student.UpdatedAt = now
		if err := tx.UpdateStudent(ctx, student); err != nil {
			return apperrors.Store("update student balance", err)
		}

		if request != nil {
			request.RemainingHours = clampLow(request.RemainingHours - in.Hours)
			request.UpdatedAt = now
			if err := tx.UpdateRequest(ctx, request); err != nil {
				return apperrors.Store("update service request balance", err)
			}
		}

		out = &Outcome{Assignment: assignment, Student: student, Request: request, StudentCompleted: completed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Release cancels a non-terminal assignment and returns its hours to the
// student and the linked request.
func (l *Ledger) Release(ctx context.Context, assignmentID string) (*Outcome, error) {
	var out *Outcome
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		out = nil

		peek, err := tx.GetAssignment(ctx, assignmentID)
		if err != nil {
			return apperrors.Store("get assignment", err)
		}
		if peek == nil {
			return apperrors.NotFound("assignment", assignmentID)
		}

		var request *models.ServiceRequest
		if requestID := peek.RequestID(); requestID != "" {
			request, err = tx.LockRequest(ctx, requestID)
			if err != nil {
				return apperrors.Store("lock service request", err)
			}
			if request == nil {
				return apperrors.Inconsistent("assignment %s references missing service request %s", assignmentID, requestID)
			}
		}

		assignment, student, err := l.lockForTransition(ctx, tx, assignmentID, models.AssignmentStatusCancelled)
		if err != nil {
			return err
		}

		now := l.now()
		if err := credit(student, request, assignment.Hours); err != nil {
			return err
		}

		assignment.Status = models.AssignmentStatusCancelled
		assignment.UpdatedAt = now
		if err := tx.UpdateAssignment(ctx, assignment); err != nil {
			return apperrors.Store("update assignment", err)
		}

		completed, err := l.rederive(ctx, tx, student)
		if err != nil {
			return err
		}
		student.UpdatedAt = now
		if err := tx.UpdateStudent(ctx, student); err != nil {
			return apperrors.Store("update student balance", err)
		}
		if request != nil {
			request.UpdatedAt = now
			if err := tx.UpdateRequest(ctx, request); err != nil {
				return apperrors.Store("update service request balance", err)
			}
		}

		out = &Outcome{Assignment: assignment, Student: student, Request: request, StudentCompleted: completed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Finalize completes a non-terminal assignment. Its hours stay committed.
func (l *Ledger) Finalize(ctx context.Context, assignmentID string) (*Outcome, error) {
	var out *Outcome
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		out = nil

		assignment, student, err := l.lockForTransition(ctx, tx, assignmentID, models.AssignmentStatusCompleted)
		if err != nil {
			return err
		}

		now := l.now()
		endDate := day(now)
		assignment.Status = models.AssignmentStatusCompleted
		assignment.VerificationStatus = models.VerificationVerified
		assignment.EndDate = &endDate
		assignment.UpdatedAt = now
		if err := tx.UpdateAssignment(ctx, assignment); err != nil {
			return apperrors.Store("update assignment", err)
		}

		completed, err := l.rederive(ctx, tx, student)
		if err != nil {
			return err
		}
		if completed {
			student.UpdatedAt = now
			if err := tx.UpdateStudent(ctx, student); err != nil {
				return apperrors.Store("update student status", err)
			}
		}

		out = &Outcome{Assignment: assignment, Student: student, StudentCompleted: completed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Start moves a pending assignment to in_progress. Balances are untouched.
func (l *Ledger) Start(ctx context.Context, assignmentID string) (*Outcome, error) {
	var out *Outcome
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		out = nil

		assignment, err := tx.LockAssignment(ctx, assignmentID)
		if err != nil {
			return apperrors.Store("lock assignment", err)
		}
		if assignment == nil {
			return apperrors.NotFound("assignment", assignmentID)
		}
		if err := checkTransition(assignment, models.AssignmentStatusInProgress); err != nil {
			return err
		}

		assignment.Status = models.AssignmentStatusInProgress
		assignment.UpdatedAt = l.now()
		if err := tx.UpdateAssignment(ctx, assignment); err != nil {
			return apperrors.Store("update assignment", err)
		}

		out = &Outcome{Assignment: assignment}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Transition applies a lifecycle move by target status.
func (l *Ledger) Transition(ctx context.Context, assignmentID string, to models.AssignmentStatus) (*Outcome, error) {
	switch to {
	case models.AssignmentStatusInProgress:
		return l.Start(ctx, assignmentID)
	case models.AssignmentStatusCompleted:
		return l.Finalize(ctx, assignmentID)
	case models.AssignmentStatusCancelled:
		return l.Release(ctx, assignmentID)
	default:
		return nil, apperrors.Validation("status", "status %q is not a valid target", to)
	}
}

// RequestRemoval reports what DeleteRequest did.
type RequestRemoval struct {
	Request  *models.ServiceRequest
	Released []models.ServiceAssignment
	Detached []models.ServiceAssignment
	Deleted  int
	// CompletedStudents lists students moved to completed by the cascade.
	CompletedStudents []string
	Students          []models.Student
}

// DeleteRequest removes a service request. Hours held by its non-terminal
// assignments go back to their students first; completed assignments are
// kept on the student and unlinked.
func (l *Ledger) DeleteRequest(ctx context.Context, requestID string) (*RequestRemoval, error) {
	var out *RequestRemoval
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		out = nil

		request, err := tx.LockRequest(ctx, requestID)
		if err != nil {
			return apperrors.Store("lock service request", err)
		}
		if request == nil {
			return apperrors.NotFound("service request", requestID)
		}

		assignments, err := tx.LockAssignments(ctx, models.AssignmentFilter{RequestID: requestID})
		if err != nil {
			return apperrors.Store("lock request assignments", err)
		}
		sort.Slice(assignments, func(i, j int) bool {
			return assignments[i].StudentID < assignments[j].StudentID
		})

		now := l.now()
		removal := &RequestRemoval{Request: request}
		students := make(map[string]*models.Student)
		var order []string

		for i := range assignments {
			a := assignments[i]
			switch {
			case a.Status.Active():
				student, ok := students[a.StudentID]
				if !ok {
					student, err = tx.LockStudent(ctx, a.StudentID)
					if err != nil {
						return apperrors.Store("lock student", err)
					}
					if student == nil {
						return apperrors.Inconsistent("assignment %s references missing student %s", a.ID, a.StudentID)
					}
					students[a.StudentID] = student
					order = append(order, a.StudentID)
				}
				if err := credit(student, request, a.Hours); err != nil {
					return err
				}
				if err := tx.DeleteAssignment(ctx, a.ID); err != nil {
					return apperrors.Store("delete assignment", err)
				}
				a.Status = models.AssignmentStatusCancelled
				removal.Released = append(removal.Released, a)
				removal.Deleted++
			case a.Status == models.AssignmentStatusCompleted:
				a.ServiceRequestID = nil
				a.UpdatedAt = now
				if err := tx.UpdateAssignment(ctx, &a); err != nil {
					return apperrors.Store("detach assignment", err)
				}
				removal.Detached = append(removal.Detached, a)
			default:
				if err := tx.DeleteAssignment(ctx, a.ID); err != nil {
					return apperrors.Store("delete assignment", err)
				}
				removal.Deleted++
			}
		}

		for _, id := range order {
			student := students[id]
			completed, err := l.rederive(ctx, tx, student)
			if err != nil {
				return err
			}
			student.UpdatedAt = now
			if err := tx.UpdateStudent(ctx, student); err != nil {
				return apperrors.Store("update student balance", err)
			}
			if completed {
				removal.CompletedStudents = append(removal.CompletedStudents, id)
			}
			removal.Students = append(removal.Students, *student)
		}

		if err := tx.DeleteRequest(ctx, requestID); err != nil {
			return apperrors.Store("delete service request", err)
		}

		out = removal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StudentRemoval reports what RemoveStudent did.
type StudentRemoval struct {
	Student  *models.Student
	Released []models.ServiceAssignment
	Deleted  int
	Requests []models.ServiceRequest
}

// RemoveStudent deletes a student with all its assignments, returning hours
// held by non-terminal ones to their requests. Students with completed
// assignments are kept, since those hours stay spent on their requests.
//
// The student row is locked before the requests, against the usual order,
// so that no assignment can be committed to the student meanwhile; the
// resulting deadlocks are resolved by the store's retry.
func (l *Ledger) RemoveStudent(ctx context.Context, studentID string) (*StudentRemoval, error) {
	var out *StudentRemoval
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		out = nil

		student, err := tx.LockStudent(ctx, studentID)
		if err != nil {
			return apperrors.Store("lock student", err)
		}
		if student == nil {
			return apperrors.NotFound("student", studentID)
		}

		assignments, err := tx.LockAssignments(ctx, models.AssignmentFilter{StudentID: studentID})
		if err != nil {
			return apperrors.Store("lock student assignments", err)
		}

		for _, a := range assignments {
			if a.Status == models.AssignmentStatusCompleted {
				return apperrors.ErrCompletedServiceOnRecord.With(
					"student %s has completed assignment %s on record; set the student inactive instead", studentID, a.ID)
			}
		}

		now := l.now()
		removal := &StudentRemoval{Student: student}
		requests := make(map[string]*models.ServiceRequest)
		var order []string

		for i := range assignments {
			a := assignments[i]
			if !a.Status.Active() {
				if err := tx.DeleteAssignment(ctx, a.ID); err != nil {
					return apperrors.Store("delete assignment", err)
				}
				removal.Deleted++
				continue
			}
			if requestID := a.RequestID(); requestID != "" {
				request, ok := requests[requestID]
				if !ok {
					request, err = tx.LockRequest(ctx, requestID)
					if err != nil {
						return apperrors.Store("lock service request", err)
					}
					if request == nil {
						return apperrors.Inconsistent("assignment %s references missing service request %s", a.ID, requestID)
					}
					requests[requestID] = request
					order = append(order, requestID)
				}
				if err := creditRequest(request, a.Hours); err != nil {
					return err
				}
			}
			a.Status = models.AssignmentStatusCancelled
			removal.Released = append(removal.Released, a)
			if err := tx.DeleteAssignment(ctx, a.ID); err != nil {
				return apperrors.Store("delete assignment", err)
			}
			removal.Deleted++
		}

		for _, id := range order {
			request := requests[id]
			request.UpdatedAt = now
			if err := tx.UpdateRequest(ctx, request); err != nil {
				return apperrors.Store("update service request balance", err)
			}
			removal.Requests = append(removal.Requests, *request)
		}

		if err := tx.DeleteStudent(ctx, studentID); err != nil {
			return apperrors.Store("delete student", err)
		}

		out = removal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StudentEdit is an admin edit of a student record.
type StudentEdit struct {
	StudentID  string
	Name       string
	Email      string
	Program    string
	Year       int
	TotalHours float64
	Status     models.StudentStatus
}

// EditStudent applies an admin edit. A change of total_hours moves
// remaining_hours by the same amount and may not drop the allotment below
// the hours already committed.
func (l *Ledger) EditStudent(ctx context.Context, id string, edit StudentEdit) (*Outcome, error) {
	if math.IsNaN(edit.TotalHours) || math.IsInf(edit.TotalHours, 0) || edit.TotalHours < 0 {
		return nil, apperrors.Validation("total_hours", "total_hours must be 0 or greater")
	}

	var out *Outcome
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		out = nil

		student, err := tx.LockStudent(ctx, id)
		if err != nil {
			return apperrors.Store("lock student", err)
		}
		if student == nil {
			return apperrors.NotFound("student", id)
		}

		student.StudentID = edit.StudentID
		student.Name = edit.Name
		student.Email = edit.Email
		student.Program = edit.Program
		student.Year = edit.Year
		if edit.Status != "" {
			student.Status = edit.Status
		}

		completed := false
		if edit.TotalHours != student.TotalHours {
			committed := student.CommittedHours()
			if exceeds(committed, edit.TotalHours) {
				return apperrors.ErrAllotmentBelowCommitted.With(
					"total_hours %g is below the %g hours already committed", edit.TotalHours, committed)
			}
			student.TotalHours = edit.TotalHours
			student.RemainingHours = clampLow(edit.TotalHours - committed)
			completed, err = l.rederive(ctx, tx, student)
			if err != nil {
				return err
			}
		}

		student.UpdatedAt = l.now()
		if err := tx.UpdateStudent(ctx, student); err != nil {
			return apperrors.Store("update student", err)
		}

		out = &Outcome{Student: student, StudentCompleted: completed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lockForTransition locks an assignment and its student and checks that the
// assignment may move to the given status.
func (l *Ledger) lockForTransition(ctx context.Context, tx Tx, assignmentID string, to models.AssignmentStatus) (*models.ServiceAssignment, *models.Student, error) {
	assignment, err := tx.LockAssignment(ctx, assignmentID)
	if err != nil {
		return nil, nil, apperrors.Store("lock assignment", err)
	}
	if assignment == nil {
		return nil, nil, apperrors.NotFound("assignment", assignmentID)
	}
	if err := checkTransition(assignment, to); err != nil {
		return nil, nil, err
	}

	student, err := tx.LockStudent(ctx, assignment.StudentID)
	if err != nil {
		return nil, nil, apperrors.Store("lock student", err)
	}
	if student == nil {
		return nil, nil, apperrors.Inconsistent("assignment %s references missing student %s", assignmentID, assignment.StudentID)
	}
	return assignment, student, nil
}

// rederive recomputes the student's status from state read inside tx and
// reports whether it moved to completed.
func (l *Ledger) rederive(ctx context.Context, tx Tx, student *models.Student) (bool, error) {
	active, err := tx.CountActiveAssignments(ctx, student.ID)
	if err != nil {
		return false, apperrors.Store("count active assignments", err)
	}
	next := DeriveStatus(student.Status, student.RemainingHours, active)
	changed := next != student.Status
	student.Status = next
	if changed {
		l.logger.Debug().
			Str("student_id", student.ID).
			Str("status", next.String()).
			Msg("Student status derived")
	}
	return changed && next == models.StudentStatusCompleted, nil
}

// credit returns hours to a student and, if given, a request.
func credit(student *models.Student, request *models.ServiceRequest, hours float64) error {
	student.RemainingHours += hours
	if exceeds(student.RemainingHours, student.TotalHours) {
		return apperrors.Inconsistent("releasing %g hours would lift student %s above its %g hour allotment",
			hours, student.ID, student.TotalHours)
	}
	student.RemainingHours = math.Min(student.RemainingHours, student.TotalHours)
	if request != nil {
		return creditRequest(request, hours)
	}
	return nil
}

func creditRequest(request *models.ServiceRequest, hours float64) error {
	request.RemainingHours += hours
	if exceeds(request.RemainingHours, request.TotalHours) {
		return apperrors.Inconsistent("releasing %g hours would lift service request %s above its %g hour total",
			hours, request.ID, request.TotalHours)
	}
	request.RemainingHours = math.Min(request.RemainingHours, request.TotalHours)
	return nil
}

func clampLow(hours float64) float64 {
	hours = settle(hours)
	if hours < 0 {
		return 0
	}
	return hours
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
