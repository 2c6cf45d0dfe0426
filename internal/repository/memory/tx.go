package memory

import (
	"context"
	"sort"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/apperrors"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

// memTx works on a private copy, so locks are implicit.
type memTx struct {
	state state
}

func (t *memTx) LockRequest(_ context.Context, id string) (*models.ServiceRequest, error) {
	r, ok := t.state.requests[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (t *memTx) LockStudent(_ context.Context, id string) (*models.Student, error) {
	s, ok := t.state.students[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (t *memTx) LockAssignment(ctx context.Context, id string) (*models.ServiceAssignment, error) {
	return t.GetAssignment(ctx, id)
}

func (t *memTx) LockAssignments(_ context.Context, filter models.AssignmentFilter) ([]models.ServiceAssignment, error) {
	var out []models.ServiceAssignment
	for _, a := range t.state.assignments {
		if matchesAssignment(a, filter) {
			out = append(out, cloneAssignment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (t *memTx) GetAssignment(_ context.Context, id string) (*models.ServiceAssignment, error) {
	a, ok := t.state.assignments[id]
	if !ok {
		return nil, nil
	}
	a = cloneAssignment(a)
	return &a, nil
}

func (t *memTx) CountActiveAssignments(_ context.Context, studentID string) (int, error) {
	count := 0
	for _, a := range t.state.assignments {
		if a.StudentID == studentID && a.Status.Active() {
			count++
		}
	}
	return count, nil
}

func (t *memTx) InsertAssignment(_ context.Context, a *models.ServiceAssignment) error {
	if _, ok := t.state.assignments[a.ID]; ok {
		return apperrors.Conflict("id", "assignment %s already exists", a.ID)
	}
	if _, ok := t.state.students[a.StudentID]; !ok {
		return apperrors.Inconsistent("assignment %s references missing student %s", a.ID, a.StudentID)
	}
	if id := a.RequestID(); id != "" {
		if _, ok := t.state.requests[id]; !ok {
			return apperrors.Inconsistent("assignment %s references missing service request %s", a.ID, id)
		}
	}
	t.state.assignments[a.ID] = cloneAssignment(*a)
	return nil
}

func (t *memTx) UpdateAssignment(_ context.Context, a *models.ServiceAssignment) error {
	current, ok := t.state.assignments[a.ID]
	if !ok {
		return missingRow("assignment", a.ID)
	}
	current.ServiceRequestID = a.ServiceRequestID
	current.Status = a.Status
	current.VerificationStatus = a.VerificationStatus
	current.EndDate = a.EndDate
	current.UpdatedAt = a.UpdatedAt
	t.state.assignments[a.ID] = cloneAssignment(current)
	return nil
}

func (t *memTx) DeleteAssignment(_ context.Context, id string) error {
	if _, ok := t.state.assignments[id]; !ok {
		return missingRow("assignment", id)
	}
	delete(t.state.assignments, id)
	return nil
}

func (t *memTx) UpdateStudent(_ context.Context, s *models.Student) error {
	if _, ok := t.state.students[s.ID]; !ok {
		return missingRow("student", s.ID)
	}
	if err := t.state.checkStudentUnique(s); err != nil {
		return err
	}
	t.state.students[s.ID] = *s
	return nil
}

func (t *memTx) DeleteStudent(_ context.Context, id string) error {
	if _, ok := t.state.students[id]; !ok {
		return missingRow("student", id)
	}
	for _, a := range t.state.assignments {
		if a.StudentID == id {
			return apperrors.Inconsistent("student %s still has assignment %s", id, a.ID)
		}
	}
	delete(t.state.students, id)
	return nil
}

func (t *memTx) UpdateRequest(_ context.Context, r *models.ServiceRequest) error {
	current, ok := t.state.requests[r.ID]
	if !ok {
		return missingRow("service request", r.ID)
	}
	current.RemainingHours = r.RemainingHours
	current.Status = r.Status
	current.UpdatedAt = r.UpdatedAt
	t.state.requests[r.ID] = current
	return nil
}

func (t *memTx) DeleteRequest(_ context.Context, id string) error {
	if _, ok := t.state.requests[id]; !ok {
		return missingRow("service request", id)
	}
	for _, a := range t.state.assignments {
		if a.RequestID() == id {
			return apperrors.Inconsistent("service request %s still has assignment %s", id, a.ID)
		}
	}
	delete(t.state.requests, id)
	return nil
}

func missingRow(resource, id string) error {
	return apperrors.Inconsistent("expected one row to change, %s %s does not exist", resource, id)
}
