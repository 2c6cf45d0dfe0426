package memory

import (
	"context"
	"sort"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/repository"
)

type assignmentRepository struct {
	db *DB
}

func NewAssignmentRepository(db *DB) repository.AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) query(filter models.AssignmentFilter) []models.ServiceAssignment {
	var assignments []models.ServiceAssignment
	for _, a := range r.db.state.assignments {
		if matchesAssignment(a, filter) {
			assignments = append(assignments, cloneAssignment(a))
		}
	}
	return assignments
}

func (r *assignmentRepository) GetByID(_ context.Context, id string) (*models.ServiceAssignment, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	a, ok := r.db.state.assignments[id]
	if !ok {
		return nil, nil
	}
	a = cloneAssignment(a)
	return &a, nil
}

func (r *assignmentRepository) GetAll(_ context.Context, filter models.AssignmentFilter) ([]models.ServiceAssignment, int, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	assignments := r.query(filter)
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].CreatedAt.Equal(assignments[j].CreatedAt) {
			return assignments[i].ID < assignments[j].ID
		}
		return assignments[i].CreatedAt.After(assignments[j].CreatedAt)
	})

	return page(assignments, filter.Limit, filter.Offset), len(assignments), nil
}

func (r *assignmentRepository) ListAll(_ context.Context, filter models.AssignmentFilter) ([]models.ServiceAssignment, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	assignments := r.query(filter)
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].CreatedAt.Equal(assignments[j].CreatedAt) {
			return assignments[i].ID < assignments[j].ID
		}
		return assignments[i].CreatedAt.Before(assignments[j].CreatedAt)
	})
	return assignments, nil
}

func (r *assignmentRepository) CountByStatus(_ context.Context, statuses []string) (int, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	return len(r.query(models.AssignmentFilter{Statuses: statuses})), nil
}

func (r *assignmentRepository) SumHoursByStatus(_ context.Context, statuses []string) (float64, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	var sum float64
	for _, a := range r.query(models.AssignmentFilter{Statuses: statuses}) {
		sum += a.Hours
	}
	return sum, nil
}

func (r *assignmentRepository) GetProgress(_ context.Context, limit, offset int) ([]models.StudentProgress, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	byStudent := make(map[string]*models.StudentProgress, len(r.db.state.students))
	totals := make(map[string]float64, len(r.db.state.students))
	progress := make([]*models.StudentProgress, 0, len(r.db.state.students))
	for _, s := range r.db.state.students {
		p := &models.StudentProgress{
			ID:             s.ID,
			StudentID:      s.StudentID,
			Name:           s.Name,
			RemainingHours: s.RemainingHours,
		}
		byStudent[s.ID] = p
		totals[s.ID] = s.TotalHours
		progress = append(progress, p)
	}

	for _, a := range r.db.state.assignments {
		p, ok := byStudent[a.StudentID]
		if !ok || a.Status == models.AssignmentStatusCancelled {
			continue
		}
		p.AssignedHours += a.Hours
		p.Assignments++
		if a.Status == models.AssignmentStatusCompleted {
			p.CompletedHours += a.Hours
		}
	}

	sort.Slice(progress, func(i, j int) bool {
		if progress[i].Name == progress[j].Name {
			return progress[i].ID < progress[j].ID
		}
		return progress[i].Name < progress[j].Name
	})

	var out []models.StudentProgress
	for _, p := range page(progress, limit, offset) {
		p.ProgressPercentage = models.ProgressPercentage(p.CompletedHours, totals[p.ID])
		out = append(out, *p)
	}
	return out, nil
}
