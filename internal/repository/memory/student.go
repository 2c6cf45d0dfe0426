package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/apperrors"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/repository"
)

type studentRepository struct {
	db *DB
}

func NewStudentRepository(db *DB) repository.StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) Create(_ context.Context, student *models.Student) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.state.students[student.ID]; ok {
		return apperrors.Conflict("id", "student %s already exists", student.ID)
	}
	if err := r.db.state.checkStudentUnique(student); err != nil {
		return err
	}
	r.db.state.students[student.ID] = *student
	return nil
}

func (r *studentRepository) GetByID(_ context.Context, id string) (*models.Student, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	s, ok := r.db.state.students[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *studentRepository) GetAll(_ context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	var students []models.Student
	for _, s := range r.db.state.students {
		if filter.Status != "" && s.Status.String() != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(s.Name), search) &&
			!strings.Contains(strings.ToLower(s.Email), search) &&
			!strings.Contains(strings.ToLower(s.StudentID), search) {
			continue
		}
		students = append(students, s)
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].Name == students[j].Name {
			return students[i].ID < students[j].ID
		}
		return students[i].Name < students[j].Name
	})

	return page(students, filter.Limit, filter.Offset), len(students), nil
}

func (r *studentRepository) CountByStatus(_ context.Context, status string) (int, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	count := 0
	for _, s := range r.db.state.students {
		if status == "" || s.Status.String() == status {
			count++
		}
	}
	return count, nil
}
