package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

// StudentRepository covers reads and inserts of students. Balance-affecting
// writes go through the ledger.
type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	GetByID(ctx context.Context, id string) (*models.Student, error)
	GetAll(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	CountByStatus(ctx context.Context, status string) (int, error)
}

type studentRepository struct {
	*PostgresRepository
}

func NewStudentRepository(db *sql.DB, logger zerolog.Logger) StudentRepository {
	return &studentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	query := `
		INSERT INTO students (id, student_id, name, email, program, year,
			total_hours, remaining_hours, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		student.ID,
		student.StudentID,
		student.Name,
		student.Email,
		student.Program,
		student.Year,
		student.TotalHours,
		student.RemainingHours,
		student.Status,
		student.CreatedAt,
		student.UpdatedAt,
	)

	return mapError(err)
}

func (r *studentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	return scanStudent(r.db.QueryRowContext(ctx, query, id))
}

func (r *studentRepository) GetAll(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR student_id ILIKE $%d)", n, n, n))
	}
	where := whereClause(conditions)

	// count before paging
	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM students %s`, where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limitArg(filter.Limit), filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s FROM students %s
		ORDER BY name, id
		LIMIT $%d OFFSET $%d
	`, studentColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, 0, err
		}
		students = append(students, *student)
	}

	return students, total, rows.Err()
}

func (r *studentRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	query := `SELECT COUNT(*) FROM students`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}

	var count int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}
