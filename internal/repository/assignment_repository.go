package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

// AssignmentRepository covers read access to assignments. Every write is a
// ledger operation.
type AssignmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.ServiceAssignment, error)
	GetAll(ctx context.Context, filter models.AssignmentFilter) ([]models.ServiceAssignment, int, error)
	// ListAll returns every assignment matching the filter, ignoring paging.
	ListAll(ctx context.Context, filter models.AssignmentFilter) ([]models.ServiceAssignment, error)
	CountByStatus(ctx context.Context, statuses []string) (int, error)
	SumHoursByStatus(ctx context.Context, statuses []string) (float64, error)
	GetProgress(ctx context.Context, limit, offset int) ([]models.StudentProgress, error)
}

type assignmentRepository struct {
	*PostgresRepository
}

func NewAssignmentRepository(db *sql.DB, logger zerolog.Logger) AssignmentRepository {
	return &assignmentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*models.ServiceAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_assignments WHERE id = $1`, assignmentColumns)
	return scanAssignment(r.db.QueryRowContext(ctx, query, id))
}

func (r *assignmentRepository) GetAll(ctx context.Context, filter models.AssignmentFilter) ([]models.ServiceAssignment, int, error) {
	where, args := assignmentWhere(filter)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM service_assignments %s`, where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limitArg(filter.Limit), filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s FROM service_assignments %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d
	`, assignmentColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	assignments, err := collectAssignments(rows)
	if err != nil {
		return nil, 0, err
	}
	return assignments, total, nil
}

func (r *assignmentRepository) ListAll(ctx context.Context, filter models.AssignmentFilter) ([]models.ServiceAssignment, error) {
	where, args := assignmentWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM service_assignments %s ORDER BY created_at, id`, assignmentColumns, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectAssignments(rows)
}

func (r *assignmentRepository) CountByStatus(ctx context.Context, statuses []string) (int, error) {
	query := `SELECT COUNT(*) FROM service_assignments WHERE status = ANY($1)`

	var count int
	err := r.db.QueryRowContext(ctx, query, pq.Array(statuses)).Scan(&count)
	return count, err
}

func (r *assignmentRepository) SumHoursByStatus(ctx context.Context, statuses []string) (float64, error) {
	query := `SELECT COALESCE(SUM(hours), 0) FROM service_assignments WHERE status = ANY($1)`

	var sum float64
	err := r.db.QueryRowContext(ctx, query, pq.Array(statuses)).Scan(&sum)
	return sum, err
}

func (r *assignmentRepository) GetProgress(ctx context.Context, limit, offset int) ([]models.StudentProgress, error) {
	query := `
		SELECT
			s.id, s.student_id, s.name, s.total_hours, s.remaining_hours,
			COALESCE(SUM(CASE WHEN a.status <> 'cancelled' THEN a.hours END), 0) AS assigned_hours,
			COALESCE(SUM(CASE WHEN a.status = 'completed' THEN a.hours END), 0) AS completed_hours,
			COUNT(CASE WHEN a.status <> 'cancelled' THEN 1 END) AS assignments
		FROM students s
		LEFT JOIN service_assignments a ON a.student_id = s.id
		GROUP BY s.id
		ORDER BY s.name, s.id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limitArg(limit), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var progress []models.StudentProgress
	for rows.Next() {
		var p models.StudentProgress
		var total float64
		err := rows.Scan(
			&p.ID,
			&p.StudentID,
			&p.Name,
			&total,
			&p.RemainingHours,
			&p.AssignedHours,
			&p.CompletedHours,
			&p.Assignments,
		)
		if err != nil {
			return nil, err
		}
		p.ProgressPercentage = models.ProgressPercentage(p.CompletedHours, total)
		progress = append(progress, p)
	}

	return progress, rows.Err()
}
