package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

type RequestRepository interface {
	Create(ctx context.Context, request *models.ServiceRequest) error
	GetByID(ctx context.Context, id string) (*models.ServiceRequest, error)
	GetAll(ctx context.Context, filter models.RequestFilter) ([]models.ServiceRequest, int, error)
	// UpdateStatus moves a request from one status to another and reports
	// false when the request was not in the expected status.
	UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus, at time.Time) (bool, error)
	CountByStatus(ctx context.Context, status string) (int, error)
}

type requestRepository struct {
	*PostgresRepository
}

func NewRequestRepository(db *sql.DB, logger zerolog.Logger) RequestRepository {
	return &requestRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *requestRepository) Create(ctx context.Context, request *models.ServiceRequest) error {
	query := `
		INSERT INTO service_requests (id, service_type, description, location, supervisor_name, supervisor_email,
			total_hours, remaining_hours, status, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		request.ID,
		request.ServiceType,
		request.Description,
		request.Location,
		request.SupervisorName,
		request.SupervisorEmail,
		request.TotalHours,
		request.RemainingHours,
		request.Status,
		request.StartDate,
		request.EndDate,
		request.CreatedAt,
		request.UpdatedAt,
	)

	return mapError(err)
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*models.ServiceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE id = $1`, requestColumns)
	return scanRequest(r.db.QueryRowContext(ctx, query, id))
}

func (r *requestRepository) GetAll(ctx context.Context, filter models.RequestFilter) ([]models.ServiceRequest, int, error) {
	var conditions []string
	var args []interface{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := whereClause(conditions)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM service_requests %s`, where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limitArg(filter.Limit), filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s FROM service_requests %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d
	`, requestColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var requests []models.ServiceRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, *request)
	}

	return requests, total, rows.Err()
}

func (r *requestRepository) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus, at time.Time) (bool, error) {
	query := `
		UPDATE service_requests
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, to, at, id, from)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *requestRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	query := `SELECT COUNT(*) FROM service_requests`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}

	var count int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}
