package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/apperrors"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/ledger"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

const retryBackoff = 20 * time.Millisecond

// LedgerStore runs ledger units as PostgreSQL transactions. Units that lose
// a deadlock or serialization race are re-run up to maxRetries times.
type LedgerStore struct {
	*PostgresRepository
	maxRetries int
}

func NewLedgerStore(db *sql.DB, logger zerolog.Logger, maxRetries int) *LedgerStore {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &LedgerStore{
		PostgresRepository: NewPostgresRepository(db, logger),
		maxRetries:         maxRetries,
	}
}

func (s *LedgerStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	for attempt := 0; ; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) || attempt >= s.maxRetries {
			return err
		}

		s.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Msg("Retrying ledger transaction")

		select {
		case <-ctx.Done():
			return apperrors.Store("retry ledger transaction", ctx.Err())
		case <-time.After(retryBackoff * time.Duration(attempt+1)):
		}
	}
}

func (s *LedgerStore) runTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) (err error) {
	sqlTx, err := s.BeginTx(ctx)
	if err != nil {
		return apperrors.Store("begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.logger.Error().Err(rbErr).Msg("Failed to rollback transaction")
			}
		}
	}()

	if err = fn(ctx, &ledgerTx{tx: sqlTx}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return apperrors.Store("commit transaction", err)
	}
	return nil
}

type ledgerTx struct {
	tx *sql.Tx
}

func (t *ledgerTx) LockRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE id = $1 FOR UPDATE`, requestColumns)
	return scanRequest(t.tx.QueryRowContext(ctx, query, id))
}

func (t *ledgerTx) LockStudent(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1 FOR UPDATE`, studentColumns)
	return scanStudent(t.tx.QueryRowContext(ctx, query, id))
}

func (t *ledgerTx) LockAssignment(ctx context.Context, id string) (*models.ServiceAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_assignments WHERE id = $1 FOR UPDATE`, assignmentColumns)
	return scanAssignment(t.tx.QueryRowContext(ctx, query, id))
}

func (t *ledgerTx) LockAssignments(ctx context.Context, filter models.AssignmentFilter) ([]models.ServiceAssignment, error) {
	where, args := assignmentWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM service_assignments %s ORDER BY created_at, id FOR UPDATE`, assignmentColumns, where)

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectAssignments(rows)
}

func (t *ledgerTx) GetAssignment(ctx context.Context, id string) (*models.ServiceAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_assignments WHERE id = $1`, assignmentColumns)
	return scanAssignment(t.tx.QueryRowContext(ctx, query, id))
}

func (t *ledgerTx) CountActiveAssignments(ctx context.Context, studentID string) (int, error) {
	query := `SELECT COUNT(*) FROM service_assignments WHERE student_id = $1 AND status = ANY($2)`

	var count int
	err := t.tx.QueryRowContext(ctx, query, studentID, pq.Array(activeStatuses)).Scan(&count)
	return count, err
}

func (t *ledgerTx) InsertAssignment(ctx context.Context, a *models.ServiceAssignment) error {
	query := `
		INSERT INTO service_assignments (id, student_id, service_request_id, hours, status, verification_status,
			service_type, description, location, supervisor, supervisor_email,
			start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := t.tx.ExecContext(ctx, query,
		a.ID,
		a.StudentID,
		nullString(a.ServiceRequestID),
		a.Hours,
		a.Status,
		a.VerificationStatus,
		a.ServiceType,
		a.Description,
		a.Location,
		a.Supervisor,
		a.SupervisorEmail,
		a.StartDate,
		a.EndDate,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return mapError(err)
}

func (t *ledgerTx) UpdateAssignment(ctx context.Context, a *models.ServiceAssignment) error {
	query := `
		UPDATE service_assignments
		SET service_request_id = $1, status = $2, verification_status = $3, end_date = $4, updated_at = $5
		WHERE id = $6
	`

	return execOne(ctx, t.tx, query,
		nullString(a.ServiceRequestID),
		a.Status,
		a.VerificationStatus,
		a.EndDate,
		a.UpdatedAt,
		a.ID,
	)
}

func (t *ledgerTx) DeleteAssignment(ctx context.Context, id string) error {
	return execOne(ctx, t.tx, `DELETE FROM service_assignments WHERE id = $1`, id)
}

func (t *ledgerTx) UpdateStudent(ctx context.Context, s *models.Student) error {
	query := `
		UPDATE students
		SET student_id = $1, name = $2, email = $3, program = $4, year = $5,
			total_hours = $6, remaining_hours = $7, status = $8, updated_at = $9
		WHERE id = $10
	`

	return execOne(ctx, t.tx, query,
		s.StudentID,
		s.Name,
		s.Email,
		s.Program,
		s.Year,
		s.TotalHours,
		s.RemainingHours,
		s.Status,
		s.UpdatedAt,
		s.ID,
	)
}

func (t *ledgerTx) DeleteStudent(ctx context.Context, id string) error {
	return execOne(ctx, t.tx, `DELETE FROM students WHERE id = $1`, id)
}

func (t *ledgerTx) UpdateRequest(ctx context.Context, r *models.ServiceRequest) error {
	query := `
		UPDATE service_requests
		SET remaining_hours = $1, status = $2, updated_at = $3
		WHERE id = $4
	`

	return execOne(ctx, t.tx, query, r.RemainingHours, r.Status, r.UpdatedAt, r.ID)
}

func (t *ledgerTx) DeleteRequest(ctx context.Context, id string) error {
	return execOne(ctx, t.tx, `DELETE FROM service_requests WHERE id = $1`, id)
}

// execOne runs a statement that must touch exactly one row.
func execOne(ctx context.Context, q queryer, query string, args ...interface{}) error {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected != 1 {
		return apperrors.Inconsistent("expected one row to change, %d changed", affected)
	}
	return nil
}

// assignmentWhere builds the WHERE clause for an assignment filter.
func assignmentWhere(filter models.AssignmentFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.RequestID != "" {
		args = append(args, filter.RequestID)
		conditions = append(conditions, fmt.Sprintf("service_request_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(filter.Statuses))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	return whereClause(conditions), args
}

func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	clause := "WHERE " + conditions[0]
	for _, c := range conditions[1:] {
		clause += " AND " + c
	}
	return clause
}
