package repository

import (
	"database/sql"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

const (
	studentColumns = `id, student_id, name, email, program, year, total_hours, remaining_hours, status, created_at, updated_at`

	requestColumns = `id, service_type, description, location, supervisor_name, supervisor_email,
		total_hours, remaining_hours, status, start_date, end_date, created_at, updated_at`

	assignmentColumns = `id, student_id, service_request_id, hours, status, verification_status,
		service_type, description, location, supervisor, supervisor_email,
		start_date, end_date, created_at, updated_at`
)

var activeStatuses = []string{
	models.AssignmentStatusPending.String(),
	models.AssignmentStatusInProgress.String(),
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStudent(row scanner) (*models.Student, error) {
	student := &models.Student{}
	err := row.Scan(
		&student.ID,
		&student.StudentID,
		&student.Name,
		&student.Email,
		&student.Program,
		&student.Year,
		&student.TotalHours,
		&student.RemainingHours,
		&student.Status,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return student, nil
}

func scanRequest(row scanner) (*models.ServiceRequest, error) {
	request := &models.ServiceRequest{}
	err := row.Scan(
		&request.ID,
		&request.ServiceType,
		&request.Description,
		&request.Location,
		&request.SupervisorName,
		&request.SupervisorEmail,
		&request.TotalHours,
		&request.RemainingHours,
		&request.Status,
		&request.StartDate,
		&request.EndDate,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return request, nil
}

func scanAssignment(row scanner) (*models.ServiceAssignment, error) {
	assignment := &models.ServiceAssignment{}
	var requestID sql.NullString
	var endDate sql.NullTime
	err := row.Scan(
		&assignment.ID,
		&assignment.StudentID,
		&requestID,
		&assignment.Hours,
		&assignment.Status,
		&assignment.VerificationStatus,
		&assignment.ServiceType,
		&assignment.Description,
		&assignment.Location,
		&assignment.Supervisor,
		&assignment.SupervisorEmail,
		&assignment.StartDate,
		&endDate,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if requestID.Valid {
		assignment.ServiceRequestID = &requestID.String
	}
	if endDate.Valid {
		assignment.EndDate = &endDate.Time
	}
	return assignment, nil
}

func collectAssignments(rows *sql.Rows) ([]models.ServiceAssignment, error) {
	defer rows.Close()

	var assignments []models.ServiceAssignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, *assignment)
	}
	return assignments, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// limitArg turns a non-positive limit into NULL, which PostgreSQL reads as
// LIMIT ALL.
func limitArg(limit int) interface{} {
	if limit <= 0 {
		return nil
	}
	return limit
}
