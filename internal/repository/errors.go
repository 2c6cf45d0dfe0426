package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/apperrors"
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// mapError turns unique violations into conflicts naming the column; other
// errors are returned unchanged for the caller to classify.
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != codeUniqueViolation {
		return err
	}

	switch {
	case strings.Contains(pqErr.Constraint, "email"):
		return apperrors.Conflict("email", "a student with this email already exists")
	case strings.Contains(pqErr.Constraint, "student_id"):
		return apperrors.Conflict("student_id", "a student with this student ID already exists")
	default:
		return apperrors.Conflict("record", "duplicate value violates %s", pqErr.Constraint)
	}
}

// isRetryable reports whether a transaction failed only because it lost a
// race with another one and can be re-run from the start.
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == codeSerializationFailure || pqErr.Code == codeDeadlockDetected
}
