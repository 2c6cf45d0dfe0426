package ledger

import (
	"context"
	"math"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/apperrors"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

// CheckStudent verifies remaining + committed == total for a student, where
// committed counts every assignment that was not cancelled. Completed
// assignments keep their hours, so they stay in the sum.
func CheckStudent(student *models.Student, assignments []models.ServiceAssignment) *models.Discrepancy {
	var committed float64
	for _, a := range assignments {
		if a.StudentID == student.ID && a.Status != models.AssignmentStatusCancelled {
			committed += a.Hours
		}
	}
	return check("student", student.ID, student.TotalHours, student.RemainingHours, committed)
}

// CheckRequest verifies remaining + committed == total for a service
// request over its linked, non-cancelled assignments.
func CheckRequest(request *models.ServiceRequest, assignments []models.ServiceAssignment) *models.Discrepancy {
	var committed float64
	for _, a := range assignments {
		if a.RequestID() == request.ID && a.Status != models.AssignmentStatusCancelled {
			committed += a.Hours
		}
	}
	return check("service_request", request.ID, request.TotalHours, request.RemainingHours, committed)
}

func check(subject, id string, total, remaining, committed float64) *models.Discrepancy {
	d := &models.Discrepancy{
		Subject:         subject,
		ID:              id,
		TotalHours:      total,
		RemainingHours:  remaining,
		CommittedHours:  committed,
		ExpectedBalance: total - committed,
	}
	switch {
	case remaining < -HoursEpsilon:
		d.Reason = "remaining hours are negative"
	case exceeds(remaining, total):
		d.Reason = "remaining hours exceed the allotment"
	case math.Abs(remaining-(total-committed)) > HoursEpsilon:
		d.Reason = "remaining hours do not match committed assignments"
	default:
		return nil
	}
	return d
}

// AuditStudent checks a student's balance against its assignments as read
// inside one unit.
func (l *Ledger) AuditStudent(ctx context.Context, studentID string) (*models.LedgerCheck, error) {
	var out *models.LedgerCheck
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

		out = newCheck(CheckStudent(student, assignments))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !out.Consistent {
		l.logger.Warn().
			Str("student_id", studentID).
			Str("reason", out.Discrepancy.Reason).
			Float64("remaining_hours", out.Discrepancy.RemainingHours).
			Float64("expected_remaining_hours", out.Discrepancy.ExpectedBalance).
			Msg("Student balance needs reconciliation")
	}
	return out, nil
}

// AuditRequest checks a service request's balance against its linked
// assignments as read inside one unit.
func (l *Ledger) AuditRequest(ctx context.Context, requestID string) (*models.LedgerCheck, error) {
	var out *models.LedgerCheck
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

		out = newCheck(CheckRequest(request, assignments))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !out.Consistent {
		l.logger.Warn().
			Str("service_request_id", requestID).
			Str("reason", out.Discrepancy.Reason).
			Msg("Service request balance needs reconciliation")
	}
	return out, nil
}

func newCheck(d *models.Discrepancy) *models.LedgerCheck {
	return &models.LedgerCheck{Consistent: d == nil, Discrepancy: d}
}
