package models

import (
	"math"
	"time"
)

type Overview struct {
	TotalStudents     int       `json:"total_students"`
	ActiveStudents    int       `json:"active_students"`
	CompletedStudents int       `json:"completed_students"`
	PendingRequests   int       `json:"pending_requests"`
	ApprovedRequests  int       `json:"approved_requests"`
	RejectedRequests  int       `json:"rejected_requests"`
	ActiveAssignments int       `json:"active_assignments"`
	HoursCommitted    float64   `json:"hours_committed"`
	HoursCompleted    float64   `json:"hours_completed"`
	GeneratedAt       time.Time `json:"generated_at"`
}

type StudentProgress struct {
	ID                 string  `json:"id"`
	StudentID          string  `json:"student_id"`
	Name               string  `json:"name"`
	AssignedHours      float64 `json:"assigned_hours"`
	CompletedHours     float64 `json:"completed_hours"`
	RemainingHours     float64 `json:"remaining_hours"`
	ProgressPercentage float64 `json:"progress_percentage"`
	Assignments        int     `json:"assignments"`
}

type ReportSnapshot struct {
	Key      string            `json:"key"`
	Overview Overview          `json:"overview"`
	Progress []StudentProgress `json:"progress"`
}

// Discrepancy describes a balance that does not match its assignments.
type Discrepancy struct {
	Subject         string  `json:"subject"`
	ID              string  `json:"id"`
	TotalHours      float64 `json:"total_hours"`
	RemainingHours  float64 `json:"remaining_hours"`
	CommittedHours  float64 `json:"committed_hours"`
	ExpectedBalance float64 `json:"expected_remaining_hours"`
	Reason          string  `json:"reason"`
}

type LedgerCheck struct {
	Consistent  bool         `json:"consistent"`
	Discrepancy *Discrepancy `json:"discrepancy,omitempty"`
}

// ProgressPercentage is completed over allotted hours, capped at 100.
func ProgressPercentage(completed, total float64) float64 {
	if total <= 0 {
		return 0
	}
	p := completed / total * 100
	if p > 100 {
		return 100
	}
	return math.Round(p*100) / 100
}
