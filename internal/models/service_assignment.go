package models

import (
	"time"
)

type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusCancelled  AssignmentStatus = "cancelled"
)

func (s AssignmentStatus) String() string {
	return string(s)
}

// Active reports whether the assignment still holds a claim on a balance.
func (s AssignmentStatus) Active() bool {
	return s == AssignmentStatusPending || s == AssignmentStatusInProgress
}

func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentStatusCompleted || s == AssignmentStatusCancelled
}

func IsValidAssignmentStatus(status string) bool {
	switch AssignmentStatus(status) {
	case AssignmentStatusPending, AssignmentStatusInProgress, AssignmentStatusCompleted, AssignmentStatusCancelled:
		return true
	default:
		return false
	}
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

type ServiceAssignment struct {
	ID                 string             `json:"id" db:"id"`
	StudentID          string             `json:"student_id" db:"student_id"`
	ServiceRequestID   *string            `json:"service_request_id,omitempty" db:"service_request_id"`
	Hours              float64            `json:"hours" db:"hours"`
	Status             AssignmentStatus   `json:"status" db:"status"`
	VerificationStatus VerificationStatus `json:"verification_status" db:"verification_status"`
	ServiceType        string             `json:"service_type" db:"service_type"`
	Description        string             `json:"description" db:"description"`
	Location           string             `json:"location" db:"location"`
	Supervisor         string             `json:"supervisor" db:"supervisor"`
	SupervisorEmail    string             `json:"supervisor_email" db:"supervisor_email"`
	StartDate          time.Time          `json:"start_date" db:"start_date"`
	EndDate            *time.Time         `json:"end_date,omitempty" db:"end_date"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

// RequestID returns the linked request id or "" when unlinked.
func (a *ServiceAssignment) RequestID() string {
	if a.ServiceRequestID == nil {
		return ""
	}
	return *a.ServiceRequestID
}

type AssignmentFilter struct {
	StudentID string
	RequestID string
	Statuses  []string
	Limit     int
	Offset    int
}
