package models

import (
	"time"
)

type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "active"
	StudentStatusInactive  StudentStatus = "inactive"
	StudentStatusPending   StudentStatus = "pending"
	StudentStatusCompleted StudentStatus = "completed"
)

func (s StudentStatus) String() string {
	return string(s)
}

func IsValidStudentStatus(status string) bool {
	switch StudentStatus(status) {
	case StudentStatusActive, StudentStatusInactive, StudentStatusPending, StudentStatusCompleted:
		return true
	default:
		return false
	}
}

type Student struct {
	ID             string        `json:"id" db:"id"`
	StudentID      string        `json:"student_id" db:"student_id"`
	Name           string        `json:"name" db:"name"`
	Email          string        `json:"email" db:"email"`
	Program        string        `json:"program" db:"program"`
	Year           int           `json:"year" db:"year"`
	TotalHours     float64       `json:"total_hours" db:"total_hours"`
	RemainingHours float64       `json:"remaining_hours" db:"remaining_hours"`
	Status         StudentStatus `json:"status" db:"status"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// CommittedHours is the part of the allotment held by assignments.
func (s *Student) CommittedHours() float64 {
	return s.TotalHours - s.RemainingHours
}

type StudentFilter struct {
	Status string
	Search string
	Limit  int
	Offset int
}
