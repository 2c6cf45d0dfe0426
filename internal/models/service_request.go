package models

import (
	"time"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

func (s RequestStatus) String() string {
	return string(s)
}

func IsValidRequestStatus(status string) bool {
	switch RequestStatus(status) {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	default:
		return false
	}
}

type ServiceRequest struct {
	ID              string        `json:"id" db:"id"`
	ServiceType     string        `json:"service_type" db:"service_type"`
	Description     string        `json:"description" db:"description"`
	Location        string        `json:"location" db:"location"`
	SupervisorName  string        `json:"supervisor_name" db:"supervisor_name"`
	SupervisorEmail string        `json:"supervisor_email" db:"supervisor_email"`
	TotalHours      float64       `json:"total_hours" db:"total_hours"`
	RemainingHours  float64       `json:"remaining_hours" db:"remaining_hours"`
	Status          RequestStatus `json:"status" db:"status"`
	StartDate       time.Time     `json:"start_date" db:"start_date"`
	EndDate         time.Time     `json:"end_date" db:"end_date"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

type RequestFilter struct {
	Status string
	Limit  int
	Offset int
}
