package models

type EventType string

const (
	EventAssignmentCommitted EventType = "assignment.committed"
	EventAssignmentStarted   EventType = "assignment.started"
	EventAssignmentCompleted EventType = "assignment.completed"
	EventAssignmentCancelled EventType = "assignment.cancelled"
	EventRequestDeleted      EventType = "request.deleted"
	EventStudentRemoved      EventType = "student.removed"
	EventStudentCompleted    EventType = "student.completed"
)

// LedgerEvent is published after a ledger transaction commits.
type LedgerEvent struct {
	ID                    string    `json:"id"`
	Type                  EventType `json:"type"`
	StudentID             string    `json:"student_id,omitempty"`
	ServiceRequestID      string    `json:"service_request_id,omitempty"`
	AssignmentID          string    `json:"assignment_id,omitempty"`
	Hours                 float64   `json:"hours,omitempty"`
	StudentRemainingHours *float64  `json:"student_remaining_hours,omitempty"`
	RequestRemainingHours *float64  `json:"request_remaining_hours,omitempty"`
	Timestamp             int64     `json:"timestamp"`
}
