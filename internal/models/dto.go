package models

// Data Transfer Objects

const DateLayout = "2006-01-02"

type CreateStudentRequest struct {
	StudentID  string  `json:"student_id" validate:"required,max=50"`
	Name       string  `json:"name" validate:"required,min=2,max=255"`
	Email      string  `json:"email" validate:"required,email,max=255"`
	Program    string  `json:"program" validate:"max=255"`
	Year       int     `json:"year" validate:"gte=0,lte=12"`
	TotalHours float64 `json:"total_hours" validate:"gte=0"`
	Status     string  `json:"status" validate:"omitempty,oneof=active inactive pending completed"`
}

// UpdateStudentRequest replaces every editable field, so total_hours must be
// sent even when it does not change.
type UpdateStudentRequest struct {
	StudentID  string   `json:"student_id" validate:"required,max=50"`
	Name       string   `json:"name" validate:"required,min=2,max=255"`
	Email      string   `json:"email" validate:"required,email,max=255"`
	Program    string   `json:"program" validate:"max=255"`
	Year       int      `json:"year" validate:"gte=0,lte=12"`
	TotalHours *float64 `json:"total_hours" validate:"required,gte=0"`
	Status     string   `json:"status" validate:"required,oneof=active inactive pending completed"`
}

type CreateServiceRequestRequest struct {
	ServiceType     string  `json:"service_type" validate:"required,max=255"`
	Description     string  `json:"description" validate:"max=2000"`
	Location        string  `json:"location" validate:"required,max=255"`
	SupervisorName  string  `json:"supervisor_name" validate:"required,max=255"`
	SupervisorEmail string  `json:"supervisor_email" validate:"required,email,max=255"`
	TotalHours      float64 `json:"total_hours" validate:"gt=0"`
	StartDate       string  `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate         string  `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type UpdateRequestStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

type CommitAssignmentRequest struct {
	StudentID        string  `json:"student_id" validate:"required,uuid"`
	ServiceRequestID string  `json:"service_request_id" validate:"omitempty,uuid"`
	Hours            float64 `json:"hours" validate:"gt=0"`
	StartDate        string  `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	ServiceType      string  `json:"service_type" validate:"max=255"`
	Description      string  `json:"description" validate:"max=2000"`
	Location         string  `json:"location" validate:"max=255"`
	Supervisor       string  `json:"supervisor" validate:"max=255"`
}

type UpdateAssignmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=in_progress completed cancelled"`
}

type StudentsResponse struct {
	Students []Student `json:"students"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
}

type RequestsResponse struct {
	Requests []ServiceRequest `json:"requests"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
}

type AssignmentsResponse struct {
	Assignments []ServiceAssignment `json:"assignments"`
	Total       int                 `json:"total"`
	Page        int                 `json:"page"`
	Limit       int                 `json:"limit"`
}
