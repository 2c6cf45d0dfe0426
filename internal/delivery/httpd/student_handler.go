package httpd

import (
	"net/http"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/ledger"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

type studentRemovalResponse struct {
	StudentID          string                  `json:"student_id"`
	AssignmentsDeleted int                     `json:"assignments_deleted"`
	HoursReleased      float64                 `json:"hours_released"`
	Requests           []models.ServiceRequest `json:"requests"`
}

func newStudentRemovalResponse(id string, removal *ledger.StudentRemoval) studentRemovalResponse {
	resp := studentRemovalResponse{
		StudentID:          id,
		AssignmentsDeleted: removal.Deleted,
		Requests:           removal.Requests,
	}
	for _, a := range removal.Released {
		resp.HoursReleased += a.Hours
	}
	if resp.Requests == nil {
		resp.Requests = []models.ServiceRequest{}
	}
	return resp
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStudentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	student, err := h.studentService.CreateStudent(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeCreated(w, student)
}

func (h *Handler) GetAllStudents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", 0)

	response, err := h.studentService.GetAllStudents(r.Context(), query.Get("status"), query.Get("search"), page, limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) GetStudentByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Student")
	if !ok {
		return
	}

	student, err := h.studentService.GetStudentByID(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, student)
}

func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Student")
	if !ok {
		return
	}

	var req models.UpdateStudentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	student, err := h.studentService.UpdateStudent(r.Context(), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, student)
}

func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Student")
	if !ok {
		return
	}

	removal, err := h.studentService.DeleteStudent(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, newStudentRemovalResponse(id, removal))
}

func (h *Handler) GetStudentAssignments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Student")
	if !ok {
		return
	}

	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", 0)

	response, err := h.studentService.GetStudentAssignments(r.Context(), id, page, limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) CheckStudentLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Student")
	if !ok {
		return
	}

	check, err := h.studentService.CheckStudentLedger(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, check)
}
