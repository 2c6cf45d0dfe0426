package httpd

import (
	"context"
	"net/http"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

func (h *Handler) CommitAssignment(w http.ResponseWriter, r *http.Request) {
	var req models.CommitAssignmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	assignment, err := h.assignmentService.CommitAssignment(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeCreated(w, assignment)
}

func (h *Handler) GetAllAssignments(w http.ResponseWriter, r *http.Request) {
	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", 0)

	response, err := h.assignmentService.GetAllAssignments(r.Context(), getListQueryParam(r, "status"), page, limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) GetAssignmentByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Assignment")
	if !ok {
		return
	}

	assignment, err := h.assignmentService.GetAssignmentByID(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, assignment)
}

func (h *Handler) StartAssignment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.assignmentService.StartAssignment)
}

func (h *Handler) CompleteAssignment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.assignmentService.CompleteAssignment)
}

func (h *Handler) CancelAssignment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.assignmentService.CancelAssignment)
}

func (h *Handler) UpdateAssignmentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Assignment")
	if !ok {
		return
	}

	var req models.UpdateAssignmentStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	assignment, err := h.assignmentService.UpdateAssignmentStatus(r.Context(), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, assignment)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (*models.ServiceAssignment, error)) {
	id, ok := pathID(w, r, "Assignment")
	if !ok {
		return
	}

	assignment, err := fn(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, assignment)
}
