package httpd

import (
	"net/http"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/ledger"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

type requestRemovalResponse struct {
	ServiceRequestID    string   `json:"service_request_id"`
	AssignmentsReleased int      `json:"assignments_released"`
	AssignmentsDetached int      `json:"assignments_detached"`
	AssignmentsDeleted  int      `json:"assignments_deleted"`
	HoursReleased       float64  `json:"hours_released"`
	CompletedStudents   []string `json:"completed_students"`
}

func newRequestRemovalResponse(id string, removal *ledger.RequestRemoval) requestRemovalResponse {
	resp := requestRemovalResponse{
		ServiceRequestID:    id,
		AssignmentsReleased: len(removal.Released),
		AssignmentsDetached: len(removal.Detached),
		AssignmentsDeleted:  removal.Deleted,
		CompletedStudents:   removal.CompletedStudents,
	}
	for _, a := range removal.Released {
		resp.HoursReleased += a.Hours
	}
	if resp.CompletedStudents == nil {
		resp.CompletedStudents = []string{}
	}
	return resp
}

func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req models.CreateServiceRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	request, err := h.requestService.SubmitRequest(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeCreated(w, request)
}

func (h *Handler) GetAllRequests(w http.ResponseWriter, r *http.Request) {
	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", 0)

	response, err := h.requestService.GetAllRequests(r.Context(), r.URL.Query().Get("status"), page, limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) GetRequestByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Service request")
	if !ok {
		return
	}

	request, err := h.requestService.GetRequestByID(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, request)
}

func (h *Handler) UpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Service request")
	if !ok {
		return
	}

	var req models.UpdateRequestStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	request, err := h.requestService.UpdateRequestStatus(r.Context(), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, request)
}

func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Service request")
	if !ok {
		return
	}

	removal, err := h.requestService.DeleteRequest(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, newRequestRemovalResponse(id, removal))
}

func (h *Handler) GetRequestAssignments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Service request")
	if !ok {
		return
	}

	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", 0)

	response, err := h.requestService.GetRequestAssignments(r.Context(), id, page, limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) CheckRequestLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Service request")
	if !ok {
		return
	}

	check, err := h.requestService.CheckRequestLedger(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, check)
}
