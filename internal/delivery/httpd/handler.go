package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/apperrors"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/service"
)

const serviceName = "community-service-tracker"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	studentService    service.StudentService
	requestService    service.RequestService
	assignmentService service.AssignmentService
	reportService     service.ReportService
	store             Pinger
	logger            zerolog.Logger
}

func NewHandler(
	studentService service.StudentService,
	requestService service.RequestService,
	assignmentService service.AssignmentService,
	reportService service.ReportService,
	store Pinger,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		studentService:    studentService,
		requestService:    requestService,
		assignmentService: assignmentService,
		reportService:     reportService,
		store:             store,
		logger:            logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/students", func(r chi.Router) {
			r.Post("/", h.CreateStudent)
			r.Get("/", h.GetAllStudents)
			r.Get("/{id}", h.GetStudentByID)
			r.Put("/{id}", h.UpdateStudent)
			r.Delete("/{id}", h.DeleteStudent)
			r.Get("/{id}/assignments", h.GetStudentAssignments)
			r.Get("/{id}/ledger", h.CheckStudentLedger)
		})

		api.Route("/requests", func(r chi.Router) {
			r.Post("/", h.SubmitRequest)
			r.Get("/", h.GetAllRequests)
			r.Get("/{id}", h.GetRequestByID)
			r.Put("/{id}/status", h.UpdateRequestStatus)
			r.Delete("/{id}", h.DeleteRequest)
			r.Get("/{id}/assignments", h.GetRequestAssignments)
			r.Get("/{id}/ledger", h.CheckRequestLedger)
		})

		api.Route("/assignments", func(r chi.Router) {
			r.Post("/", h.CommitAssignment)
			r.Get("/", h.GetAllAssignments)
			r.Get("/{id}", h.GetAssignmentByID)
			r.Post("/{id}/start", h.StartAssignment)
			r.Post("/{id}/complete", h.CompleteAssignment)
			r.Post("/{id}/cancel", h.CancelAssignment)
			r.Put("/{id}/status", h.UpdateAssignmentStatus)
		})

		api.Route("/reports", func(r chi.Router) {
			r.Get("/overview", h.GetOverview)
			r.Get("/progress", h.GetProgress)
			r.Post("/snapshots", h.CreateSnapshot)
			r.Get("/snapshots", h.ListSnapshots)
			r.Get("/snapshots/{name}", h.GetSnapshot)
		})
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := map[string]interface{}{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC(),
	}

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error().Err(err).Msg("Health check failed")
		response["status"] = "unhealthy"
		response["error"] = "store unreachable"
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// pathID returns the {id} URL parameter, rejecting anything but a UUID.
func pathID(w http.ResponseWriter, r *http.Request, resource string) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, resource+" ID is required", "id")
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+strings.ToLower(resource)+" ID", "id")
		return "", false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		msg := "Invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		writeError(w, http.StatusBadRequest, msg, "body")
		return false
	}
	return true
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// getListQueryParam accepts both ?status=a,b and ?status=a&status=b.
func getListQueryParam(r *http.Request, key string) []string {
	var values []string
	for _, raw := range r.URL.Query()[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}

// handleServiceError maps classified errors onto HTTP statuses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidTransition), errors.Is(err, apperrors.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrInconsistent):
		h.log(r).Error().Err(err).Msg("Ledger inconsistency detected")
	case errors.Is(err, apperrors.ErrStore):
		h.log(r).Error().Err(err).Msg("Store failure")
		status = http.StatusServiceUnavailable
		message = "storage temporarily unavailable, retry the request"
		w.Header().Set("Retry-After", "1")
	default:
		h.log(r).Error().Err(err).Msg("Unhandled service error")
		message = "Internal server error"
	}

	writeJSON(w, status, errorBody(status, message, apperrors.FieldOf(err), apperrors.CodeOf(err)))
}

// log prefers the request-scoped logger set by the logging middleware.
func (h *Handler) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &h.logger
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message, field string) {
	writeJSON(w, status, errorBody(status, message, field, ""))
}

func errorBody(status int, message, field, code string) map[string]interface{} {
	body := map[string]interface{}{
		"success": false,
		"error":   http.StatusText(status),
		"message": message,
	}
	if field != "" {
		body["field"] = field
	}
	if code != "" {
		body["code"] = code
	}
	return body
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeData(w, http.StatusOK, data)
}

func writeCreated(w http.ResponseWriter, data interface{}) {
	writeData(w, http.StatusCreated, data)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}
