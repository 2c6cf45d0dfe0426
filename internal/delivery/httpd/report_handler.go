package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.reportService.GetOverview(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, overview)
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", 0)

	progress, err := h.reportService.GetProgress(r.Context(), page, limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"students": progress,
		"page":     page,
	})
}

func (h *Handler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.reportService.CreateSnapshot(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeCreated(w, snapshot)
}

func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	names, err := h.reportService.ListSnapshots(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"snapshots": names,
		"total":     len(names),
	})
}

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.reportService.GetSnapshot(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, snapshot)
}
