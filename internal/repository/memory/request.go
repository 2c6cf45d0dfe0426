package memory

import (
	"context"
	"sort"
	"time"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/apperrors"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/repository"
)

type requestRepository struct {
	db *DB
}

func NewRequestRepository(db *DB) repository.RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(_ context.Context, request *models.ServiceRequest) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.state.requests[request.ID]; ok {
		return apperrors.Conflict("id", "service request %s already exists", request.ID)
	}
	r.db.state.requests[request.ID] = *request
	return nil
}

func (r *requestRepository) GetByID(_ context.Context, id string) (*models.ServiceRequest, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	req, ok := r.db.state.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (r *requestRepository) GetAll(_ context.Context, filter models.RequestFilter) ([]models.ServiceRequest, int, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	var requests []models.ServiceRequest
	for _, req := range r.db.state.requests {
		if filter.Status != "" && req.Status.String() != filter.Status {
			continue
		}
		requests = append(requests, req)
	}
	sort.Slice(requests, func(i, j int) bool {
		if requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].ID < requests[j].ID
		}
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})

	return page(requests, filter.Limit, filter.Offset), len(requests), nil
}

func (r *requestRepository) UpdateStatus(_ context.Context, id string, from, to models.RequestStatus, at time.Time) (bool, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	req, ok := r.db.state.requests[id]
	if !ok || req.Status != from {
		return false, nil
	}
	req.Status = to
	req.UpdatedAt = at
	r.db.state.requests[id] = req
	return true, nil
}

func (r *requestRepository) CountByStatus(_ context.Context, status string) (int, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	count := 0
	for _, req := range r.db.state.requests {
		if status == "" || req.Status.String() == status {
			count++
		}
	}
	return count, nil
}
