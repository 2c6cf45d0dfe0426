// Package memory is an in-process store with the same transactional
// contract as the PostgreSQL repositories. Units are serialized by a mutex
// and run against a copy of the state that replaces it only on success.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/apperrors"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/ledger"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

type DB struct {
	mutex sync.RWMutex
	state state
}

type state struct {
	students    map[string]models.Student
	requests    map[string]models.ServiceRequest
	assignments map[string]models.ServiceAssignment
}

func Open() *DB {
	return &DB{state: newState()}
}

func newState() state {
	return state{
		students:    make(map[string]models.Student),
		requests:    make(map[string]models.ServiceRequest),
		assignments: make(map[string]models.ServiceAssignment),
	}
}

func (s state) clone() state {
	cp := newState()
	for k, v := range s.students {
		cp.students[k] = v
	}
	for k, v := range s.requests {
		cp.requests[k] = v
	}
	for k, v := range s.assignments {
		cp.assignments[k] = cloneAssignment(v)
	}
	return cp
}

func cloneAssignment(a models.ServiceAssignment) models.ServiceAssignment {
	if a.ServiceRequestID != nil {
		id := *a.ServiceRequestID
		a.ServiceRequestID = &id
	}
	if a.EndDate != nil {
		end := *a.EndDate
		a.EndDate = &end
	}
	return a
}

func (db *DB) Ping(ctx context.Context) error {
	return ctx.Err()
}

// WithinTx runs fn with exclusive access to a working copy of the state.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Store("begin transaction", err)
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	work := db.state.clone()
	if err := fn(ctx, &memTx{state: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperrors.Store("commit transaction", err)
	}
	db.state = work
	return nil
}

// checkStudentUnique enforces the unique student_id and email columns.
func (s state) checkStudentUnique(student *models.Student) error {
	for id, other := range s.students {
		if id == student.ID {
			continue
		}
		if other.StudentID == student.StudentID {
			return apperrors.Conflict("student_id", "a student with this student ID already exists")
		}
		if strings.EqualFold(other.Email, student.Email) {
			return apperrors.Conflict("email", "a student with this email already exists")
		}
	}
	return nil
}

func matchesAssignment(a models.ServiceAssignment, filter models.AssignmentFilter) bool {
	if filter.StudentID != "" && a.StudentID != filter.StudentID {
		return false
	}
	if filter.RequestID != "" && a.RequestID() != filter.RequestID {
		return false
	}
	if len(filter.Statuses) > 0 && !contains(filter.Statuses, a.Status.String()) {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 || offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
