package ledger

import (
	"context"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

// Store runs fn as one atomic unit. Implementations may call fn more than
// once when the unit has to be retried, so fn must not keep state across
// calls. Returning an error from fn rolls the unit back.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the view of the store inside one unit. Lock* methods return the
// row and hold it until the unit ends; they return (nil, nil) when the row
// does not exist.
//
// Callers lock rows in the order request, assignment, student.
type Tx interface {
	LockRequest(ctx context.Context, id string) (*models.ServiceRequest, error)
	LockStudent(ctx context.Context, id string) (*models.Student, error)
	LockAssignment(ctx context.Context, id string) (*models.ServiceAssignment, error)
	LockAssignments(ctx context.Context, filter models.AssignmentFilter) ([]models.ServiceAssignment, error)
	GetAssignment(ctx context.Context, id string) (*models.ServiceAssignment, error)
	CountActiveAssignments(ctx context.Context, studentID string) (int, error)

	InsertAssignment(ctx context.Context, assignment *models.ServiceAssignment) error
	UpdateAssignment(ctx context.Context, assignment *models.ServiceAssignment) error
	DeleteAssignment(ctx context.Context, id string) error
	UpdateStudent(ctx context.Context, student *models.Student) error
	DeleteStudent(ctx context.Context, id string) error
	UpdateRequest(ctx context.Context, request *models.ServiceRequest) error
	DeleteRequest(ctx context.Context, id string) error
}
