package ledger

import (
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/apperrors"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

var transitions = map[models.AssignmentStatus][]models.AssignmentStatus{
	models.AssignmentStatusPending: {
		models.AssignmentStatusInProgress,
		models.AssignmentStatusCompleted,
		models.AssignmentStatusCancelled,
	},
	models.AssignmentStatusInProgress: {
		models.AssignmentStatusCompleted,
		models.AssignmentStatusCancelled,
	},
}

// CanTransition reports whether an assignment may move from one status to
// another. Terminal statuses have no outgoing edges.
func CanTransition(from, to models.AssignmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(assignment *models.ServiceAssignment, to models.AssignmentStatus) error {
	if !CanTransition(assignment.Status, to) {
		return apperrors.InvalidTransition("assignment "+assignment.ID, assignment.Status.String(), to.String())
	}
	return nil
}
