package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/apperrors"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.AssignmentStatus
		want     bool
	}{
		{models.AssignmentStatusPending, models.AssignmentStatusInProgress, true},
		{models.AssignmentStatusPending, models.AssignmentStatusCompleted, true},
		{models.AssignmentStatusPending, models.AssignmentStatusCancelled, true},
		{models.AssignmentStatusInProgress, models.AssignmentStatusCompleted, true},
		{models.AssignmentStatusInProgress, models.AssignmentStatusCancelled, true},
		{models.AssignmentStatusInProgress, models.AssignmentStatusPending, false},
		{models.AssignmentStatusInProgress, models.AssignmentStatusInProgress, false},
		{models.AssignmentStatusPending, models.AssignmentStatusPending, false},
		{models.AssignmentStatusCompleted, models.AssignmentStatusCancelled, false},
		{models.AssignmentStatusCompleted, models.AssignmentStatusCompleted, false},
		{models.AssignmentStatusCancelled, models.AssignmentStatusPending, false},
		{models.AssignmentStatusCancelled, models.AssignmentStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestCheckTransition(t *testing.T) {
	a := &models.ServiceAssignment{ID: "a1", Status: models.AssignmentStatusCompleted}

	err := checkTransition(a, models.AssignmentStatusCancelled)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "completed")

	a.Status = models.AssignmentStatusPending
	assert.NoError(t, checkTransition(a, models.AssignmentStatusCancelled))
}
