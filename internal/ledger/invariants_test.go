package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

func TestCheckStudent(t *testing.T) {
	requestID := "r1"
	assignments := []models.ServiceAssignment{
		{ID: "a1", StudentID: "s1", Hours: 4, Status: models.AssignmentStatusPending},
		{ID: "a2", StudentID: "s1", Hours: 3, Status: models.AssignmentStatusCompleted, ServiceRequestID: &requestID},
		{ID: "a3", StudentID: "s1", Hours: 2, Status: models.AssignmentStatusCancelled},
		{ID: "a4", StudentID: "s2", Hours: 9, Status: models.AssignmentStatusPending},
	}

	tests := []struct {
		name      string
		remaining float64
		reason    string
	}{
		{"balanced", 3, ""},
		{"balanced within epsilon", 3.0004, ""},
		{"mismatch", 5, "remaining hours do not match committed assignments"},
		{"negative", -1, "remaining hours are negative"},
		{"above allotment", 11, "remaining hours exceed the allotment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			student := &models.Student{ID: "s1", TotalHours: 10, RemainingHours: tt.remaining}
			d := CheckStudent(student, assignments)
			if tt.reason == "" {
				assert.Nil(t, d)
				return
			}
			require.NotNil(t, d)
			assert.Equal(t, tt.reason, d.Reason)
			assert.Equal(t, 7.0, d.CommittedHours)
			assert.Equal(t, 3.0, d.ExpectedBalance)
		})
	}
}

func TestCheckRequest(t *testing.T) {
	r1, r2 := "r1", "r2"
	assignments := []models.ServiceAssignment{
		{ID: "a1", StudentID: "s1", Hours: 5, Status: models.AssignmentStatusInProgress, ServiceRequestID: &r1},
		{ID: "a2", StudentID: "s2", Hours: 2, Status: models.AssignmentStatusCancelled, ServiceRequestID: &r1},
		{ID: "a3", StudentID: "s2", Hours: 1, Status: models.AssignmentStatusPending, ServiceRequestID: &r2},
		{ID: "a4", StudentID: "s3", Hours: 8, Status: models.AssignmentStatusPending},
	}

	request := &models.ServiceRequest{ID: "r1", TotalHours: 20, RemainingHours: 15}
	assert.Nil(t, CheckRequest(request, assignments))

	request.RemainingHours = 17
	d := CheckRequest(request, assignments)
	require.NotNil(t, d)
	assert.Equal(t, "service_request", d.Subject)
	assert.Equal(t, 15.0, d.ExpectedBalance)
}
