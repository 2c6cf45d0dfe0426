package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name      string
		current   models.StudentStatus
		remaining float64
		active    int
		want      models.StudentStatus
	}{
		{"completed is sticky", models.StudentStatusCompleted, 5, 2, models.StudentStatusCompleted},
		{"no hours left, nothing open", models.StudentStatusActive, 0, 0, models.StudentStatusCompleted},
		{"drift below epsilon counts as zero", models.StudentStatusActive, 0.0004, 0, models.StudentStatusCompleted},
		{"no hours left, assignment open", models.StudentStatusActive, 0, 1, models.StudentStatusActive},
		{"hours left", models.StudentStatusActive, 2, 0, models.StudentStatusActive},
		{"inactive keeps status while hours remain", models.StudentStatusInactive, 3, 0, models.StudentStatusInactive},
		{"pending completes once done", models.StudentStatusPending, 0, 0, models.StudentStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.current, tt.remaining, tt.active))
		})
	}
}

func TestExceeds(t *testing.T) {
	assert.False(t, exceeds(10, 10))
	assert.False(t, exceeds(10.0005, 10))
	assert.True(t, exceeds(10.01, 10))
	assert.False(t, exceeds(3, 10))
}

func TestClampLow(t *testing.T) {
	assert.Equal(t, 0.0, clampLow(-0.0004))
	assert.Equal(t, 0.0, clampLow(-5))
	assert.Equal(t, 0.0, clampLow(0.0002))
	assert.Equal(t, 1.5, clampLow(1.5))
}
