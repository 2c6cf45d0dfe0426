package ledger

import (
	"math"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

// HoursEpsilon absorbs float drift from repeated +/- of fractional hours.
const HoursEpsilon = 0.001

// DeriveStatus computes a student's status from the balance and the number
// of the student's non-terminal assignments. Completed is sticky; the only
// automatic move is to completed, once nothing is left to do.
func DeriveStatus(current models.StudentStatus, remainingHours float64, activeAssignments int) models.StudentStatus {
	if current == models.StudentStatusCompleted {
		return current
	}
	if remainingHours < HoursEpsilon && activeAssignments == 0 {
		return models.StudentStatusCompleted
	}
	return current
}

// settle snaps values within HoursEpsilon of zero to zero.
func settle(hours float64) float64 {
	if math.Abs(hours) < HoursEpsilon {
		return 0
	}
	return hours
}

func exceeds(amount, limit float64) bool {
	return amount-limit > HoursEpsilon
}
