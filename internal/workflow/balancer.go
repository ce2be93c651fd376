package workflow

import (
	"sort"
	"time"

	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
	apperrors "github.com/yakubjanov004/telecom-support-engine/pkg/util"
)

// Candidate pairs a staff member with their current active workload.
type Candidate struct {
	Staff      domain.StaffMember
	ActiveLoad int
}

// SelectTechnician picks the best assignee among candidates: fewest active
// (non-terminal) requests first, then earliest last-assignment timestamp for
// round-robin fairness, then lowest row sequence for determinism. Inactive
// members are skipped. Returns NO_AVAILABLE_AGENT when nothing is eligible.
func SelectTechnician(candidates []Candidate) (*domain.StaffMember, error) {
	eligible := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Staff.Active {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil, apperrors.NewNoAvailableAgent("no eligible agent", nil)
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.ActiveLoad != b.ActiveLoad {
			return a.ActiveLoad < b.ActiveLoad
		}
		at, bt := lastAssigned(a.Staff), lastAssigned(b.Staff)
		if !at.Equal(bt) {
			return at.Before(bt)
		}
		return a.Staff.Seq < b.Staff.Seq
	})

	winner := eligible[0].Staff
	return &winner, nil
}

func lastAssigned(staff domain.StaffMember) time.Time {
	if staff.LastAssignedAt != nil {
		return *staff.LastAssignedAt
	}
	// never assigned sorts first
	return time.Time{}
}
