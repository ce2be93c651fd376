package workflow

import (
	"time"

	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
)

// Duration tracking is a pure computation over role history; no clock reads,
// no external calls. Callers pass now explicitly.

// EntryDuration returns the elapsed span of a single role history entry.
func EntryDuration(entry domain.RoleEntry, now time.Time) time.Duration {
	if entry.LeftAt != nil {
		return entry.LeftAt.Sub(entry.EnteredAt)
	}
	return now.Sub(entry.EnteredAt)
}

// DurationInCurrentRole returns how long the request has been held by its
// current role. Zero for terminal requests, which have no open entry.
func DurationInCurrentRole(req *domain.ServiceRequest, now time.Time) time.Duration {
	entry := req.OpenEntry()
	if entry == nil {
		return 0
	}
	return EntryDuration(*entry, now)
}

// TotalDuration sums every closed interval plus the open interval's elapsed
// time. For terminal requests this is the full closed span.
func TotalDuration(req *domain.ServiceRequest, now time.Time) time.Duration {
	var total time.Duration
	for _, entry := range req.RoleHistory {
		total += EntryDuration(entry, now)
	}
	return total
}

// StageDuration is one role-holding interval with its elapsed span.
type StageDuration struct {
	Role      domain.Role
	ActorID   *string
	EnteredAt time.Time
	LeftAt    *time.Time
	Elapsed   time.Duration
}

// StageDurations expands the role history into per-stage spans, in order.
func StageDurations(req *domain.ServiceRequest, now time.Time) []StageDuration {
	stages := make([]StageDuration, 0, len(req.RoleHistory))
	for _, entry := range req.RoleHistory {
		stages = append(stages, StageDuration{
			Role:      entry.Role,
			ActorID:   entry.ActorID,
			EnteredAt: entry.EnteredAt,
			LeftAt:    entry.LeftAt,
			Elapsed:   EntryDuration(entry, now),
		})
	}
	return stages
}
