package workflow

import (
	"time"

	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
)

// EscalationLevel is an advisory risk classification surfaced on dashboards
// and list views. It never mutates stored status or priority.
type EscalationLevel string

const (
	EscalationNormal  EscalationLevel = "NORMAL"
	EscalationWarning EscalationLevel = "WARNING"
	EscalationUrgent  EscalationLevel = "URGENT"
)

// Thresholds maps each role to its SLA budget for holding a request.
type Thresholds map[domain.Role]time.Duration

// DefaultThresholds returns the stock per-role SLA budgets.
func DefaultThresholds() Thresholds {
	return Thresholds{
		domain.RoleCallCenter:    30 * time.Minute,
		domain.RoleSupervisor:    30 * time.Minute,
		domain.RoleController:    45 * time.Minute,
		domain.RoleManager:       60 * time.Minute,
		domain.RoleJuniorManager: 60 * time.Minute,
		domain.RoleTechnician:    90 * time.Minute,
		domain.RoleWarehouse:     60 * time.Minute,
	}
}

// Classifier computes escalation levels from elapsed time in the current role.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier builds a classifier; missing roles fall back to defaults.
func NewClassifier(thresholds Thresholds) *Classifier {
	merged := DefaultThresholds()
	for role, d := range thresholds {
		if d > 0 {
			merged[role] = d
		}
	}
	return &Classifier{thresholds: merged}
}

// Classify returns the advisory level for a request at the given instant:
// warning at one threshold, urgent at twice the threshold or when the stored
// priority is already urgent. Terminal requests are never at risk.
func (c *Classifier) Classify(req *domain.ServiceRequest, now time.Time) EscalationLevel {
	if req.Terminal() {
		return EscalationNormal
	}
	if req.Priority == domain.PriorityUrgent {
		return EscalationUrgent
	}
	threshold, ok := c.thresholds[req.CurrentRole]
	if !ok || threshold <= 0 {
		return EscalationNormal
	}
	held := DurationInCurrentRole(req, now)
	switch {
	case held >= 2*threshold:
		return EscalationUrgent
	case held >= threshold:
		return EscalationWarning
	default:
		return EscalationNormal
	}
}

// Threshold exposes the effective budget for a role.
func (c *Classifier) Threshold(role domain.Role) time.Duration {
	return c.thresholds[role]
}
