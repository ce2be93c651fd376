package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
)

func heldBy(role domain.Role, since time.Time, priority domain.RequestPriority) *domain.ServiceRequest {
	return &domain.ServiceRequest{
		Status:      domain.StatusInProgress,
		Priority:    priority,
		CurrentRole: role,
		RoleHistory: []domain.RoleEntry{{Role: role, EnteredAt: since}},
	}
}

func TestClassifyThresholdBoundaries(t *testing.T) {
	classifier := NewClassifier(nil)
	entered := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	// technician budget defaults to 90 minutes
	cases := []struct {
		held time.Duration
		want EscalationLevel
	}{
		{45 * time.Minute, EscalationNormal},
		{89 * time.Minute, EscalationNormal},
		{90 * time.Minute, EscalationWarning},
		{95 * time.Minute, EscalationWarning},
		{179 * time.Minute, EscalationWarning},
		{180 * time.Minute, EscalationUrgent},
		{6 * time.Hour, EscalationUrgent},
	}
	for _, tc := range cases {
		req := heldBy(domain.RoleTechnician, entered, domain.PriorityNormal)
		got := classifier.Classify(req, entered.Add(tc.held))
		assert.Equal(t, tc.want, got, "held %s", tc.held)
	}
}

func TestClassifyUrgentPriorityAlwaysUrgent(t *testing.T) {
	classifier := NewClassifier(nil)
	entered := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	req := heldBy(domain.RoleCallCenter, entered, domain.PriorityUrgent)
	assert.Equal(t, EscalationUrgent, classifier.Classify(req, entered.Add(time.Minute)))
}

func TestClassifyTerminalIsNormal(t *testing.T) {
	classifier := NewClassifier(nil)
	entered := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	req := heldBy(domain.RoleTechnician, entered, domain.PriorityUrgent)
	req.Status = domain.StatusCompleted
	assert.Equal(t, EscalationNormal, classifier.Classify(req, entered.Add(24*time.Hour)))
}

func TestClassifyNeverMutatesRequest(t *testing.T) {
	classifier := NewClassifier(nil)
	entered := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	req := heldBy(domain.RoleCallCenter, entered, domain.PriorityNormal)
	classifier.Classify(req, entered.Add(5*time.Hour))

	assert.Equal(t, domain.StatusInProgress, req.Status)
	assert.Equal(t, domain.PriorityNormal, req.Priority)
}

func TestClassifierOverridesMergeOverDefaults(t *testing.T) {
	classifier := NewClassifier(Thresholds{
		domain.RoleCallCenter: 10 * time.Minute,
	})
	entered := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	req := heldBy(domain.RoleCallCenter, entered, domain.PriorityNormal)
	assert.Equal(t, EscalationWarning, classifier.Classify(req, entered.Add(12*time.Minute)))

	// untouched roles keep stock budgets
	assert.Equal(t, 90*time.Minute, classifier.Threshold(domain.RoleTechnician))
}

func TestClassifyUnknownRoleIsNormal(t *testing.T) {
	classifier := NewClassifier(nil)
	entered := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	req := heldBy(domain.RoleClient, entered, domain.PriorityNormal)
	assert.Equal(t, EscalationNormal, classifier.Classify(req, entered.Add(48*time.Hour)))
}
