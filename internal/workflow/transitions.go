package workflow

import "github.com/yakubjanov004/telecom-support-engine/internal/domain"

// Action identifies a state-machine operation for transition lookup.
type Action string

const (
	ActionAssign   Action = "assign"
	ActionTransfer Action = "transfer"
)

type transitionKey struct {
	Role   domain.Role
	Status domain.RequestStatus
	Action Action
}

// allowedEdges is the single authoritative transition table shared by every
// role-facing caller. Key: (current role, status, action); value: legal
// target roles. Anything absent is an invalid transition.
var allowedEdges = buildEdges()

func buildEdges() map[transitionKey][]domain.Role {
	edges := map[transitionKey][]domain.Role{}

	assign := map[domain.Role][]domain.Role{
		domain.RoleClient:        {domain.RoleCallCenter},
		domain.RoleCallCenter:    {domain.RoleController, domain.RoleManager, domain.RoleJuniorManager},
		domain.RoleSupervisor:    {domain.RoleController, domain.RoleManager, domain.RoleJuniorManager, domain.RoleTechnician},
		domain.RoleController:    {domain.RoleManager, domain.RoleJuniorManager, domain.RoleTechnician},
		domain.RoleManager:       {domain.RoleTechnician},
		domain.RoleJuniorManager: {domain.RoleTechnician},
		// warehouse loops back to the requesting technician
		domain.RoleWarehouse: {domain.RoleTechnician},
	}

	// lateral moves among coordination roles
	lateral := []domain.Role{
		domain.RoleCallCenter,
		domain.RoleController,
		domain.RoleManager,
		domain.RoleJuniorManager,
		domain.RoleWarehouse,
	}

	// routing is legal both before the first claim and while in progress
	for _, status := range []domain.RequestStatus{domain.StatusCreated, domain.StatusInProgress} {
		for from, targets := range assign {
			edges[transitionKey{from, status, ActionAssign}] = targets
		}
		for _, from := range lateral {
			var targets []domain.Role
			for _, to := range lateral {
				if to != from {
					targets = append(targets, to)
				}
			}
			edges[transitionKey{from, status, ActionTransfer}] = targets
		}
	}
	return edges
}

// CanRoute reports whether moving a request held by (role, status) to target
// via the given action is in the allowed-edges table.
func CanRoute(role domain.Role, status domain.RequestStatus, action Action, target domain.Role) bool {
	for _, candidate := range allowedEdges[transitionKey{role, status, action}] {
		if candidate == target {
			return true
		}
	}
	return false
}

// RouteTargets returns the legal targets for (role, status, action).
func RouteTargets(role domain.Role, status domain.RequestStatus, action Action) []domain.Role {
	return allowedEdges[transitionKey{role, status, action}]
}

// CanComplete reports whether the holding role may complete a request.
func CanComplete(role domain.Role, status domain.RequestStatus) bool {
	if status != domain.StatusInProgress {
		return false
	}
	return role == domain.RoleTechnician || role == domain.RoleManager
}

// CanDiagnose reports whether a diagnosis may be attached.
func CanDiagnose(role domain.Role, status domain.RequestStatus) bool {
	return role == domain.RoleTechnician && status == domain.StatusInProgress
}

// CanRequestMaterials reports whether the holder may route to the warehouse.
func CanRequestMaterials(role domain.Role, status domain.RequestStatus) bool {
	return role == domain.RoleTechnician && status == domain.StatusInProgress
}
