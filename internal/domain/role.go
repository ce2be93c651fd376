package domain

// Role enumerates the staff functions a service request passes through,
// plus the client role used for self-service submissions.
type Role string

const (
	RoleClient        Role = "CLIENT"
	RoleCallCenter    Role = "CALL_CENTER"
	RoleSupervisor    Role = "SUPERVISOR"
	RoleController    Role = "CONTROLLER"
	RoleManager       Role = "MANAGER"
	RoleJuniorManager Role = "JUNIOR_MANAGER"
	RoleTechnician    Role = "TECHNICIAN"
	RoleWarehouse     Role = "WAREHOUSE"
)

// AllRoles lists every known role.
func AllRoles() []Role {
	return []Role{
		RoleClient,
		RoleCallCenter,
		RoleSupervisor,
		RoleController,
		RoleManager,
		RoleJuniorManager,
		RoleTechnician,
		RoleWarehouse,
	}
}

// Valid reports whether the role is a known one.
func (r Role) Valid() bool {
	for _, known := range AllRoles() {
		if r == known {
			return true
		}
	}
	return false
}

// Staff reports whether the role belongs to an internal operator.
func (r Role) Staff() bool {
	return r.Valid() && r != RoleClient
}
